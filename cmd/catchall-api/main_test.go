package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"catchall-api/internal/config"
	"catchall-api/internal/handler"
	"catchall-api/internal/metrics"
	"catchall-api/internal/service"
)

func TestOptions_Validate(t *testing.T) {
	cli := &config.CLI{}
	if err := fx.ValidateApp(options(cli)); err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}

func newTestServer(t *testing.T, bodyMax int64) *echo.Echo {
	t.Helper()

	cfg := &config.Config{Server: config.ServerConfig{BodyMaxBytes: bodyMax}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	svc, err := service.NewCaptureService(cfg, logger, m)
	if err != nil {
		t.Fatalf("NewCaptureService() error = %v", err)
	}

	e := newEcho(cfg, logger, m)
	handler.RegisterRoutes(e, handler.NewCatchallHandler(svc, logger))
	return e
}

func TestNewEcho_Middleware(t *testing.T) {
	e := newTestServer(t, 1024)

	req := httptest.NewRequest(http.MethodGet, "/foo/bar/", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if _, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID)); err != nil {
		t.Errorf("X-Request-Id = %q, want a UUID", rec.Header().Get(echo.HeaderXRequestID))
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
}

func TestNewEcho_BodyLimit(t *testing.T) {
	e := newTestServer(t, 16)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestNewAdminEcho_Routes(t *testing.T) {
	m := metrics.New()
	cfg := &config.Config{Metrics: config.MetricsConfig{Path: "/metrics"}}

	admin := newAdminEcho()
	registerAdminRoutes(admin, handler.NewHealthHandler(cfg, "test"), m, cfg)

	for _, path := range []string{"/healthz", "/status", "/metrics"} {
		rec := httptest.NewRecorder()
		admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
