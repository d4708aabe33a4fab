package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catchall-api/internal/config"
	"catchall-api/internal/metrics"
	"catchall-api/internal/model"
)

func newTestService(t *testing.T, cfg *config.Config, level slog.Level) (*CaptureService, *metrics.Metrics, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	m := metrics.New()

	svc, err := NewCaptureService(cfg, logger, m)
	require.NoError(t, err)
	return svc, m, &buf
}

// counterValue returns the value of the series of name carrying label=value.
func counterValue(t *testing.T, m *metrics.Metrics, name, label, value string) float64 {
	t.Helper()

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCapture_FullDocument(t *testing.T) {
	svc, _, _ := newTestService(t, &config.Config{}, slog.LevelInfo)

	view := &model.RequestView{
		Method: http.MethodPost,
		Path:   "/foo/bar/",
		Host:   "localhost:8080",
		Header: http.Header{
			"Content-Type":    {"application/json"},
			"X-Forwarded-For": {"192.168.0.1"},
		},
		RawQuery: "foo=bar&baz=69",
		Body:     []byte(`{"foo": "bar"}`),
		PeerAddr: "127.0.0.1:12345",
	}

	resp := svc.Capture(context.Background(), view)

	got, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"method": "POST",
		"path": "/foo/bar/",
		"client": {"remote_ip": "192.168.0.1", "port": 12345},
		"url": {"scheme": "http", "hostname": "localhost", "port": 8080, "path": "/foo/bar/"},
		"headers": {
			"content-type": "application/json",
			"x-forwarded-for": "192.168.0.1",
			"host": "localhost:8080"
		},
		"query_params": {"foo": "bar", "baz": "69"},
		"body": {"json": {"foo": "bar"}, "raw": "eyJmb28iOiAiYmFyIn0="}
	}`, string(got))
}

func TestCapture_EmptyRequest(t *testing.T) {
	svc, _, _ := newTestService(t, &config.Config{}, slog.LevelInfo)

	resp := svc.Capture(context.Background(), &model.RequestView{Method: http.MethodGet, Path: "/"})

	got, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"method": "GET",
		"path": "/",
		"client": {"remote_ip": null, "port": 8080},
		"url": {"scheme": "http", "hostname": "", "port": 0, "path": "/"},
		"headers": {},
		"query_params": {},
		"body": {"json": null, "raw": ""}
	}`, string(got))
}

func TestCapture_LogsDocument(t *testing.T) {
	svc, _, buf := newTestService(t, &config.Config{}, slog.LevelInfo)

	svc.Capture(context.Background(), &model.RequestView{
		Method:   http.MethodDelete,
		Path:     "/items/7",
		PeerAddr: "127.0.0.1:1",
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "DELETE /items/7", entry["msg"])
	assert.Equal(t, "DELETE", entry["method"])
	assert.Equal(t, "/items/7", entry["path"])
	assert.Equal(t, "capture_service", entry["component"])

	doc, ok := entry["response"].(string)
	require.True(t, ok, "response attribute is not a string")
	assert.Contains(t, doc, "\n  \"method\": \"DELETE\"")
}

func TestCapture_NoLogAboveInfo(t *testing.T) {
	svc, _, buf := newTestService(t, &config.Config{}, slog.LevelWarn)

	resp := svc.Capture(context.Background(), &model.RequestView{Method: http.MethodGet, Path: "/quiet"})

	assert.Equal(t, "/quiet", resp.Path)
	assert.Zero(t, buf.Len())
}

func TestCapture_RecordsMetrics(t *testing.T) {
	svc, m, _ := newTestService(t, &config.Config{}, slog.LevelInfo)
	ctx := context.Background()

	svc.Capture(ctx, &model.RequestView{Method: http.MethodGet, Path: "/", PeerAddr: "127.0.0.1:1"})
	svc.Capture(ctx, &model.RequestView{Method: http.MethodPost, Path: "/", Body: []byte(`{}`)})
	svc.Capture(ctx, &model.RequestView{
		Method:   http.MethodPut,
		Path:     "/",
		Body:     []byte("foobar"),
		Header:   http.Header{"X-Forwarded-For": {"10.0.0.9"}},
		PeerAddr: "127.0.0.1:1",
	})

	assert.Equal(t, 1.0, counterValue(t, m, "catchall_api_captured_bodies_total", "kind", "empty"))
	assert.Equal(t, 1.0, counterValue(t, m, "catchall_api_captured_bodies_total", "kind", "json"))
	assert.Equal(t, 1.0, counterValue(t, m, "catchall_api_captured_bodies_total", "kind", "raw"))

	assert.Equal(t, 1.0, counterValue(t, m, "catchall_api_client_resolutions_total", "source", "peer"))
	assert.Equal(t, 1.0, counterValue(t, m, "catchall_api_client_resolutions_total", "source", "none"))
	assert.Equal(t, 1.0, counterValue(t, m, "catchall_api_client_resolutions_total", "source", "forwarded"))
}

func TestCapture_NilMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewCaptureService(&config.Config{}, logger, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		svc.Capture(context.Background(), &model.RequestView{Method: http.MethodGet, Path: "/"})
	})
}

func TestCapture_TrustedProxies(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8"}
	svc, _, _ := newTestService(t, cfg, slog.LevelInfo)

	view := &model.RequestView{
		Method:   http.MethodGet,
		Path:     "/",
		Host:     "internal:8080",
		Header:   http.Header{"X-Forwarded-For": {"203.0.113.1"}, "X-Forwarded-Host": {"public.example.com"}},
		PeerAddr: "172.16.0.5:2000",
	}

	resp := svc.Capture(context.Background(), view)
	require.NotNil(t, resp.Client.RemoteIP)
	assert.Equal(t, "172.16.0.5", *resp.Client.RemoteIP)
	assert.Equal(t, "internal", resp.URL.Hostname)

	view.PeerAddr = "10.2.3.4:2000"
	resp = svc.Capture(context.Background(), view)
	require.NotNil(t, resp.Client.RemoteIP)
	assert.Equal(t, "203.0.113.1", *resp.Client.RemoteIP)
	assert.Equal(t, "public.example.com", resp.URL.Hostname)
	assert.Equal(t, "internal:8080", resp.Headers["host"])
}

func TestNewCaptureService_InvalidTrustedProxy(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.TrustedProxies = []string{"not-an-ip"}

	_, err := NewCaptureService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.ErrorContains(t, err, "trusted_proxies")
}
