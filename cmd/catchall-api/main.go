package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"catchall-api/internal/config"
	"catchall-api/internal/handler"
	"catchall-api/internal/logging"
	"catchall-api/internal/metrics"
	"catchall-api/internal/middleware"
	"catchall-api/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("catchall-api"),
		kong.Description("Reflects every HTTP request back as JSON."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(options(&cli)).Run()
}

func options(cli *config.CLI) fx.Option {
	return fx.Options(
		fx.Provide(
			func() *config.CLI { return cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			func(l *logging.Logger) *slog.Logger { return l.Logger },
			metrics.New,
			newEcho,
			newAdminEcho,
			config.NewReloader,
			service.NewCaptureService,
			handler.NewCatchallHandler,
			handler.NewHealthHandler,
		),
		fx.WithLogger(func(l *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: l}
		}),
		fx.Invoke(
			handler.RegisterRoutes,
			registerAdminRoutes,
			warnConfigPermissions,
			applyWorkers,
			startServer,
			startAdminServer,
			startReloader,
		),
	)
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) *logging.Logger {
	l := logging.New(cfg)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error { return l.Close() },
	})
	return l
}

// adminEcho serves health, status and metrics on their own listener.
type adminEcho struct {
	*echo.Echo
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.MetricsMiddleware(m))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	return e
}

func newAdminEcho() adminEcho {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.ReadHeaderTimeout = 5 * time.Second

	e.Use(echomw.Recover())

	return adminEcho{e}
}

func registerAdminRoutes(admin adminEcho, health *handler.HealthHandler, m *metrics.Metrics, cfg *config.Config) {
	handler.RegisterAdminRoutes(admin.Echo, health, m.Registry, cfg.Metrics.Path)
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// applyWorkers bounds the OS threads executing Go code to the configured
// worker count.
func applyWorkers(cfg *config.Config, logger *slog.Logger) {
	prev := runtime.GOMAXPROCS(cfg.Server.Workers)
	logger.Info("workers configured", "workers", cfg.Server.Workers, "previous", prev)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	serve(lc, e, cfg.Server.Addr(), "server", logger)
}

func startAdminServer(lc fx.Lifecycle, admin adminEcho, cfg *config.Config, logger *slog.Logger) {
	if !cfg.Metrics.Enabled {
		logger.Debug("admin server disabled")
		return
	}
	serve(lc, admin.Echo, cfg.Metrics.Addr, "admin server", logger)
}

func serve(lc fx.Lifecycle, e *echo.Echo, addr, name string, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting "+name, "addr", addr)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error(name+" error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down " + name)
			return e.Shutdown(ctx)
		},
	})
}

func startReloader(lc fx.Lifecycle, r *config.Reloader, l *logging.Logger) {
	r.OnReload(func(cfg *config.Config) {
		l.SetLevel(cfg.Log.Level)
	})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return r.Start() },
		OnStop:  func(_ context.Context) error { return r.Stop() },
	})
}
