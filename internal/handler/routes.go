package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CatchallMethods are the verbs answered by the catch-all route. Other verbs
// are rejected by the router with 405.
var CatchallMethods = []string{
	http.MethodDelete,
	http.MethodGet,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
}

// catchallPath matches every path, including the root.
const catchallPath = "/*"

// RegisterRoutes wires the catch-all handler onto the main Echo instance.
func RegisterRoutes(e *echo.Echo, catchall *CatchallHandler) {
	e.Match(CatchallMethods, catchallPath, catchall.Handle)
}

// RegisterAdminRoutes wires health, status and metrics onto the admin Echo instance.
func RegisterAdminRoutes(e *echo.Echo, health *HealthHandler, reg *prometheus.Registry, metricsPath string) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)
	e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
