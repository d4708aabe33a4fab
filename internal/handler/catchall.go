package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"catchall-api/internal/model"
	"catchall-api/internal/service"
)

// CatchallHandler reflects every request it receives as a CatchallResponse.
type CatchallHandler struct {
	service *service.CaptureService
	logger  *slog.Logger
}

// NewCatchallHandler creates a CatchallHandler.
func NewCatchallHandler(svc *service.CaptureService, logger *slog.Logger) *CatchallHandler {
	return &CatchallHandler{
		service: svc,
		logger:  logger.With("component", "catchall_handler"),
	}
}

// Handle buffers the body, runs the capture pipeline and replies 200 with
// the captured document.
func (h *CatchallHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return h.mapError(c, err)
	}

	view := &model.RequestView{
		Method:           req.Method,
		Path:             req.URL.EscapedPath(),
		Host:             req.Host,
		TLS:              req.TLS != nil,
		Header:           req.Header,
		RawQuery:         req.URL.RawQuery,
		Body:             body,
		PeerAddr:         req.RemoteAddr,
		TransferEncoding: req.TransferEncoding,
	}

	return c.JSON(http.StatusOK, h.service.Capture(req.Context(), view))
}

// mapError converts a body read failure into the error echo renders. The
// capture pipeline never runs for such requests.
func (h *CatchallHandler) mapError(c echo.Context, err error) error {
	h.logger.Debug("read request body",
		"err", err,
		"path", c.Request().URL.Path,
	)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, "request body could not be read").SetInternal(err)
}
