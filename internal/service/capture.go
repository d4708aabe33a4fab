// Package service implements the request capture pipeline.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"catchall-api/internal/config"
	"catchall-api/internal/metrics"
	"catchall-api/internal/model"
)

// CaptureService turns request views into CatchallResponse documents.
// It holds no per-request state and is safe for concurrent use.
type CaptureService struct {
	trust   TrustPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCaptureService creates a CaptureService.
// The metrics parameter is optional; pass nil to disable capture metrics.
func NewCaptureService(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*CaptureService, error) {
	trust, err := NewTrustPolicy(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse server.trusted_proxies: %w", err)
	}

	return &CaptureService{
		trust:   trust,
		logger:  logger.With("component", "capture_service"),
		metrics: m,
	}, nil
}

// Capture assembles the response document for v and logs it. It never fails:
// anything it cannot make sense of degrades to an empty or absent value.
func (s *CaptureService) Capture(ctx context.Context, v *model.RequestView) *model.CatchallResponse {
	client, source := resolveClient(v, s.trust)
	body, parsed := decodeBody(v.Body)

	resp := &model.CatchallResponse{
		Method:      v.Method,
		Path:        v.Path,
		Client:      client,
		URL:         ReconstructURL(EffectiveScheme(v, s.trust), EffectiveHost(v, s.trust), v.Path),
		Headers:     NormalizeHeaders(v.Header, v.Host, v.TransferEncoding),
		QueryParams: FlattenQuery(v.RawQuery),
		Body:        body,
	}

	s.record(len(v.Body), parsed, source)
	s.log(ctx, resp)

	return resp
}

func (s *CaptureService) record(size int, parsed bool, source clientSource) {
	if s.metrics == nil {
		return
	}

	kind := "raw"
	switch {
	case size == 0:
		kind = "empty"
	case parsed:
		kind = "json"
	}

	s.metrics.CapturedBodyBytes.Observe(float64(size))
	s.metrics.CapturedBodies.WithLabelValues(kind).Inc()
	s.metrics.ClientResolutions.WithLabelValues(string(source)).Inc()
}

func (s *CaptureService) log(ctx context.Context, resp *model.CatchallResponse) {
	if !s.logger.Enabled(ctx, slog.LevelInfo) {
		return
	}

	pretty, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		s.logger.WarnContext(ctx, "encode capture for log", "err", err)
		return
	}

	s.logger.InfoContext(ctx, resp.Method+" "+resp.Path,
		"method", resp.Method,
		"path", resp.Path,
		"response", string(pretty),
	)
}
