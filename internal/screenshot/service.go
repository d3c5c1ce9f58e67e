package screenshot

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/linkhoard/enricher/internal/fetch"
)

// ServiceConfig points at an external rendering service that accepts
// GET {BaseURL}?url=<target> and responds with image bytes.
type ServiceConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Service captures screenshots by delegating to a rendering service.
type Service struct {
	cfg    ServiceConfig
	client *fetch.Client
}

// NewService builds a Service capturer.
func NewService(client *fetch.Client, cfg ServiceConfig) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rendering service base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Service{cfg: cfg, client: client}, nil
}

// Capture requests a full-page render of target from the service.
func (s *Service) Capture(ctx context.Context, target string) (Shot, error) {
	endpoint := s.cfg.BaseURL
	if u, err := url.Parse(endpoint); err == nil {
		q := u.Query()
		q.Set("url", target)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	resp, err := s.client.Text(ctx, endpoint, s.cfg.Timeout, fetch.Options{
		UserAgent: s.cfg.UserAgent,
		Accept:    "image/*",
	})
	if err != nil {
		return Shot{}, fmt.Errorf("call rendering service: %w", err)
	}
	if !resp.OK() {
		return Shot{}, &CaptureError{Status: resp.StatusCode, Body: string(resp.Body)}
	}
	return Shot{
		Bytes:       resp.Body,
		ContentType: normalizeContentType(resp.Headers.Get("Content-Type")),
	}, nil
}
