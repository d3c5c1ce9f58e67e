// Package discover runs the multi-source asset discovery used by both
// the HTTP discovery endpoints and the enrichment pipeline: fetch the
// page, parse icon and image candidates, chase the web manifest, and
// append well-known fallbacks.
package discover

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/fetch"
	"github.com/linkhoard/enricher/internal/meta"
	"github.com/linkhoard/enricher/internal/rank"
	"github.com/linkhoard/enricher/internal/safeurl"
	"github.com/linkhoard/enricher/internal/screenshot"
)

// Config bounds the discovery fetches.
type Config struct {
	PageTimeout     time.Duration
	ManifestTimeout time.Duration
	UserAgent       string
	// AllowPrivateHosts skips the SSRF guard. Development only.
	AllowPrivateHosts bool
}

// Service discovers icons, preview images, and page metadata for a URL.
type Service struct {
	client   *fetch.Client
	capturer screenshot.Capturer
	cfg      Config
	logger   *zap.Logger
}

// New builds a Service. The capturer may be screenshot.Disabled{} when
// rendering is not configured.
func New(client *fetch.Client, capturer screenshot.Capturer, cfg Config, logger *zap.Logger) *Service {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 7 * time.Second
	}
	if cfg.ManifestTimeout <= 0 {
		cfg.ManifestTimeout = 4 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, capturer: capturer, cfg: cfg, logger: logger}
}

// IconsResult is the outcome of icon discovery for one input URL.
type IconsResult struct {
	InputURL      string                 `json:"inputUrl"`
	NormalizedURL string                 `json:"normalizedUrl"`
	FinalURL      string                 `json:"finalUrl,omitempty"`
	BaseURL       string                 `json:"baseUrl,omitempty"`
	Icons         []enrich.IconCandidate `json:"icons"`
}

// Icons discovers the full de-duplicated icon candidate list. Fetch
// failures degrade to the origin fallback candidates; only URL
// validation errors are returned.
func (s *Service) Icons(ctx context.Context, raw string) (IconsResult, error) {
	normalized, err := s.normalize(raw)
	if err != nil {
		return IconsResult{}, err
	}
	result := IconsResult{
		InputURL:      raw,
		NormalizedURL: normalized.String(),
	}

	var candidates []enrich.IconCandidate
	origin := normalized

	resp, err := s.client.Text(ctx, normalized.String(), s.cfg.PageTimeout, s.opts("text/html,application/xhtml+xml"))
	if err != nil || !resp.OK() {
		s.logger.Debug("icon page fetch failed, using fallbacks only",
			zap.String("url", normalized.String()),
			zap.Error(err),
		)
	} else {
		finalURL := s.parseFinal(resp.FinalURL, normalized)
		origin = finalURL
		result.FinalURL = finalURL.String()

		discovery := meta.ExtractIcons(string(resp.Body), finalURL)
		result.BaseURL = discovery.BaseURL
		candidates = append(candidates, discovery.Icons...)

		if discovery.ManifestURL != "" {
			candidates = append(candidates, s.manifestIcons(ctx, discovery.ManifestURL)...)
		}
	}

	candidates = append(candidates, meta.FallbackIcons(origin)...)
	result.Icons = enrich.DedupeIcons(candidates)
	return result, nil
}

// BestIcon runs discovery and collapses the candidates to the ranked
// winner, as the pipeline's favicon branch does.
func (s *Service) BestIcon(ctx context.Context, raw string) (enrich.IconCandidate, error) {
	result, err := s.Icons(ctx, raw)
	if err != nil {
		return enrich.IconCandidate{}, err
	}
	best, ok := rank.Best(result.Icons)
	if !ok {
		return enrich.IconCandidate{}, fmt.Errorf("no icon candidates for %s", result.NormalizedURL)
	}
	return best, nil
}

func (s *Service) manifestIcons(ctx context.Context, manifestURL string) []enrich.IconCandidate {
	// Manifest URLs come from fetched pages, not directly from users,
	// but the guard still applies before the request goes out.
	if u, err := url.Parse(manifestURL); err != nil || (!s.cfg.AllowPrivateHosts && safeurl.IsPrivateHostname(u.Hostname())) {
		return nil
	}
	var manifest meta.Manifest
	resp, err := s.client.JSON(ctx, manifestURL, s.cfg.ManifestTimeout, s.opts("application/manifest+json,application/json"), &manifest)
	if err != nil || !resp.OK() {
		s.logger.Debug("manifest fetch failed", zap.String("url", manifestURL), zap.Error(err))
		return nil
	}
	parsed, err := url.Parse(resp.FinalURL)
	if err != nil {
		parsed, _ = url.Parse(manifestURL)
	}
	return meta.ManifestIconCandidates(manifest, parsed)
}

// ImageResult is the outcome of preview-image discovery.
type ImageResult struct {
	InputURL      string                  `json:"inputUrl"`
	NormalizedURL string                  `json:"normalizedUrl"`
	FinalURL      string                  `json:"finalUrl,omitempty"`
	ImageURL      string                  `json:"imageUrl,omitempty"`
	Images        []enrich.ImageCandidate `json:"images"`
}

// Image discovers OG/Twitter preview images. Unlike Icons there is no
// fallback tier, so a failed page fetch is an error.
func (s *Service) Image(ctx context.Context, raw string) (ImageResult, error) {
	normalized, err := s.normalize(raw)
	if err != nil {
		return ImageResult{}, err
	}
	result := ImageResult{
		InputURL:      raw,
		NormalizedURL: normalized.String(),
	}

	resp, err := s.client.Text(ctx, normalized.String(), s.cfg.PageTimeout, s.opts("text/html,application/xhtml+xml"))
	if err != nil {
		return result, fmt.Errorf("fetch page: %w", err)
	}
	if !resp.OK() {
		return result, &fetch.StatusError{Status: resp.StatusCode, Body: "page fetch failed"}
	}

	finalURL := s.parseFinal(resp.FinalURL, normalized)
	result.FinalURL = finalURL.String()
	result.Images = meta.ExtractImages(string(resp.Body), finalURL)
	if len(result.Images) > 0 {
		result.ImageURL = result.Images[0].URL
	}
	return result, nil
}

// PreviewResult bundles everything the combined preview endpoint needs.
type PreviewResult struct {
	InputURL              string `json:"inputUrl"`
	NormalizedURL         string `json:"normalizedUrl"`
	FinalURL              string `json:"finalUrl,omitempty"`
	Title                 string `json:"title,omitempty"`
	Description           string `json:"description,omitempty"`
	ImageURL              string `json:"imageUrl,omitempty"`
	ScreenshotDataURL     string `json:"screenshotDataUrl,omitempty"`
	ScreenshotContentType string `json:"screenshotContentType,omitempty"`
	ScreenshotBytes       int    `json:"screenshotBytes,omitempty"`
	ScreenshotError       string `json:"screenshotError,omitempty"`
}

// Preview fetches the page and the screenshot concurrently and merges
// whatever succeeded; the screenshot failing only fills ScreenshotError.
func (s *Service) Preview(ctx context.Context, raw string) (PreviewResult, error) {
	normalized, err := s.normalize(raw)
	if err != nil {
		return PreviewResult{}, err
	}
	result := PreviewResult{
		InputURL:      raw,
		NormalizedURL: normalized.String(),
	}

	var (
		wg   sync.WaitGroup
		shot screenshot.Shot
	)
	var shotErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		shot, shotErr = s.capturer.Capture(ctx, normalized.String())
	}()

	resp, fetchErr := s.client.Text(ctx, normalized.String(), s.cfg.PageTimeout, s.opts("text/html,application/xhtml+xml"))
	if fetchErr == nil && resp.OK() {
		finalURL := s.parseFinal(resp.FinalURL, normalized)
		result.FinalURL = finalURL.String()
		page := meta.ExtractPage(string(resp.Body))
		result.Title = page.Title
		result.Description = page.Description
		images := meta.ExtractImages(string(resp.Body), finalURL)
		if len(images) > 0 {
			result.ImageURL = images[0].URL
		}
	}
	wg.Wait()

	if shotErr != nil {
		result.ScreenshotError = shotErr.Error()
	} else {
		result.ScreenshotContentType = shot.ContentType
		result.ScreenshotBytes = len(shot.Bytes)
		result.ScreenshotDataURL = dataURL(shot)
	}
	return result, nil
}

func (s *Service) normalize(raw string) (*url.URL, error) {
	if s.cfg.AllowPrivateHosts {
		return safeurl.Parse(raw)
	}
	return safeurl.Normalize(raw)
}

func (s *Service) opts(accept string) fetch.Options {
	return fetch.Options{UserAgent: s.cfg.UserAgent, Accept: accept}
}

func (s *Service) parseFinal(finalURL string, fallback *url.URL) *url.URL {
	if finalURL == "" {
		return fallback
	}
	parsed, err := url.Parse(finalURL)
	if err != nil {
		return fallback
	}
	return parsed
}

func dataURL(shot screenshot.Shot) string {
	return "data:" + shot.ContentType + ";base64," + base64.StdEncoding.EncodeToString(shot.Bytes)
}
