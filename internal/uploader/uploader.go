// Package uploader maps selected assets to deterministic storage keys
// and persists them with upsert semantics, so redelivered jobs converge
// on the same objects.
package uploader

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/fetch"
	"github.com/linkhoard/enricher/internal/metrics"
	"github.com/linkhoard/enricher/internal/safeurl"
	"github.com/linkhoard/enricher/internal/screenshot"
	"github.com/linkhoard/enricher/internal/storage"
)

// Default bucket names for persisted artifacts.
const (
	DefaultFaviconBucket = "bookmark-favicons"
	DefaultPreviewBucket = "bookmark-previews"
)

const maxKeyLength = 80

var keyStripRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Config controls bucket targets and asset download behavior.
type Config struct {
	FaviconBucket   string
	PreviewBucket   string
	DownloadTimeout time.Duration
	UserAgent       string
	// AllowPrivateHosts skips the SSRF guard on asset downloads.
	// Development only.
	AllowPrivateHosts bool
}

// Uploader downloads selected asset URLs and writes them to the blob
// store under the job's storage key.
type Uploader struct {
	store  storage.Provider
	client *fetch.Client
	cfg    Config
	logger *zap.Logger
}

// New constructs an Uploader. The blob store and fetch client are
// injected so tests can substitute fakes.
func New(store storage.Provider, client *fetch.Client, cfg Config, logger *zap.Logger) *Uploader {
	if cfg.FaviconBucket == "" {
		cfg.FaviconBucket = DefaultFaviconBucket
	}
	if cfg.PreviewBucket == "" {
		cfg.PreviewBucket = DefaultPreviewBucket
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 4 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{store: store, client: client, cfg: cfg, logger: logger}
}

// StorageKey derives the deterministic object key prefix for a job:
// the job id when present, otherwise the target hostname, stripped to
// [A-Za-z0-9._-] and truncated to 80 characters. The same job id always
// yields the same key, which is what makes redelivery safe.
func StorageKey(jobID, hostname string) string {
	key := sanitizeKey(jobID)
	if key == "" {
		key = sanitizeKey(hostname)
	}
	if key == "" {
		key = "bookmark"
	}
	return key
}

func sanitizeKey(s string) string {
	cleaned := keyStripRe.ReplaceAllString(s, "")
	if len(cleaned) > maxKeyLength {
		cleaned = cleaned[:maxKeyLength]
	}
	return cleaned
}

// UploadFavicon downloads the winning icon and upserts it under
// {favicon bucket}/{key}/favicon.png.
func (u *Uploader) UploadFavicon(ctx context.Context, key, iconURL string) (string, error) {
	return u.downloadAndStore(ctx, enrich.SourceFavicon, u.cfg.FaviconBucket, key+"/favicon.png", iconURL)
}

// UploadImage downloads the selected preview image and upserts it under
// {preview bucket}/{key}/og.png.
func (u *Uploader) UploadImage(ctx context.Context, key, imageURL string) (string, error) {
	return u.downloadAndStore(ctx, enrich.SourceImage, u.cfg.PreviewBucket, key+"/og.png", imageURL)
}

// UploadScreenshot upserts already-captured screenshot bytes under
// {preview bucket}/{key}/preview.png.
func (u *Uploader) UploadScreenshot(ctx context.Context, key string, shot screenshot.Shot) (string, error) {
	if len(shot.Bytes) == 0 {
		return "", fmt.Errorf("screenshot payload is empty")
	}
	path := key + "/preview.png"
	uri, err := u.store.Upsert(ctx, u.cfg.PreviewBucket, path, shot.ContentType, shot.Bytes)
	if err != nil {
		return "", fmt.Errorf("upsert screenshot: %w", err)
	}
	metrics.ObserveUpload(enrich.SourceScreenshot, len(shot.Bytes))
	return uri, nil
}

func (u *Uploader) downloadAndStore(ctx context.Context, source, bucket, path, assetURL string) (string, error) {
	// Asset URLs come from fetched documents, which the target site
	// controls; the guard applies to them as well.
	if !u.cfg.AllowPrivateHosts {
		if parsed, err := url.Parse(assetURL); err != nil || safeurl.IsPrivateHostname(parsed.Hostname()) {
			return "", fmt.Errorf("%w: %s", safeurl.ErrForbiddenHost, assetURL)
		}
	}
	resp, err := u.client.Text(ctx, assetURL, u.cfg.DownloadTimeout, fetch.Options{
		UserAgent: u.cfg.UserAgent,
		Accept:    "image/*",
	})
	if err != nil {
		return "", fmt.Errorf("download asset: %w", err)
	}
	if !resp.OK() {
		return "", &fetch.StatusError{Status: resp.StatusCode, Body: truncate(string(resp.Body), 200)}
	}
	if len(resp.Body) == 0 {
		return "", fmt.Errorf("asset body is empty")
	}
	contentType := resp.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	uri, err := u.store.Upsert(ctx, bucket, path, contentType, resp.Body)
	if err != nil {
		return "", fmt.Errorf("upsert asset: %w", err)
	}
	metrics.ObserveUpload(source, len(resp.Body))
	u.logger.Debug("asset stored",
		zap.String("bucket", bucket),
		zap.String("path", path),
		zap.Int("bytes", len(resp.Body)),
	)
	return uri, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
