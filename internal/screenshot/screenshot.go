// Package screenshot captures rendered page images for the enrichment
// pipeline. Two real capturers exist: an HTTP client for an external
// rendering service, and a local headless Chrome capturer.
package screenshot

import (
	"context"
	"fmt"
	"strings"
)

// Shot is a captured image. Bytes and ContentType are always set
// together; an error is returned instead, never both.
type Shot struct {
	Bytes       []byte
	ContentType string
}

// Capturer renders the page at url and returns the image.
type Capturer interface {
	Capture(ctx context.Context, url string) (Shot, error)
}

// CaptureError carries the upstream status and body of a failed
// rendering service call.
type CaptureError struct {
	Status int
	Body   string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screenshot failed with status %d: %s", e.Status, e.Body)
}

// Disabled is a Capturer for deployments without screenshot support.
type Disabled struct{}

// Capture always fails.
func (Disabled) Capture(_ context.Context, _ string) (Shot, error) {
	return Shot{}, fmt.Errorf("screenshot capture is disabled")
}

// normalizeContentType strips any ;charset= suffix and defaults to
// image/png when the header was absent or empty.
func normalizeContentType(header string) string {
	ct := strings.TrimSpace(header)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" {
		return "image/png"
	}
	return ct
}
