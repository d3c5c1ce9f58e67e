// Package publisher defines the interface for handing enrichment jobs
// to the delivery queue. Implementations live in subpackages; this
// package must not import queue clients.
package publisher

import (
	"context"

	"github.com/linkhoard/enricher/internal/enrich"
)

// Publisher enqueues one enrichment job and returns the message ID
// assigned by the queue.
type Publisher interface {
	Publish(ctx context.Context, job enrich.Job) (string, error)
}
