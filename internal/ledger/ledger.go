// Package ledger persists per-source enrichment outcomes so operators
// can see which asset fetches succeeded, failed, or were skipped for a
// bookmark even though the webhook response never carries them.
package ledger

import (
	"context"
	"time"
)

// Entry statuses persisted in the status column.
const (
	StatusUploaded = "uploaded"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Entry is one source outcome for one enrichment job. JobID holds the
// job's storage key, which falls back to the target hostname when the
// webhook carried no id, so it is never empty for recorded jobs.
type Entry struct {
	JobID      string
	URL        string
	Source     string
	Status     string
	ObjectPath string
	Detail     string
	RecordedAt time.Time
}

// Ledger records enrichment outcomes. Implementations must tolerate
// concurrent calls; the pipeline records all sources of a job at once.
type Ledger interface {
	Record(ctx context.Context, entry Entry) error
	Close()
}

// Noop discards every entry. Used when no ledger is configured.
type Noop struct{}

// Record discards the entry.
func (Noop) Record(context.Context, Entry) error { return nil }

// Close is a no-op.
func (Noop) Close() {}
