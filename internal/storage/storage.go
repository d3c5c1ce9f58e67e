// Package storage defines the blob storage interface used to persist
// enrichment assets. Implementations live in subpackages (gcs, local,
// memory) so the pipeline stays independent of a specific backend.
package storage

import "context"

// Provider writes asset bytes to (bucket, path) with upsert semantics:
// writing the same key again overwrites the previous object, so queue
// redeliveries converge instead of accumulating garbage. The returned
// string is a backend URI for the written object.
type Provider interface {
	Upsert(ctx context.Context, bucket, path, contentType string, data []byte) (string, error)
}
