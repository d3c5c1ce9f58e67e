// Package memory contains an in-memory job publisher for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/linkhoard/enricher/internal/enrich"
)

// Publisher stores published jobs for inspection.
type Publisher struct {
	mu   sync.RWMutex
	jobs []enrich.Job
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the job and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, job enrich.Job) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return fmt.Sprintf("memory-%d", len(p.jobs)), nil
}

// Jobs returns the recorded publishes.
func (p *Publisher) Jobs() []enrich.Job {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]enrich.Job, len(p.jobs))
	copy(out, p.jobs)
	return out
}
