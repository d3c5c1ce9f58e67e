// Package pipeline orchestrates one enrichment job: discover assets
// across sources concurrently, upload whatever succeeded, and record
// every per-source outcome. The webhook caller never sees a failure
// from here; outcomes land in logs, metrics, and the ledger.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkhoard/enricher/internal/discover"
	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/ledger"
	"github.com/linkhoard/enricher/internal/metrics"
	"github.com/linkhoard/enricher/internal/safeurl"
	"github.com/linkhoard/enricher/internal/screenshot"
	"github.com/linkhoard/enricher/internal/uploader"
)

// Config adjusts pipeline behavior.
type Config struct {
	// AllowPrivateHosts skips the SSRF guard. Development only.
	AllowPrivateHosts bool
}

// Pipeline fans one job out to the three asset sources.
type Pipeline struct {
	discoverer *discover.Service
	capturer   screenshot.Capturer
	uploader   *uploader.Uploader
	ledger     ledger.Ledger
	cfg        Config
	logger     *zap.Logger
}

// New wires the pipeline. The ledger may be ledger.Noop{}.
func New(discoverer *discover.Service, capturer screenshot.Capturer, up *uploader.Uploader, led ledger.Ledger, cfg Config, logger *zap.Logger) *Pipeline {
	if led == nil {
		led = ledger.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		discoverer: discoverer,
		capturer:   capturer,
		uploader:   up,
		ledger:     led,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes the full enrichment for one job. Every branch settles;
// failures are logged and recorded but never returned.
func (p *Pipeline) Run(ctx context.Context, job enrich.Job) []enrich.Outcome {
	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()

	logger := p.logger.With(zap.String("job_id", job.ID), zap.String("url", job.URL))
	start := time.Now()

	normalized, err := p.normalize(job.URL)
	if err != nil {
		logger.Warn("job url rejected", zap.Error(err))
		outcomes := []enrich.Outcome{
			{Source: enrich.SourceFavicon, Err: err},
			{Source: enrich.SourceImage, Err: err},
			{Source: enrich.SourceScreenshot, Err: err},
		}
		p.settle(ctx, job, uploader.StorageKey(job.ID, ""), outcomes, logger)
		return outcomes
	}
	pageURL := normalized.String()
	key := uploader.StorageKey(job.ID, normalized.Hostname())

	var wg sync.WaitGroup
	results := make([]enrich.Outcome, 3)
	branches := []struct {
		source string
		run    func(context.Context) enrich.Outcome
	}{
		{enrich.SourceFavicon, func(ctx context.Context) enrich.Outcome {
			return p.runFavicon(ctx, pageURL, key)
		}},
		{enrich.SourceImage, func(ctx context.Context) enrich.Outcome {
			return p.runImage(ctx, pageURL, key)
		}},
		{enrich.SourceScreenshot, func(ctx context.Context) enrich.Outcome {
			return p.runScreenshot(ctx, pageURL, key)
		}},
	}
	for i, branch := range branches {
		wg.Add(1)
		go func(i int, source string, run func(context.Context) enrich.Outcome) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = enrich.Outcome{
						Source: source,
						Err:    fmt.Errorf("branch panic: %v", r),
					}
					logger.Error("enrichment branch panicked",
						zap.String("source", source),
						zap.Any("panic", r),
					)
				}
			}()
			results[i] = run(ctx)
		}(i, branch.source, branch.run)
	}
	wg.Wait()

	p.settle(ctx, job, key, results, logger)
	logger.Info("enrichment finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("uploaded", countUploaded(results)),
	)
	return results
}

func (p *Pipeline) runFavicon(ctx context.Context, pageURL, key string) enrich.Outcome {
	outcome := enrich.Outcome{Source: enrich.SourceFavicon}
	best, err := p.discoverer.BestIcon(ctx, pageURL)
	if err != nil {
		outcome.Err = fmt.Errorf("discover favicon: %w", err)
		return outcome
	}
	path, err := p.uploader.UploadFavicon(ctx, key, best.URL)
	if err != nil {
		outcome.Err = fmt.Errorf("upload favicon: %w", err)
		return outcome
	}
	outcome.Uploaded = true
	outcome.ObjectPath = path
	return outcome
}

func (p *Pipeline) runImage(ctx context.Context, pageURL, key string) enrich.Outcome {
	outcome := enrich.Outcome{Source: enrich.SourceImage}
	result, err := p.discoverer.Image(ctx, pageURL)
	if err != nil {
		outcome.Err = fmt.Errorf("discover preview image: %w", err)
		return outcome
	}
	if result.ImageURL == "" {
		// Pages without OG/Twitter images are common; not a failure.
		return outcome
	}
	path, err := p.uploader.UploadImage(ctx, key, result.ImageURL)
	if err != nil {
		outcome.Err = fmt.Errorf("upload preview image: %w", err)
		return outcome
	}
	outcome.Uploaded = true
	outcome.ObjectPath = path
	return outcome
}

func (p *Pipeline) runScreenshot(ctx context.Context, pageURL, key string) enrich.Outcome {
	outcome := enrich.Outcome{Source: enrich.SourceScreenshot}
	shot, err := p.capturer.Capture(ctx, pageURL)
	if err != nil {
		outcome.Err = fmt.Errorf("capture screenshot: %w", err)
		return outcome
	}
	path, err := p.uploader.UploadScreenshot(ctx, key, shot)
	if err != nil {
		outcome.Err = fmt.Errorf("upload screenshot: %w", err)
		return outcome
	}
	outcome.Uploaded = true
	outcome.ObjectPath = path
	return outcome
}

// settle records outcomes to the ledger and metrics. Entries carry the
// storage key rather than the raw job id, so id-less jobs still land in
// the ledger under their hostname-derived key. Ledger errors are logged
// and swallowed like everything else past the webhook response.
func (p *Pipeline) settle(ctx context.Context, job enrich.Job, key string, outcomes []enrich.Outcome, logger *zap.Logger) {
	allFailed := true
	for _, outcome := range outcomes {
		status := ledger.StatusSkipped
		switch {
		case outcome.OK():
			status = ledger.StatusUploaded
			allFailed = false
		case outcome.Err != nil:
			status = ledger.StatusFailed
		default:
			allFailed = false
		}
		metrics.ObserveSource(outcome.Source, status)

		entry := ledger.Entry{
			JobID:      key,
			URL:        job.URL,
			Source:     outcome.Source,
			Status:     status,
			ObjectPath: outcome.ObjectPath,
		}
		if outcome.Err != nil {
			entry.Detail = outcome.Err.Error()
			logger.Warn("enrichment source failed",
				zap.String("source", outcome.Source),
				zap.Error(outcome.Err),
			)
		}
		if err := p.ledger.Record(ctx, entry); err != nil {
			logger.Error("ledger record failed",
				zap.String("source", outcome.Source),
				zap.Error(err),
			)
		}
	}
	if allFailed {
		logger.Warn("all enrichment sources failed")
	}
}

func (p *Pipeline) normalize(raw string) (*url.URL, error) {
	if p.cfg.AllowPrivateHosts {
		return safeurl.Parse(raw)
	}
	return safeurl.Normalize(raw)
}

func countUploaded(outcomes []enrich.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}
