// Package main wires together the enricher service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/linkhoard/enricher/internal/api"
	"github.com/linkhoard/enricher/internal/config"
	"github.com/linkhoard/enricher/internal/discover"
	"github.com/linkhoard/enricher/internal/fetch"
	"github.com/linkhoard/enricher/internal/ledger"
	"github.com/linkhoard/enricher/internal/logging"
	"github.com/linkhoard/enricher/internal/metrics"
	"github.com/linkhoard/enricher/internal/pipeline"
	"github.com/linkhoard/enricher/internal/screenshot"
	"github.com/linkhoard/enricher/internal/signature"
	"github.com/linkhoard/enricher/internal/storage"
	gcsstorage "github.com/linkhoard/enricher/internal/storage/gcs"
	localstorage "github.com/linkhoard/enricher/internal/storage/local"
	memorystorage "github.com/linkhoard/enricher/internal/storage/memory"
	"github.com/linkhoard/enricher/internal/uploader"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New("enricher", cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("enricher exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	metrics.Init()

	client := fetch.NewClient(fetch.Config{UserAgent: cfg.Fetch.UserAgent})

	capturer, err := buildCapturer(cfg, client)
	if err != nil {
		return fmt.Errorf("build screenshot capturer: %w", err)
	}

	store, cleanup, err := buildStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build blob storage: %w", err)
	}
	defer cleanup()

	led, err := buildLedger(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build ledger: %w", err)
	}
	defer led.Close()

	verifier, err := signature.NewVerifier(cfg.Auth.SigningKey, cfg.Auth.NextSigningKey)
	if err != nil {
		return fmt.Errorf("build signature verifier: %w", err)
	}

	discoverer := discover.New(client, capturer, discover.Config{
		PageTimeout:       cfg.PageTimeout(),
		ManifestTimeout:   cfg.ManifestTimeout(),
		UserAgent:         cfg.Fetch.UserAgent,
		AllowPrivateHosts: cfg.Fetch.AllowPrivateHosts,
	}, logger)

	up := uploader.New(store, client, uploader.Config{
		FaviconBucket:     cfg.Storage.FaviconBucket,
		PreviewBucket:     cfg.Storage.PreviewBucket,
		DownloadTimeout:   cfg.DownloadTimeout(),
		UserAgent:         cfg.Fetch.UserAgent,
		AllowPrivateHosts: cfg.Fetch.AllowPrivateHosts,
	}, logger)

	pipe := pipeline.New(discoverer, capturer, up, led, pipeline.Config{
		AllowPrivateHosts: cfg.Fetch.AllowPrivateHosts,
	}, logger)

	server := api.NewServer(verifier, pipe, discoverer,
		time.Duration(cfg.Server.RequestTimeout)*time.Second, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func buildCapturer(cfg config.Config, client *fetch.Client) (screenshot.Capturer, error) {
	switch cfg.Screenshot.Provider {
	case "service":
		return screenshot.NewService(client, screenshot.ServiceConfig{
			BaseURL:   cfg.Screenshot.ServiceURL,
			Timeout:   cfg.ScreenshotTimeout(),
			UserAgent: cfg.Fetch.UserAgent,
		})
	case "chromedp":
		return screenshot.NewChromedp(screenshot.ChromedpConfig{
			MaxParallel:       cfg.Screenshot.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.ScreenshotTimeout(),
			ViewportWidth:     cfg.Screenshot.ViewportWidth,
			ViewportHeight:    cfg.Screenshot.ViewportHeight,
		})
	default:
		return screenshot.Disabled{}, nil
	}
}

func buildStorage(ctx context.Context, cfg config.Config) (storage.Provider, func(), error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcsstorage.New(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.LocalBaseDir})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return memorystorage.NewBlobStore(), func() {}, nil
	}
}

func buildLedger(ctx context.Context, cfg config.Config) (ledger.Ledger, error) {
	switch cfg.Ledger.Provider {
	case "postgres":
		return ledger.NewPostgres(ctx, ledger.PostgresConfig{DSN: cfg.Ledger.DSN})
	case "memory":
		return ledger.NewMemory(), nil
	default:
		return ledger.Noop{}, nil
	}
}
