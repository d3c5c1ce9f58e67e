// Package main is a small producer CLI that publishes enrichment jobs
// onto the delivery topic, standing in for the bookmark CRUD layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"

	"github.com/linkhoard/enricher/internal/config"
	"github.com/linkhoard/enricher/internal/enrich"
	"github.com/linkhoard/enricher/internal/logging"
	gcppublisher "github.com/linkhoard/enricher/internal/publisher/pubsub"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	jobURL := flag.String("url", "", "Bookmark URL to enrich")
	jobID := flag.String("id", "", "Bookmark ID (optional)")
	timeout := flag.Duration("timeout", 30*time.Second, "Publish timeout")
	flag.Parse()

	if *jobURL == "" {
		fmt.Fprintln(os.Stderr, "usage: enqueue -url <bookmark url> [-id <bookmark id>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		fmt.Fprintln(os.Stderr, "pubsub.project_id and pubsub.topic_name must be configured")
		os.Exit(1)
	}

	logger, err := logging.New("enqueue", cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("create pubsub client", zap.Error(err))
	}
	defer func() {
		_ = client.Close()
	}()

	topic := fmt.Sprintf("projects/%s/topics/%s", cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	pub := gcppublisher.New(client.Publisher(topic))

	msgID, err := pub.Publish(ctx, enrich.Job{URL: *jobURL, ID: *jobID})
	if err != nil {
		logger.Fatal("publish job", zap.Error(err))
	}
	logger.Info("job published",
		zap.String("message_id", msgID),
		zap.String("url", *jobURL),
		zap.String("id", *jobID),
	)
}
