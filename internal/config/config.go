// Package config loads and validates enricher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Storage    StorageConfig    `mapstructure:"storage"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeout  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig holds the webhook signing keys. NextSigningKey is accepted
// alongside the current key so callers can rotate without downtime.
type AuthConfig struct {
	SigningKey     string `mapstructure:"signing_key"`
	NextSigningKey string `mapstructure:"next_signing_key"`
}

// FetchConfig bounds the outbound page and asset fetches.
type FetchConfig struct {
	PageTimeoutSeconds     int    `mapstructure:"page_timeout_seconds"`
	ManifestTimeoutSeconds int    `mapstructure:"manifest_timeout_seconds"`
	DownloadTimeoutSeconds int    `mapstructure:"download_timeout_seconds"`
	UserAgent              string `mapstructure:"user_agent"`
	AllowPrivateHosts      bool   `mapstructure:"allow_private_hosts"`
}

// ScreenshotConfig selects and configures the screenshot capturer.
// Provider is one of "disabled", "service", or "chromedp".
type ScreenshotConfig struct {
	Provider       string `mapstructure:"provider"`
	ServiceURL     string `mapstructure:"service_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxParallel    int    `mapstructure:"max_parallel"`
	ViewportWidth  int    `mapstructure:"viewport_width"`
	ViewportHeight int    `mapstructure:"viewport_height"`
}

// StorageConfig selects the blob store and its buckets. Provider is one
// of "gcs", "local", or "memory".
type StorageConfig struct {
	Provider      string `mapstructure:"provider"`
	FaviconBucket string `mapstructure:"favicon_bucket"`
	PreviewBucket string `mapstructure:"preview_bucket"`
	LocalBaseDir  string `mapstructure:"local_base_dir"`
}

// PubSubConfig holds metadata for the job delivery topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LedgerConfig selects the enrichment-outcome ledger. Provider is one
// of "noop", "memory", or "postgres".
type LedgerConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENRICHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("fetch.page_timeout_seconds", 7)
	v.SetDefault("fetch.manifest_timeout_seconds", 4)
	v.SetDefault("fetch.download_timeout_seconds", 4)
	v.SetDefault("fetch.user_agent", "linkhoard-enricher/1.0")
	v.SetDefault("fetch.allow_private_hosts", false)
	v.SetDefault("screenshot.provider", "disabled")
	v.SetDefault("screenshot.timeout_seconds", 20)
	v.SetDefault("screenshot.max_parallel", 1)
	v.SetDefault("screenshot.viewport_width", 1280)
	v.SetDefault("screenshot.viewport_height", 800)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.favicon_bucket", "bookmark-favicons")
	v.SetDefault("storage.preview_bucket", "bookmark-previews")
	v.SetDefault("ledger.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key must be set")
	}
	if c.Fetch.PageTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.page_timeout_seconds must be > 0")
	}
	switch c.Screenshot.Provider {
	case "disabled":
	case "service":
		if c.Screenshot.ServiceURL == "" {
			return fmt.Errorf("screenshot.service_url must be set when provider is service")
		}
	case "chromedp":
		if c.Screenshot.MaxParallel <= 0 {
			return fmt.Errorf("screenshot.max_parallel must be > 0 when provider is chromedp")
		}
	default:
		return fmt.Errorf("screenshot.provider must be disabled, service, or chromedp")
	}
	switch c.Storage.Provider {
	case "memory", "gcs":
	case "local":
		if c.Storage.LocalBaseDir == "" {
			return fmt.Errorf("storage.local_base_dir must be set when provider is local")
		}
	default:
		return fmt.Errorf("storage.provider must be gcs, local, or memory")
	}
	switch c.Ledger.Provider {
	case "noop", "memory":
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn must be set when provider is postgres")
		}
	default:
		return fmt.Errorf("ledger.provider must be noop, memory, or postgres")
	}
	return nil
}

// PageTimeout converts the fetch page timeout into a duration.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.Fetch.PageTimeoutSeconds) * time.Second
}

// ManifestTimeout converts the fetch manifest timeout into a duration.
func (c Config) ManifestTimeout() time.Duration {
	return time.Duration(c.Fetch.ManifestTimeoutSeconds) * time.Second
}

// DownloadTimeout converts the asset download timeout into a duration.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Fetch.DownloadTimeoutSeconds) * time.Second
}

// ScreenshotTimeout converts the capture timeout into a duration.
func (c Config) ScreenshotTimeout() time.Duration {
	return time.Duration(c.Screenshot.TimeoutSeconds) * time.Second
}
