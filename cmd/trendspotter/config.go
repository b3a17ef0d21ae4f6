package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/dylantarre/trend-spotter/internal/ingest"
	"github.com/dylantarre/trend-spotter/internal/source"
)

type config struct {
	Database       string   `env:"DATABASE, default=trends.db"`
	Port           int      `env:"PORT, default=3001"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`

	SourceProvider   string `env:"SOURCE_PROVIDER, default=perplexity"`
	SourceModel      string `env:"SOURCE_MODEL"`
	PerplexityAPIKey string `env:"PERPLEXITY_API_KEY"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`

	Schedule      string        `env:"SCHEDULE, default=0 */6 * * *"`
	CategoryDelay time.Duration `env:"CATEGORY_DELAY, default=5s"`
	IngestOnStart bool          `env:"INGEST_ON_START, default=true"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE, default=2m"`
}

// loadConfig reads the environment, after filling it from a .env file in
// the working directory if there is one. Variables already set win over the
// file. A nil lookuper means the process environment.
func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (config, error) {
	if lookuper == nil {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config{}, fmt.Errorf("error loading .env: %w", err)
		}
		lookuper = envconfig.OsLookuper()
	}

	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return config{}, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Schedule == "" {
		cfg.Schedule = ingest.DefaultSchedule
	}

	return cfg, nil
}

// sourceConfig picks the credential that matches the selected provider.
func (c config) sourceConfig() source.Config {
	sc := source.Config{
		Provider: c.SourceProvider,
		Model:    c.SourceModel,
		APIKey:   c.PerplexityAPIKey,
	}
	if strings.EqualFold(strings.TrimSpace(sc.Provider), source.ProviderAnthropic) {
		sc.APIKey = c.AnthropicAPIKey
	}
	return sc
}
