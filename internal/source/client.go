// Package source fetches the current trends for a category from a hosted
// language model and turns its reply into validated trend records.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dylantarre/trend-spotter/internal/logger"
	"github.com/dylantarre/trend-spotter/internal/metrics"
	"github.com/dylantarre/trend-spotter/internal/trends"
)

const (
	ProviderPerplexity = "perplexity"
	ProviderAnthropic  = "anthropic"

	// MaxTrends is how many records a single fetch keeps.
	MaxTrends = 10

	defaultTimeout        = 60 * time.Second
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryAttempts  = 3
	maxTokens             = 1024
)

// ErrMissingAPIKey is returned, without any network call, when the selected
// provider has no credential configured.
var ErrMissingAPIKey = errors.New("API key not configured")

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream request: http %d: %s", e.StatusCode, summarize(e.Body))
}

// Config selects and authenticates the provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint.
	BaseURL string
}

// Batch is the outcome of one fetch: the accepted records plus the ones that
// failed validation and were skipped.
type Batch struct {
	Trends  []trends.TrendResult
	Skipped []*ValidationError
}

// completer sends one prompt to a provider and returns the text it replied
// with.
type completer interface {
	name() string
	complete(ctx context.Context, system, user string) (string, error)
}

// Client fetches trends from the configured provider.
type Client struct {
	cfg        Config
	provider   completer
	httpClient *http.Client

	timeout        time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the perplexity provider.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides how many attempts are made on a rate limited reply and
// the base of the linear backoff between them.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryBaseDelay = baseDelay
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient builds a client for cfg.Provider. An empty provider means
// perplexity.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg: Config{
			Provider: strings.ToLower(strings.TrimSpace(cfg.Provider)),
			Model:    strings.TrimSpace(cfg.Model),
			APIKey:   strings.TrimSpace(cfg.APIKey),
			BaseURL:  strings.TrimSpace(cfg.BaseURL),
		},
		httpClient:     &http.Client{},
		timeout:        defaultTimeout,
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retryAttempts < 1 {
		c.retryAttempts = 1
	}

	switch c.cfg.Provider {
	case "", ProviderPerplexity:
		c.cfg.Provider = ProviderPerplexity
		c.provider = newPerplexity(c.cfg, c.httpClient)
	case ProviderAnthropic:
		c.provider = newAnthropic(c.cfg, c.httpClient)
	default:
		return nil, fmt.Errorf("unknown source provider %q", cfg.Provider)
	}

	return c, nil
}

// Provider names the provider in use.
func (c *Client) Provider() string {
	return c.cfg.Provider
}

// Fetch asks the provider for the current trends in category. Any failure
// comes back as an error with an empty batch. Callers put the category on
// ctx for logging.
func (c *Client) Fetch(ctx context.Context, category string) (Batch, error) {
	ctx = logger.Ctx(ctx, slog.String("provider", c.cfg.Provider))
	if c.cfg.APIKey == "" {
		return Batch{}, ErrMissingAPIKey
	}

	content, err := c.completeWithRetry(ctx, promptFor(category))
	if err != nil {
		return Batch{}, fmt.Errorf("error fetching %s trends: %w", category, err)
	}

	records, err := DecodeTrendArray(content)
	if err != nil {
		return Batch{}, fmt.Errorf("error parsing %s trends: %w", category, err)
	}

	batch := normalize(records, category)
	for _, skipped := range batch.Skipped {
		metrics.RecordsRejected.WithLabelValues(skipped.Field).Inc()
		slog.WarnContext(ctx, "skipping upstream record", slog.Any("error", skipped))
	}
	if len(batch.Trends) == 0 {
		return Batch{}, fmt.Errorf("no valid %s trends in %d upstream records", category, len(records))
	}

	return batch, nil
}

func (c *Client) completeWithRetry(ctx context.Context, user string) (string, error) {
	var attempt int
	backoff := retry.WithMaxRetries(uint64(c.retryAttempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		metrics.UpstreamRetries.WithLabelValues(c.cfg.Provider).Inc()
		return c.retryBaseDelay * time.Duration(attempt), false
	}))

	var content string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		out, err := c.provider.complete(ctx, systemPrompt, user)

		var statusErr *StatusError
		switch {
		case errors.As(err, &statusErr):
			metrics.ObserveUpstream(c.cfg.Provider, start, statusErr.StatusCode)
			if statusErr.StatusCode == http.StatusTooManyRequests {
				slog.WarnContext(ctx, "upstream rate limited", slog.Int("attempt", attempt+1))
				return retry.RetryableError(err)
			}
			return err
		case err != nil:
			metrics.ObserveUpstream(c.cfg.Provider, start, 0)
			return err
		}

		metrics.ObserveUpstream(c.cfg.Provider, start, http.StatusOK)
		content = out
		return nil
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func summarize(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	const limit = 200
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
