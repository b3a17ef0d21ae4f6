// Package ingest walks the category catalog, pulls each category's trends
// from the upstream source and files them in the store.
package ingest

import (
	"context"
	"log/slog"
	"time"

	goaway "github.com/TwiN/go-away"

	"github.com/dylantarre/trend-spotter/internal/logger"
	"github.com/dylantarre/trend-spotter/internal/metrics"
	"github.com/dylantarre/trend-spotter/internal/source"
	"github.com/dylantarre/trend-spotter/internal/trends"
)

const DefaultCategoryDelay = 5 * time.Second

type (
	// Source fetches the current trends for one category.
	Source interface {
		Fetch(ctx context.Context, category string) (source.Batch, error)
	}

	// Store files one trend for today.
	Store interface {
		AddTrend(ctx context.Context, t trends.TrendResult) (string, error)
	}

	// Purger drops cached reads once new trends are stored.
	Purger interface {
		Purge()
	}
)

type Config struct {
	// Categories defaults to trends.Categories.
	Categories []string
	// CategoryDelay is the pause between two categories, to stay under the
	// provider's rate limit.
	CategoryDelay time.Duration
}

// PassSummary reports what one pass over the catalog did.
type PassSummary struct {
	Categories int
	Failed     []string
	Stored     int
	Skipped    int
	Duration   time.Duration
}

type Ingester struct {
	src        Source
	store      Store
	cache      Purger
	categories []string
	delay      time.Duration
}

// NewIngester creates an ingester. cache may be nil.
func NewIngester(src Source, store Store, cache Purger, cfg Config) *Ingester {
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = trends.Categories
	}

	return &Ingester{
		src:        src,
		store:      store,
		cache:      cache,
		categories: categories,
		delay:      cfg.CategoryDelay,
	}
}

// RunPass ingests every category once, in catalog order. A category that
// fails is logged and counted, and the pass moves on. Cancelling ctx ends
// the pass before the next category.
func (i *Ingester) RunPass(ctx context.Context) PassSummary {
	start := time.Now()
	var summary PassSummary

	slog.InfoContext(ctx, "starting ingestion pass", slog.Int("categories", len(i.categories)))
	for n, category := range i.categories {
		if n > 0 && !i.wait(ctx) {
			break
		}

		summary.Categories++
		stored, skipped, err := i.ingestCategory(ctx, category)
		summary.Stored += stored
		summary.Skipped += skipped
		if err != nil {
			summary.Failed = append(summary.Failed, category)
			metrics.CategoryIngestions.WithLabelValues(category, "failed").Inc()
			slog.ErrorContext(ctx, "error ingesting category",
				slog.String("category", category),
				slog.String("error", err.Error()),
			)
			continue
		}
		metrics.CategoryIngestions.WithLabelValues(category, "ok").Inc()
	}

	summary.Duration = time.Since(start)
	metrics.PassDuration.Observe(summary.Duration.Seconds())
	metrics.LastPassCompleted.SetToCurrentTime()
	slog.InfoContext(ctx, "finished ingestion pass",
		slog.Int("categories", summary.Categories),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("stored", summary.Stored),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("duration", summary.Duration),
	)

	return summary
}

func (i *Ingester) ingestCategory(ctx context.Context, category string) (stored, skipped int, err error) {
	ctx = logger.Ctx(ctx, slog.String("category", category))

	batch, err := i.src.Fetch(ctx, category)
	if err != nil {
		return 0, 0, err
	}
	skipped = len(batch.Skipped)

	for pos, t := range batch.Trends {
		// Position in the reply is the ranking we trust.
		t.Rank = pos + 1

		if goaway.IsProfane(t.Title + " " + t.Description) {
			skipped++
			slog.WarnContext(ctx, "skipping profane trend", slog.Int("rank", t.Rank))
			continue
		}

		id, err := i.store.AddTrend(ctx, t)
		if err != nil {
			skipped++
			slog.ErrorContext(ctx, "error storing trend",
				slog.String("title", t.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		stored++
		slog.DebugContext(ctx, "stored trend", slog.String("id", id), slog.Int("rank", t.Rank))
	}
	metrics.TrendsStored.Add(float64(stored))

	if i.cache != nil && stored > 0 {
		i.cache.Purge()
	}

	return stored, skipped, nil
}

// wait sleeps for the category delay. It reports false if ctx was cancelled
// first.
func (i *Ingester) wait(ctx context.Context) bool {
	if i.delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(i.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
