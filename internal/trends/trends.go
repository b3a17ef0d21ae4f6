// Package trends holds the domain types shared by the store, the upstream
// source and the ingestion scheduler.
package trends

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadySubscribed = errors.New("email already subscribed")
)

// DateLayout is the layout of the calendar day a trend is scoped to.
const DateLayout = time.DateOnly

type (
	// Trend is a titled topic tracked within one category for one calendar day.
	Trend struct {
		ID             string    `db:"id"`
		Title          string    `db:"title"`
		Description    string    `db:"description"`
		Category       string    `db:"category"`
		Platform       Platform  `db:"platform"`
		Engagement     int64     `db:"engagement"`
		Rank           int       `db:"rank"`
		TrendDirection Direction `db:"trend_direction"`
		Date           string    `db:"date"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`

		// Engagement of the most recent history entry, if there is one.
		CurrentEngagement *int64 `db:"current_engagement"`
	}

	// HistoryEntry is a snapshot of a trend's engagement.
	HistoryEntry struct {
		ID         string    `db:"id"`
		TrendID    string    `db:"trend_id"`
		Engagement int64     `db:"engagement"`
		CapturedAt time.Time `db:"captured_at"`
	}

	// TrendResult is a trend as reported by the upstream source, before it
	// is persisted.
	TrendResult struct {
		Title          string    `json:"title"`
		Description    string    `json:"description"`
		Category       string    `json:"category"`
		Platform       Platform  `json:"platform"`
		Engagement     int64     `json:"engagement"`
		Rank           int       `json:"rank"`
		TrendDirection Direction `json:"trendDirection"`
	}

	// NewsletterSignup is an email captured by the signup form.
	NewsletterSignup struct {
		ID            string    `db:"id"`
		Email         string    `db:"email"`
		Name          *string   `db:"name"`
		Source        *string   `db:"source"`
		TrendCategory *string   `db:"trend_category"`
		CreatedAt     time.Time `db:"created_at"`
	}

	// TrendsQuery scopes a trend listing. Empty fields mean "any category"
	// and "today".
	TrendsQuery struct {
		Category string
		Date     string
	}
)

// CurrentOrStored returns the latest history engagement, falling back to the
// engagement stored on the trend row.
func (t Trend) CurrentOrStored() int64 {
	if t.CurrentEngagement != nil {
		return *t.CurrentEngagement
	}
	return t.Engagement
}

type (
	// TrendRepo is the storage surface for trends and their history.
	TrendRepo interface {
		AvailableDates(ctx context.Context) ([]string, error)
		Trends(ctx context.Context, q TrendsQuery) ([]Trend, error)
		Trend(ctx context.Context, id string) (Trend, error)
		TrendHistory(ctx context.Context, trendID string) ([]HistoryEntry, error)
		AddTrend(ctx context.Context, t TrendResult) (string, error)
		AddTrendHistory(ctx context.Context, trendID string, engagement int64) error
	}

	// NewsletterRepo is the storage surface for newsletter signups.
	NewsletterRepo interface {
		AddNewsletterSignup(ctx context.Context, s NewsletterSignup) (string, error)
		NewsletterSignups(ctx context.Context) ([]NewsletterSignup, error)
	}

	Repository interface {
		TrendRepo
		NewsletterRepo
	}
)
