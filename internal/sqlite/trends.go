package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

const (
	trendNamespace   = "-trnd"
	historyNamespace = "-hist"
)

// Picks the newest history row per trend. Rows captured in the same second
// are ordered by insertion.
const latestHistory = `(
	SELECT
		trend_id,
		engagement,
		ROW_NUMBER() OVER (PARTITION BY trend_id ORDER BY captured_at DESC, rowid DESC) AS rn
	FROM trend_history
) th ON th.trend_id = t.id AND th.rn = 1`

// AvailableDates lists every day that has at least one trend, newest first.
func (r Repo) AvailableDates(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT date FROM trends ORDER BY date DESC;`

	dates := []string{}
	if err := r.db.SelectContext(ctx, &dates, q); err != nil {
		return nil, fmt.Errorf("error selecting available dates: %s", err)
	}

	return dates, nil
}

// Trends lists the trends for a day, lowest rank first.
func (r Repo) Trends(ctx context.Context, args trends.TrendsQuery) ([]trends.Trend, error) {
	date := strings.TrimSpace(args.Date)
	if date == "" {
		date = r.today()
	}

	q := sq.Select(
		"t.id",
		"t.title",
		"t.description",
		"t.category",
		"t.platform",
		"t.engagement",
		"t.rank",
		"t.trend_direction",
		"t.date",
		"t.created_at",
		"t.updated_at",
		"th.engagement AS current_engagement",
	).
		From("trends t").
		LeftJoin(latestHistory).
		Where(sq.Eq{"t.date": date}).
		OrderBy("t.rank ASC", "t.category ASC", "t.title ASC")
	if !trends.IsWildcard(args.Category) {
		q = q.Where("LOWER(t.category) = LOWER(?)", strings.TrimSpace(args.Category))
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	ts := []trends.Trend{}
	if err := r.db.SelectContext(ctx, &ts, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error selecting trends: %s", err)
	}

	return ts, nil
}

// Trend fetches a single trend by id.
func (r Repo) Trend(ctx context.Context, id string) (trends.Trend, error) {
	const q = `SELECT id, title, description, category, platform, engagement, rank, trend_direction, date, created_at, updated_at
	FROM trends WHERE id = ?;`

	var t trends.Trend
	err := r.db.GetContext(ctx, &t, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return trends.Trend{}, trends.ErrNotFound
	}
	if err != nil {
		return trends.Trend{}, fmt.Errorf("error fetching trend: %s", err)
	}

	return t, nil
}

// AddTrend files a trend under today's date.
//
// A trend with the same title and category already filed today is updated in
// place; otherwise a new row is created. Either way one history entry is
// appended, and the row id is returned.
func (r Repo) AddTrend(ctx context.Context, t trends.TrendResult) (string, error) {
	if t.Platform == "" {
		t.Platform = trends.PlatformTikTok
	}
	today := r.today()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const lookupQ = `SELECT id FROM trends WHERE title = ? AND category = ? AND date = ?;`
	var id string
	err = tx.GetContext(ctx, &id, lookupQ, t.Title, t.Category, today)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString() + trendNamespace

		const insertQ = `INSERT INTO trends (id, title, description, category, platform, engagement, rank, trend_direction, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
		if _, err := tx.ExecContext(ctx, insertQ,
			id, t.Title, t.Description, t.Category, t.Platform, t.Engagement, t.Rank, t.TrendDirection, today,
		); err != nil {
			return "", fmt.Errorf("error inserting trend: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("error looking up trend: %w", err)
	default:
		const updateQ = `UPDATE trends
		SET description = ?, platform = ?, engagement = ?, rank = ?, trend_direction = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?;`
		if _, err := tx.ExecContext(ctx, updateQ,
			t.Description, t.Platform, t.Engagement, t.Rank, t.TrendDirection, id,
		); err != nil {
			return "", fmt.Errorf("error updating trend: %w", err)
		}
	}

	if err := insertHistory(ctx, tx, id, t.Engagement); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("error committing transaction: %w", err)
	}

	return id, nil
}

// AddTrendHistory appends an engagement snapshot for a trend.
func (r Repo) AddTrendHistory(ctx context.Context, trendID string, engagement int64) error {
	return insertHistory(ctx, r.db, trendID, engagement)
}

// TrendHistory lists a trend's snapshots, oldest first.
func (r Repo) TrendHistory(ctx context.Context, trendID string) ([]trends.HistoryEntry, error) {
	const q = `SELECT id, trend_id, engagement, captured_at FROM trend_history WHERE trend_id = ? ORDER BY captured_at ASC, rowid ASC;`

	entries := []trends.HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, q, trendID); err != nil {
		return nil, fmt.Errorf("error selecting trend history: %s", err)
	}

	return entries, nil
}

func insertHistory(ctx context.Context, ex sqlx.ExecerContext, trendID string, engagement int64) error {
	const q = `INSERT INTO trend_history (id, trend_id, engagement) VALUES (?, ?, ?);`

	id := uuid.NewString() + historyNamespace
	if _, err := ex.ExecContext(ctx, q, id, trendID, engagement); err != nil {
		return fmt.Errorf("error inserting trend history: %w", err)
	}

	return nil
}
