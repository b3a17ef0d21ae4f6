package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

func ptr[T any](v T) *T { return &v }

func storedTrends() []trends.Trend {
	return []trends.Trend{
		{
			ID:                "a-trnd",
			Title:             "Pasta chips",
			Description:       "Air fried pasta.",
			Category:          "Food",
			Platform:          trends.PlatformTikTok,
			Engagement:        100,
			Rank:              1,
			TrendDirection:    trends.DirectionUpward,
			Date:              "2026-03-14",
			CreatedAt:         time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC),
			CurrentEngagement: ptr(int64(180)),
		},
		{
			ID:             "b-trnd",
			Title:          "Ramen hacks",
			Category:       "Food",
			Platform:       trends.PlatformTikTok,
			Engagement:     50,
			Rank:           2,
			TrendDirection: trends.DirectionDownward,
			Date:           "2026-03-14",
		},
	}
}

type trendsBody struct {
	Results []TrendResp `json:"results"`
}

func TestGetTrends(t *testing.T) {
	repo := newFakeRepo()
	repo.trends = storedTrends()
	s, _ := newTestServer(t, repo)

	rec := do(t, s, http.MethodGet, "/api/trends?category=Food&date=2026-03-14", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[trendsBody](t, rec)
	require.Len(t, body.Results, 2)
	assert.Equal(t, int64(180), body.Results[0].Engagement, "latest history wins")
	assert.Equal(t, int64(100), body.Results[0].PreviousEngagement)
	assert.Equal(t, int64(50), body.Results[1].Engagement)
	assert.Nil(t, body.Results[1].CurrentEngagement)
	assert.Equal(t, trends.DirectionDownward, body.Results[1].TrendDirection)

	require.Len(t, repo.queries, 1)
	assert.Equal(t, trends.TrendsQuery{Category: "Food", Date: "2026-03-14"}, repo.queries[0])
}

func TestGetTrends_EmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t, newFakeRepo())

	rec := do(t, s, http.MethodGet, "/api/trends", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestGetTrends_MalformedDate(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newTestServer(t, repo)

	for _, date := range []string{"yesterday", "2026-13-01", "14-03-2026", "2026-03-14T00:00:00Z"} {
		rec := do(t, s, http.MethodGet, "/api/trends?date="+date, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, date)
	}
	assert.Empty(t, repo.queries, "the store is never asked")
}

func TestGetTrends_Cached(t *testing.T) {
	repo := newFakeRepo()
	repo.trends = storedTrends()
	s, clock := newTestServer(t, repo)

	do(t, s, http.MethodGet, "/api/trends?category=Food", "")
	do(t, s, http.MethodGet, "/api/trends?category=food", "")
	assert.Len(t, repo.queries, 1, "category match is case-insensitive so the cache key is too")

	// Wildcards share one entry.
	do(t, s, http.MethodGet, "/api/trends", "")
	do(t, s, http.MethodGet, "/api/trends?category=All", "")
	do(t, s, http.MethodGet, "/api/trends?category=Most+Viral", "")
	assert.Len(t, repo.queries, 2)

	clock.now = clock.now.Add(5 * time.Minute)
	do(t, s, http.MethodGet, "/api/trends?category=Food", "")
	assert.Len(t, repo.queries, 3, "entries expire after five minutes")
}

func TestGetTrends_CacheRollsOverAtMidnight(t *testing.T) {
	repo := newFakeRepo()
	repo.trends = storedTrends()
	s, clock := newTestServer(t, repo)
	clock.now = time.Date(2026, time.March, 14, 23, 58, 0, 0, time.UTC)

	do(t, s, http.MethodGet, "/api/trends", "")
	do(t, s, http.MethodGet, "/api/trends?date=2026-03-14", "")
	assert.Len(t, repo.queries, 1, "an explicit today shares the undated entry")

	clock.now = clock.now.Add(3 * time.Minute)
	do(t, s, http.MethodGet, "/api/trends", "")
	assert.Len(t, repo.queries, 2, "a new day is a new listing")
}

// blockingTrendsRepo holds Trends until released, giving up if its context
// is cancelled.
type blockingTrendsRepo struct {
	*fakeRepo
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTrendsRepo) Trends(ctx context.Context, q trends.TrendsQuery) ([]trends.Trend, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.fakeRepo.Trends(ctx, q)
}

func TestGetTrends_SharedLoadOutlivesCancelledRequest(t *testing.T) {
	repo := &blockingTrendsRepo{
		fakeRepo: newFakeRepo(),
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	repo.trends = storedTrends()
	s := NewServer(ServerConfig{}, repo, nil)

	var (
		wg          sync.WaitGroup
		first       = httptest.NewRecorder()
		second      = httptest.NewRecorder()
		ctx, cancel = context.WithCancel(context.Background())
	)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodGet, "/api/trends?category=Food", nil).WithContext(ctx)
		s.Handler.ServeHTTP(first, req)
	}()
	<-repo.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/trends?category=Food", nil))
	}()
	// Let the second request join the in-flight load.
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	body := decode[trendsBody](t, second)
	assert.Len(t, body.Results, 2)
	assert.Equal(t, http.StatusOK, first.Code, "the load finishes even for the caller that left")
	assert.Len(t, repo.queries, 1)
}

func TestGetTrend(t *testing.T) {
	repo := newFakeRepo()
	repo.trends = storedTrends()
	repo.history["a-trnd"] = []trends.HistoryEntry{
		{TrendID: "a-trnd", Engagement: 100, CapturedAt: time.Date(2026, time.March, 14, 8, 0, 0, 0, time.UTC)},
		{TrendID: "a-trnd", Engagement: 240, CapturedAt: time.Date(2026, time.March, 14, 14, 0, 0, 0, time.UTC)},
	}
	s, _ := newTestServer(t, repo)

	rec := do(t, s, http.MethodGet, "/api/trends/a-trnd", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[GetTrendResp](t, rec)
	assert.Equal(t, "Pasta chips", body.Trend.Title)
	assert.Equal(t, int64(240), body.Trend.Engagement, "latest snapshot")
	assert.Equal(t, int64(100), body.Trend.PreviousEngagement)
	require.Len(t, body.History, 2)
	assert.Equal(t, int64(100), body.History[0].Engagement)
}

func TestGetTrend_NoHistory(t *testing.T) {
	repo := newFakeRepo()
	repo.trends = storedTrends()
	s, _ := newTestServer(t, repo)

	rec := do(t, s, http.MethodGet, "/api/trends/b-trnd", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[GetTrendResp](t, rec)
	assert.Equal(t, int64(50), body.Trend.Engagement)
	assert.NotNil(t, body.History)
	assert.Empty(t, body.History)
}

func TestGetTrend_NotFound(t *testing.T) {
	s, _ := newTestServer(t, newFakeRepo())

	rec := do(t, s, http.MethodGet, "/api/trends/missing-trnd", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"trend not found","status":404}`, rec.Body.String())
}

func TestPostTrend_PurgesCache(t *testing.T) {
	repo := newFakeRepo()
	repo.trends = storedTrends()
	s, _ := newTestServer(t, repo)

	do(t, s, http.MethodGet, "/api/trends", "")
	require.Len(t, repo.queries, 1)

	rec := do(t, s, http.MethodPost, "/api/trends", `{
		"title": "Corn kid",
		"description": "It's corn!",
		"category": "Memes",
		"platform": "TikTok",
		"engagement": 900000,
		"rank": 1,
		"trendDirection": "upward"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"trend-1"}`, rec.Body.String())
	require.Len(t, repo.added, 1)
	assert.Equal(t, "Memes", repo.added[0].Category)

	do(t, s, http.MethodGet, "/api/trends", "")
	assert.Len(t, repo.queries, 2)
}

func TestPostTrend_Invalid(t *testing.T) {
	tcs := map[string]string{
		"not json":            `{"title":`,
		"missing title":       `{"category": "Memes", "rank": 1, "trendDirection": "upward"}`,
		"rank zero":           `{"title": "a", "category": "Memes", "rank": 0, "trendDirection": "upward"}`,
		"rank eleven":         `{"title": "a", "category": "Memes", "rank": 11, "trendDirection": "upward"}`,
		"bad direction":       `{"title": "a", "category": "Memes", "rank": 1, "trendDirection": "sideways"}`,
		"negative engagement": `{"title": "a", "category": "Memes", "rank": 1, "engagement": -1, "trendDirection": "upward"}`,
	}

	for name, body := range tcs {
		t.Run(name, func(t *testing.T) {
			repo := newFakeRepo()
			s, _ := newTestServer(t, repo)

			rec := do(t, s, http.MethodPost, "/api/trends", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, repo.added)
		})
	}
}

func TestGetTrendDates(t *testing.T) {
	repo := newFakeRepo()
	s, _ := newTestServer(t, repo)

	rec := do(t, s, http.MethodGet, "/api/trends/dates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dates":[]}`, rec.Body.String())

	repo.dates = []string{"2026-03-14", "2026-03-13"}
	rec = do(t, s, http.MethodGet, "/api/trends/dates", "")
	assert.JSONEq(t, `{"dates":["2026-03-14","2026-03-13"]}`, rec.Body.String())
}
