package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

type fakeRepo struct {
	mu sync.Mutex

	trends    []trends.Trend
	trendsErr error
	queries   []trends.TrendsQuery
	history   map[string][]trends.HistoryEntry
	dates     []string
	added     []trends.TrendResult
	signups   map[string]trends.NewsletterSignup
	signupErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		history: map[string][]trends.HistoryEntry{},
		signups: map[string]trends.NewsletterSignup{},
	}
}

func (f *fakeRepo) AvailableDates(ctx context.Context) ([]string, error) {
	return f.dates, nil
}

func (f *fakeRepo) Trends(ctx context.Context, q trends.TrendsQuery) ([]trends.Trend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.trends, f.trendsErr
}

func (f *fakeRepo) Trend(ctx context.Context, id string) (trends.Trend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trends {
		if t.ID == id {
			return t, nil
		}
	}
	return trends.Trend{}, trends.ErrNotFound
}

func (f *fakeRepo) TrendHistory(ctx context.Context, trendID string) ([]trends.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[trendID], nil
}

func (f *fakeRepo) AddTrend(ctx context.Context, t trends.TrendResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, t)
	return fmt.Sprintf("trend-%d", len(f.added)), nil
}

func (f *fakeRepo) AddTrendHistory(ctx context.Context, trendID string, engagement int64) error {
	return nil
}

func (f *fakeRepo) AddNewsletterSignup(ctx context.Context, s trends.NewsletterSignup) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signupErr != nil {
		return "", f.signupErr
	}
	email := strings.ToLower(s.Email)
	if _, ok := f.signups[email]; ok {
		return "", fmt.Errorf("signup for %q: %w", email, trends.ErrAlreadySubscribed)
	}
	s.ID = fmt.Sprintf("signup-%d", len(f.signups)+1)
	f.signups[email] = s
	return s.ID, nil
}

func (f *fakeRepo) NewsletterSignups(ctx context.Context) ([]trends.NewsletterSignup, error) {
	return nil, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T, repo *fakeRepo) (*Server, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)}
	return NewServer(ServerConfig{Port: 3001, Clock: clock}, repo, NewTrendCache(clock)), clock
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t, newFakeRepo())

	req := httptest.NewRequest(http.MethodOptions, "/api/newsletter/signup", nil)
	req.Header.Set("Origin", "https://trends.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestPreflight_DisallowedOrigin(t *testing.T) {
	s := NewServer(ServerConfig{AllowedOrigins: []string{"https://trends.example.com"}}, newFakeRepo(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/trends", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, newFakeRepo())

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownError_IsGeneric500(t *testing.T) {
	repo := newFakeRepo()
	repo.trendsErr = errors.New("sqlite: no such table: trends")
	s, _ := newTestServer(t, repo)

	rec := do(t, s, http.MethodGet, "/api/trends", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"internal server error","status":500}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "sqlite")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
