package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	tserrs "github.com/dylantarre/trend-spotter/internal/errors"
	"github.com/dylantarre/trend-spotter/internal/metrics"
	"github.com/dylantarre/trend-spotter/internal/serverutil"
	"github.com/dylantarre/trend-spotter/internal/trends"
)

// TrendResp is a trend as the browser client reads it. Engagement is the
// latest recorded figure; PreviousEngagement is the one stored with the
// trend itself.
type TrendResp struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Category           string           `json:"category"`
	Platform           trends.Platform  `json:"platform"`
	Engagement         int64            `json:"engagement"`
	CurrentEngagement  *int64           `json:"currentEngagement"`
	PreviousEngagement int64            `json:"previousEngagement"`
	Rank               int              `json:"rank"`
	TrendDirection     trends.Direction `json:"trendDirection"`
	Date               string           `json:"date"`
	CreatedAt          time.Time        `json:"createdAt"`
}

func apiTrend(t trends.Trend) TrendResp {
	return TrendResp{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Category:           t.Category,
		Platform:           t.Platform,
		Engagement:         t.CurrentOrStored(),
		CurrentEngagement:  t.CurrentEngagement,
		PreviousEngagement: t.Engagement,
		Rank:               t.Rank,
		TrendDirection:     t.TrendDirection,
		Date:               t.Date,
		CreatedAt:          t.CreatedAt,
	}
}

// trendCacheKey names a listing. A query without a date is keyed under today
// so a listing cached before midnight isn't served the day after.
func trendCacheKey(q trends.TrendsQuery, today string) string {
	category := strings.ToLower(strings.TrimSpace(q.Category))
	if trends.IsWildcard(category) {
		category = "*"
	}
	date := q.Date
	if date == "" {
		date = today
	}
	return category + "|" + date
}

func (s Server) getTrends(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		q   = trends.TrendsQuery{
			Category: r.URL.Query().Get("category"),
			Date:     strings.TrimSpace(r.URL.Query().Get("date")),
		}
	)
	if q.Date != "" {
		if _, err := time.Parse(trends.DateLayout, q.Date); err != nil {
			return tserrs.E(http.StatusBadRequest, "invalid date", tserrs.Detail{
				Field: "date",
				Error: "must be formatted YYYY-MM-DD",
			})
		}
	}

	key := trendCacheKey(q, s.clock.Now().Format(trends.DateLayout))
	if cached, ok := s.trendCache.Get(key); ok {
		metrics.TrendsCacheLookups.WithLabelValues("hit").Inc()
		return serverutil.WriteJSON(w, http.StatusOK, map[string]any{
			"results": cached,
		})
	}
	metrics.TrendsCacheLookups.WithLabelValues("miss").Inc()

	// Callers share the load, so it can't be bound to whichever request
	// happened to start it.
	loaded, err, _ := s.trendLoads.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trendLoadTimeout)
		defer cancel()

		ts, err := s.repo.Trends(loadCtx, q)
		if err != nil {
			return nil, err
		}

		results := make([]TrendResp, 0, len(ts))
		for _, t := range ts {
			results = append(results, apiTrend(t))
		}
		s.trendCache.Set(key, results)
		return results, nil
	})
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]any{
		"results": loaded.([]TrendResp),
	})
}

func (s Server) getTrendDates(w http.ResponseWriter, r *http.Request) error {
	dates, err := s.repo.AvailableDates(r.Context())
	if err != nil {
		return err
	}
	if dates == nil {
		dates = []string{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, map[string]any{
		"dates": dates,
	})
}

type (
	HistoryEntryResp struct {
		Engagement int64     `json:"engagement"`
		CapturedAt time.Time `json:"capturedAt"`
	}

	GetTrendResp struct {
		Trend   TrendResp          `json:"trend"`
		History []HistoryEntryResp `json:"history"`
	}
)

func (s Server) getTrend(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		id  = mux.Vars(r)["id"]
	)

	t, err := s.repo.Trend(ctx, id)
	if errors.Is(err, trends.ErrNotFound) {
		return tserrs.E(http.StatusNotFound, "trend not found")
	}
	if err != nil {
		return err
	}

	history, err := s.repo.TrendHistory(ctx, id)
	if err != nil {
		return err
	}
	if n := len(history); n > 0 {
		latest := history[n-1].Engagement
		t.CurrentEngagement = &latest
	}

	resp := GetTrendResp{
		Trend:   apiTrend(t),
		History: make([]HistoryEntryResp, 0, len(history)),
	}
	for _, h := range history {
		resp.History = append(resp.History, HistoryEntryResp{
			Engagement: h.Engagement,
			CapturedAt: h.CapturedAt,
		})
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

type PostTrendReq struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    string           `json:"description" validate:"max=1000"`
	Category       string           `json:"category" validate:"required,max=50"`
	Platform       trends.Platform  `json:"platform" validate:"max=50"`
	Engagement     int64            `json:"engagement" validate:"min=0"`
	Rank           int              `json:"rank" validate:"min=1,max=10"`
	TrendDirection trends.Direction `json:"trendDirection" validate:"required,oneof=upward downward"`
}

func (r PostTrendReq) Validate() error {
	return serverutil.ValidateStruct(r)
}

func (s Server) postTrend(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[PostTrendReq](r.Body)
	if err != nil {
		return err
	}

	id, err := s.repo.AddTrend(r.Context(), trends.TrendResult{
		Title:          strings.TrimSpace(body.Title),
		Description:    body.Description,
		Category:       strings.TrimSpace(body.Category),
		Platform:       body.Platform,
		Engagement:     body.Engagement,
		Rank:           body.Rank,
		TrendDirection: body.TrendDirection,
	})
	if err != nil {
		return err
	}
	s.trendCache.Purge()

	return serverutil.WriteJSON(w, http.StatusOK, map[string]string{
		"id": id,
	})
}
