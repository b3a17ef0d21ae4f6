// Package api serves the trend listings and newsletter signups over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/dylantarre/trend-spotter/internal/cache"
	"github.com/dylantarre/trend-spotter/internal/metrics"
	"github.com/dylantarre/trend-spotter/internal/serverutil"
	"github.com/dylantarre/trend-spotter/internal/trends"
)

const (
	trendCacheTTL  = 5 * time.Minute
	trendCacheSize = 256

	defaultSignupBurst = 5

	// Upper bound on a shared listing load, which outlives the request that
	// started it.
	trendLoadTimeout = 10 * time.Second
)

// One signup every six seconds per client once the burst is spent.
var defaultSignupLimit = rate.Every(6 * time.Second)

type (
	// Server is the HTTP API for the browser client.
	Server struct {
		*http.Server

		repo       trends.Repository
		clock      cache.Clock
		trendCache *cache.TTL[[]TrendResp]
		// Collapses concurrent cache misses for the same listing.
		trendLoads *singleflight.Group
	}

	ServerConfig struct {
		Port           int
		AllowedOrigins []string

		// Decides what "today" is for listings without a date.
		Clock cache.Clock

		// Per client IP limit on newsletter signups.
		SignupLimit rate.Limit
		SignupBurst int
	}
)

// NewTrendCache creates the cache for trend listings. It is shared with the
// ingester, which purges it after storing new trends.
func NewTrendCache(clock cache.Clock) *cache.TTL[[]TrendResp] {
	c, err := cache.New[[]TrendResp](trendCacheSize, trendCacheTTL, clock)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	return c
}

func NewServer(config ServerConfig, repo trends.Repository, trendCache *cache.TTL[[]TrendResp]) *Server {
	if trendCache == nil {
		trendCache = NewTrendCache(nil)
	}
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	if config.Clock == nil {
		config.Clock = cache.SystemClock
	}
	if config.SignupLimit == 0 {
		config.SignupLimit = defaultSignupLimit
	}
	if config.SignupBurst == 0 {
		config.SignupBurst = defaultSignupBurst
	}

	var (
		r    = serverutil.ErrRouter{Router: mux.NewRouter()}
		srvr = Server{
			repo:       repo,
			clock:      config.Clock,
			trendCache: trendCache,
			trendLoads: &singleflight.Group{},
		}
	)
	signupLimiter := newRateLimiter(config.SignupLimit, config.SignupBurst)

	chain := alice.New(
		serverutil.AccessLogMiddleware, // Log everything
		handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"content-type", "accept"}),
			handlers.OptionStatusCode(http.StatusNoContent),
		),
	)

	srvr.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      chain.Then(r),
	}

	r.HandleFuncE("/api/trends", srvr.getTrends).Methods(http.MethodGet)
	r.HandleFuncE("/api/trends", srvr.postTrend).Methods(http.MethodPost)
	r.HandleFuncE("/api/trends/dates", srvr.getTrendDates).Methods(http.MethodGet)
	r.HandleFuncE("/api/trends/{id}", srvr.getTrend).Methods(http.MethodGet)
	r.Handle("/api/newsletter/signup", signupLimiter.middleware(
		serverutil.HandlerFuncE(srvr.postNewsletterSignup),
	)).Methods(http.MethodPost)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	slog.Debug("configured api server", "port", config.Port, "origins", origins)

	return &srvr
}
