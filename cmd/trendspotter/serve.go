package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dylantarre/trend-spotter/internal/api"
	"github.com/dylantarre/trend-spotter/internal/cache"
	"github.com/dylantarre/trend-spotter/internal/ingest"
	"github.com/dylantarre/trend-spotter/internal/metrics"
	"github.com/dylantarre/trend-spotter/internal/source"
)

func newServeCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and ingest trends on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *cfg)
		},
	}
}

func serve(ctx context.Context, cfg config) error {
	metrics.MustRegister(prometheus.DefaultRegisterer)

	dbx, repo, err := openStore(&cfg)
	if err != nil {
		return err
	}
	defer dbx.Close()

	src, err := source.NewClient(cfg.sourceConfig())
	if err != nil {
		return err
	}
	if cfg.sourceConfig().APIKey == "" {
		// The API still serves what is stored; every pass will fail until a
		// key is configured.
		slog.WarnContext(ctx, "no API key for the trend source, ingestion will fail",
			slog.String("provider", src.Provider()))
	}

	trendCache := api.NewTrendCache(cache.SystemClock)
	srvr := api.NewServer(api.ServerConfig{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
	}, repo, trendCache)

	ingester := ingest.NewIngester(src, repo, trendCache, ingest.Config{
		CategoryDelay: cfg.CategoryDelay,
	})
	scheduler := ingest.NewScheduler(ingester, ingest.SchedulerConfig{
		Cron:       cfg.Schedule,
		Location:   time.UTC,
		RunOnStart: cfg.IngestOnStart,
	})

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		slog.InfoContext(ctx, "listening", slog.Int("port", cfg.Port))
		if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srvr.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "error shutting down server", slog.String("error", err.Error()))
		}
	})

	stop := make(chan struct{})
	g.Add(func() error {
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		<-stop
		return nil
	}, func(error) {
		close(stop)
		graceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownGrace)
		defer cancel()
		if err := scheduler.Stop(graceCtx); err != nil {
			slog.WarnContext(ctx, "ingestion pass cut short by shutdown", slog.String("error", err.Error()))
		}
	})

	return g.Run()
}
