package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dylantarre/trend-spotter/internal/ingest"
	"github.com/dylantarre/trend-spotter/internal/source"
	"github.com/dylantarre/trend-spotter/internal/trends"
)

func newFetchCommand(cfg *config) *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one ingestion pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetch(cmd.Context(), cmd.OutOrStdout(), *cfg, categories)
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Only ingest these categories (default: the whole catalog)")

	return cmd
}

func fetch(ctx context.Context, out io.Writer, cfg config, categories []string) error {
	sc := cfg.sourceConfig()
	if sc.APIKey == "" {
		return source.ErrMissingAPIKey
	}
	src, err := source.NewClient(sc)
	if err != nil {
		return err
	}

	dbx, repo, err := openStore(&cfg)
	if err != nil {
		return err
	}
	defer dbx.Close()

	if len(categories) == 0 {
		categories = trends.Categories
	}
	ingester := ingest.NewIngester(src, repo, nil, ingest.Config{
		Categories:    categories,
		CategoryDelay: cfg.CategoryDelay,
	})
	summary := ingester.RunPass(ctx)

	printSummary(out, summary)
	if len(summary.Failed) == summary.Categories && summary.Categories > 0 {
		return errors.New("every category failed")
	}
	return ctx.Err()
}

func printSummary(out io.Writer, s ingest.PassSummary) {
	fmt.Fprintf(out, "Categories: %d (%d failed)\n", s.Categories, len(s.Failed))
	if len(s.Failed) > 0 {
		fmt.Fprintf(out, "Failed:     %s\n", strings.Join(s.Failed, ", "))
	}
	fmt.Fprintf(out, "Stored:     %d\n", s.Stored)
	fmt.Fprintf(out, "Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(out, "Duration:   %s\n", s.Duration.Round(100*time.Millisecond))
}
