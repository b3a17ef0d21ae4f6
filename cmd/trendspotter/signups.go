package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

func newSignupsCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "signups",
		Short: "List newsletter signups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSignups(cmd.Context(), cmd.OutOrStdout(), *cfg)
		},
	}
}

func listSignups(ctx context.Context, out io.Writer, cfg config) error {
	dbx, repo, err := openStore(&cfg)
	if err != nil {
		return err
	}
	defer dbx.Close()

	signups, err := repo.NewsletterSignups(ctx)
	if err != nil {
		return err
	}
	if len(signups) == 0 {
		fmt.Fprintln(out, "No newsletter signups yet.")
		return nil
	}

	fmt.Fprintln(out, renderSignups(signups))
	return nil
}

func renderSignups(signups []trends.NewsletterSignup) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Email", "Name", "Source", "Category", "Signed up"})
	for _, s := range signups {
		tw.AppendRow(table.Row{
			s.Email,
			orDash(s.Name),
			orDash(s.Source),
			orDash(s.TrendCategory),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", len(signups)})

	return tw.Render()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
