package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dylantarre/trend-spotter/internal/logger"
)

func newRootCommand() *cobra.Command {
	var (
		verbose bool
		cfg     config
	)

	rootCmd := &cobra.Command{
		Use:           "trendspotter",
		Short:         "Track TikTok trends by category",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cmd.Context(), nil)
			if err != nil {
				return err
			}
			cfg = loaded

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), cfg.LoggerFormat, level))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(newServeCommand(&cfg))
	rootCmd.AddCommand(newFetchCommand(&cfg))
	rootCmd.AddCommand(newSignupsCommand(&cfg))

	return rootCmd
}
