package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/geonews/internal/app"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/logger"
)

func ingestCMD() *cobra.Command {
	var asJSON bool

	var ingest = &cobra.Command{
		Use:   "ingest",
		Short: "Poll every feed once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.Scheduler.RunOnce(ctx)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			logger.Info("ingest finished",
				"sources", stats.Sources,
				"stored", stats.Stored,
				"duplicates", stats.Duplicates,
				"no_image", stats.NoImage,
				"errors", stats.Errors,
				"purged", stats.Purged,
				"duration", stats.Duration)
			return nil
		},
	}
	ingest.Flags().BoolVar(&asJSON, "json", false, "print cycle stats as JSON")

	return ingest
}
