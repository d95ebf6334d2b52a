package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/storage"
)

func migrateCMD() *cobra.Command {
	var dsn string

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dsn = cfg.DatabaseURL
			}
			if dsn == "" {
				return errors.New("postgres not configured (set DATABASE_URL or --dsn)")
			}

			// Opening the store applies the schema.
			store, err := storage.NewPostgresStore(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.Info("schema is up to date")
			return nil
		},
	}
	migrate.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (overrides DATABASE_URL)")

	return migrate
}
