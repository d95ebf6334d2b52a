package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/geonews/internal/logger"
)

func main() {
	var root = &cobra.Command{
		Use:           "geonews",
		Short:         "Location-aware news aggregation and analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init()
		},
	}

	root.AddCommand(serveCMD(), ingestCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
