package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/geonews/internal/app"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/server"
)

const shutdownTimeout = 15 * time.Second

func serveCMD() *cobra.Command {
	var serveAddr string
	var noScheduler bool

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the feed scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.HTTPAddr = serveAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return serveAll(ctx, cfg, a, !noScheduler)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	serve.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without polling feeds")

	return serve
}

// serveAll runs the API and, optionally, the scheduler until ctx ends or
// either of them fails.
func serveAll(ctx context.Context, cfg *config.Config, a *app.App, withScheduler bool) error {
	srv := server.NewServer(cfg, server.DepsFromApp(a))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if withScheduler {
		g.Go(func() error {
			return a.Scheduler.Run(gctx)
		})
	} else {
		logger.Warn("feed scheduler disabled")
	}

	return g.Wait()
}
