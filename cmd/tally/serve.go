package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/log"
	"tally/internal/worker"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: "Serve exposes records, spend breakdowns, drill-downs and upcoming " +
			"charges over HTTP. With AMQP_URL set, writes are announced to other " +
			"processes and their announcements refresh this server's caches.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	res, err := a.open(parent)
	if err != nil {
		return err
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + a.cfg.Port,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		CacheSize:          a.cfg.CacheSize,
		CacheTTL:           a.cfg.CacheTTL,
		Logger:             a.logger,
	}, res.Backend, res.Records, res.Spend)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	ctx, done := cli.GracefulShutdown(ctx, a.logger, shutdownTimeout, srv.Shutdown)
	srv.Caches().StartCleanup(ctx, cacheCleanupInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting tally server",
			"port", a.cfg.Port,
			"backend", a.cfg.DataBackend,
			"amqp_enabled", res.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if res.AMQP != nil {
		refresher := worker.NewRefreshWorker(res.AMQP, srv.Caches())
		g.Go(func() error {
			// The API keeps serving without the worker; cache TTLs bound staleness.
			if err := refresher.Run(gctx); err != nil {
				a.logger.WithComponent(log.ComponentWorker).Error("Refresh worker stopped", log.FieldError, err)
			}
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		log.LogError(ctx, "Server stopped with error", err, log.ComponentApp, log.OpShutdown, nil)
	}
	cancel()
	<-done
	a.logger.Info("Server stopped")
	return err
}
