package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/server"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/telemetry"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ordering API over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdown, err := telemetry.InitTracer(a.cfg.Telemetry.ServiceName, a.cfg.Telemetry.Enabled, nil, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	srv := server.New(server.Options{
		Port:           port,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Sessions:       a.sessions,
		Catalog:        a.catalog,
		Store:          a.store,
		Logger:         a.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, a.cfg.Server.ShutdownTimeout)
	})
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}
