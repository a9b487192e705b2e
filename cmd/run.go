package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/metal-toolbox/snatt/internal/api"
	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/log"
	"github.com/metal-toolbox/snatt/internal/metrics"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/profiling"
	"github.com/metal-toolbox/snatt/internal/version"
	"github.com/metal-toolbox/snatt/internal/web"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// component is one long running listener started by run.
type component func(ctx context.Context, cfg *configuration.Configuration) error

func run(ctx context.Context, args *model.Args, components ...component) error {
	log.InitLogger()

	config, err := configuration.Load(args)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}

	slog.Info("Configuration loaded", config.AsLogFields()...)

	log.SetLevel(config.LogLevel)

	// serve metrics endpoint
	metrics.ListenAndServe(config.MetricsAddress)
	version.ExportBuildInfoMetric()

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Cancel the context when we receive a termination signal.
	go func() {
		select {
		case s := <-termChan:
			slog.Info("Received signal for termination, exiting...", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if config.EnableProfiling {
		profiling.Enable(ctx, "")
	}

	ctx, otelShutdown := otelinit.InitOpenTelemetry(ctx, model.AppName)
	defer otelShutdown(context.WithoutCancel(ctx))

	slog.With(version.Current().AsLogFields()...).Info("snatt running")

	g, ctx := errgroup.WithContext(ctx)

	for _, c := range components {
		g.Go(func() error {
			return c(ctx, config)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Exited with error", "error", err)
		return err
	}

	return nil
}

func componentLogger(cfg *configuration.Configuration, name string) *logrus.Entry {
	v := version.Current()

	return log.NewComponentLogger(cfg.LogLevel, name).WithFields(logrus.Fields{
		"version": v.AppVersion,
		"commit":  v.GitCommit,
	})
}

func withAPI(ctx context.Context, cfg *configuration.Configuration) error {
	server, err := api.New(cfg, componentLogger(cfg, "api"))
	if err != nil {
		return err
	}

	return server.ListenAndServe(ctx)
}

func withDashboard(ctx context.Context, cfg *configuration.Configuration) error {
	logger := componentLogger(cfg, "dashboard")

	backend, err := client.New(cfg.Dashboard, logger)
	if err != nil {
		return err
	}

	server, err := web.New(cfg.Dashboard.ListenAddress, backend, logger)
	if err != nil {
		return err
	}

	return server.ListenAndServe(ctx)
}
