package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse/packages/config"
	"pulse/packages/metrics"
	"pulse/packages/pipeline"
	"pulse/packages/sink"

	"github.com/spf13/cobra"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	var (
		flags    runFlags
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline on a fixed interval and publish every report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			return watch(cmd.Context(), resolveConfig(cmd, *cfg, flags), flags, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "Time between runs")
	bindRunFlags(cmd, &flags)
	return cmd
}

func watch(parent context.Context, cfg config.Config, flags runFlags, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("--- Starting Pulse Watcher ---", "interval", interval.String(), "sources", flags.sources)

	if cfg.MetricsAddr != "" {
		go metrics.ExposeMetrics(cfg.MetricsAddr)
	}

	p, cleanup, err := build(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		return err
	}
	defer cleanup()

	var fallback sink.Sink
	if !p.HasSinks() {
		slog.Warn("No report sink configured, writing reports to stdout")
		fallback = sink.NewJSONWriter(os.Stdout)
	}

	opts := pipeline.Options{
		Category:       flags.sources,
		Discover:       flags.discover,
		FilterRelevant: flags.filterRelevant,
	}

	// A configuration error will not fix itself between ticks.
	if err := runOnce(ctx, p, opts, fallback); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutdown signal received. Exiting...")
			return nil
		case <-ticker.C:
			if err := runOnce(ctx, p, opts, fallback); err != nil {
				return err
			}
		}
	}
}

// runOnce runs and publishes one report. fallback, when set, receives the
// report instead of the pipeline's own sinks.
func runOnce(ctx context.Context, p *pipeline.Pipeline, opts pipeline.Options, fallback sink.Sink) error {
	report, err := p.Run(ctx, opts)
	if err != nil {
		slog.Error("Run aborted", "error", err)
		return err
	}
	if fallback != nil {
		if err := fallback.Save(ctx, report); err != nil {
			slog.Error("Failed to write report", "error", err)
		}
		return nil
	}
	if err := p.Publish(context.WithoutCancel(ctx), report); err != nil {
		slog.Error("Failed to publish report", "error", err)
	}
	return nil
}
