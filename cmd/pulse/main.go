// Package main
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pulse/packages/config"
	"pulse/packages/logging"
	"pulse/packages/metrics"
	"pulse/packages/pipeline"
	"pulse/packages/server"
	"pulse/packages/sink"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type runFlags struct {
	sources        string
	maxWorkers     int
	output         string
	filterRelevant bool
	discover       bool
	maxArticles    int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags runFlags
	cfg := config.Config{}

	root := &cobra.Command{
		Use:           "pulse",
		Short:         "Parallel URL fetching and article discovery for the news digest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				slog.Debug("No .env file found, relying on system environment variables.")
			}
			loaded, err := config.Load()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return err
			}
			cfg = loaded
			logging.Setup(cfg.LogLevel, cfg.LogFile)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), resolveConfig(cmd, cfg, flags), flags)
		},
	}
	bindRunFlags(root, &flags)
	root.Flags().StringVarP(&flags.output, "output", "o", "", "Output JSON file (default: stdout)")

	root.AddCommand(newServeCmd(&cfg), newWatchCmd(&cfg))
	return root
}

func bindRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVar(&flags.sources, "sources", config.AllCategories, "Source category to fetch (all, official, blogs, community)")
	cmd.Flags().IntVar(&flags.maxWorkers, "max-workers", 10, "Maximum parallel workers, overrides MAX_WORKERS")
	cmd.Flags().BoolVar(&flags.filterRelevant, "filter-relevant", false, "Only include results with relevant keywords")
	cmd.Flags().BoolVar(&flags.discover, "discover-articles", false, "Extract and fetch individual articles from blog homepages")
	cmd.Flags().IntVar(&flags.maxArticles, "max-articles-per-source", 5, "Max articles to fetch per source, overrides MAX_ARTICLES_PER_SOURCE")
}

// resolveConfig applies explicitly set flags over the environment config.
// Out-of-range values are kept so that building the pipeline rejects them.
func resolveConfig(cmd *cobra.Command, cfg config.Config, flags runFlags) config.Config {
	if cmd.Flags().Changed("max-workers") {
		cfg.MaxWorkers = flags.maxWorkers
	}
	if cmd.Flags().Changed("max-articles-per-source") {
		cfg.MaxArticlesPerSource = flags.maxArticles
	}
	return cfg
}

func run(parent context.Context, cfg config.Config, flags runFlags) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go metrics.ExposeMetrics(cfg.MetricsAddr)
	}

	p, cleanup, err := build(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		return err
	}
	defer cleanup()

	report, err := p.Run(ctx, pipeline.Options{
		Category:       flags.sources,
		Discover:       flags.discover,
		FilterRelevant: flags.filterRelevant,
	})
	if err != nil {
		slog.Error("Run aborted", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}

	out := sink.NewJSONWriter(os.Stdout)
	if flags.output != "" {
		out = sink.NewJSONFile(flags.output)
	}
	if err := out.Save(ctx, report); err != nil {
		return err
	}
	if flags.output != "" {
		fmt.Fprintf(os.Stderr, "\nResults saved to: %s\n", flags.output)
	}
	_ = p.Publish(context.WithoutCancel(ctx), report)

	line := strings.Repeat("=", 60)
	fmt.Fprintf(os.Stderr, "\n%s\nSUMMARY: %d/%d successful\n%s\n", line, report.Successful, report.TotalSources, line)
	return nil
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pipeline runs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.ServerAddr = addr
			}
			return serve(cmd.Context(), *cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: SERVER_ADDR or :8080)")
	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := build(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           server.New(p).NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "address", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received. Exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
