package main

import (
	"context"
	"fmt"
	"log/slog"

	"pulse/packages/config"
	"pulse/packages/crawler"
	"pulse/packages/db"
	"pulse/packages/discovery"
	"pulse/packages/extractor"
	"pulse/packages/pipeline"
	"pulse/packages/relevance"
	"pulse/packages/sink"
	"pulse/packages/worker"
)

// build wires the pipeline from configuration. The retrieval credential is
// checked here, once, before any task is dispatched.
func build(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	catalog, err := config.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		return nil, cleanup, err
	}

	var service crawler.Service
	switch cfg.Backend {
	case config.BackendDirect:
		service = crawler.NewDirectService(cfg.FetchTimeout)
	default:
		fc, err := crawler.NewFirecrawlService(cfg.FirecrawlAPIURL, cfg.FirecrawlAPIKey, cfg.FetchTimeout)
		if err != nil {
			return nil, cleanup, fmt.Errorf("FIRECRAWL_API_KEY: %w", err)
		}
		service = fc
	}

	client, err := crawler.NewClient(service, cfg.FetchTimeout, cfg.ContentLimit)
	if err != nil {
		return nil, cleanup, err
	}
	pool, err := worker.New(client, cfg.MaxWorkers)
	if err != nil {
		return nil, cleanup, err
	}
	orchestrator := discovery.New(pool, extractor.New(extractor.DefaultRules()), cfg.MaxArticlesPerSource)

	var sinks []sink.Sink
	if cfg.DatabaseURL != "" {
		storage, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Warn("Report archive disabled", "error", err)
		} else {
			closers = append(closers, storage.Close)
			sinks = append(sinks, storage)
		}
	}
	if cfg.RedisAddr != "" {
		rdb, err := sink.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("Redis report publishing disabled", "error", err)
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			sinks = append(sinks, sink.NewRedisSink(rdb, cfg.RedisReportKey, cfg.RedisReportHistory))
		}
	}

	return pipeline.New(catalog, orchestrator, relevance.New(relevance.DefaultKeywords), sinks...), cleanup, nil
}
