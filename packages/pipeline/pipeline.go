// Package pipeline runs one end-to-end pass: select sources, fetch or
// discover, filter, and summarize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pulse/packages/config"
	"pulse/packages/discovery"
	"pulse/packages/domain"
	"pulse/packages/metrics"
	"pulse/packages/relevance"
	"pulse/packages/sink"
)

var ErrNoSources = errors.New("no sources found for category")

type Options struct {
	Category       string `json:"sources"`
	Discover       bool   `json:"discover_articles"`
	FilterRelevant bool   `json:"filter_relevant"`
}

type Pipeline struct {
	catalog      config.Catalog
	orchestrator *discovery.Orchestrator
	filter       *relevance.Filter
	sinks        []sink.Sink
}

func New(catalog config.Catalog, orchestrator *discovery.Orchestrator, filter *relevance.Filter, sinks ...sink.Sink) *Pipeline {
	return &Pipeline{
		catalog:      catalog,
		orchestrator: orchestrator,
		filter:       filter,
		sinks:        sinks,
	}
}

func (p *Pipeline) Catalog() config.Catalog {
	return p.catalog
}

// HasSinks reports whether Publish delivers reports anywhere.
func (p *Pipeline) HasSinks() bool {
	return len(p.sinks) > 0
}

// Run returns an error only for configuration-class failures. Retrieval
// failures are reported inside the report.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*domain.Report, error) {
	sources, err := p.catalog.Select(opts.Category)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, opts.Category)
	}

	var (
		results []domain.FetchResult
		state   = "fetched"
	)
	if opts.Discover {
		outcome, err := p.orchestrator.Discover(ctx, sources)
		if err != nil {
			metrics.Runs.WithLabelValues("config_error").Inc()
			return nil, err
		}
		results = outcome.Results
		state = string(outcome.State)
	} else {
		results = p.orchestrator.Fetch(ctx, sources)
	}

	if opts.FilterRelevant && p.filter != nil {
		results = p.filter.Apply(results)
		slog.Info("Filtered to relevant results", "count", len(results))
	}

	report := domain.NewReport(len(sources), results)
	metrics.Runs.WithLabelValues(state).Inc()
	slog.Info("SUMMARY", "successful", report.Successful, "total", report.TotalSources, "failed", report.Failed, "state", state)
	return report, nil
}

// Publish hands the report to every configured sink. A failing sink does not
// stop the others.
func (p *Pipeline) Publish(ctx context.Context, report *domain.Report) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Save(ctx, report); err != nil {
			slog.Error("Failed to publish report", "sink", fmt.Sprintf("%T", s), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
