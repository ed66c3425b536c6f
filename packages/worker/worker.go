// Package worker
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pulse/packages/domain"
	"pulse/packages/metrics"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidWorkerCount = errors.New("worker count must be at least 1")

// Retriever performs one retrieval. Implementations report failures inside
// the returned result.
type Retriever interface {
	Retrieve(ctx context.Context, src domain.Source) domain.FetchResult
}

// Pool runs retrievals with at most maxWorkers in flight.
type Pool struct {
	retriever  Retriever
	maxWorkers int
}

func New(retriever Retriever, maxWorkers int) (*Pool, error) {
	if maxWorkers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, maxWorkers)
	}
	if retriever == nil {
		return nil, errors.New("retriever cannot be nil")
	}
	return &Pool{retriever: retriever, maxWorkers: maxWorkers}, nil
}

func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

// RunAll retrieves every task and returns one result per task in completion
// order. A failing task never cancels its siblings and is not retried.
func (p *Pool) RunAll(ctx context.Context, tasks []domain.Source) []domain.FetchResult {
	total := len(tasks)
	results := make([]domain.FetchResult, 0, total)
	if total == 0 {
		return results
	}

	slog.Info("Dispatching retrievals", "total", total, "workers", p.maxWorkers)

	var (
		mu        sync.Mutex
		completed atomic.Int64
		g         errgroup.Group
	)
	g.SetLimit(p.maxWorkers)

	for _, task := range tasks {
		currentTask := task
		g.Go(func() error {
			result := p.retrieve(ctx, currentTask)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()

			n := completed.Add(1)
			if result.OK() {
				slog.Info("Retrieval finished", "completed", n, "total", total, "status", "OK", "source", currentTask.Name)
			} else {
				slog.Warn("Retrieval finished", "completed", n, "total", total, "status", "FAIL", "source", currentTask.Name, "error", result.Error)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Finished dispatch", "total", total)
	return results
}

func (p *Pool) retrieve(ctx context.Context, src domain.Source) (result domain.FetchResult) {
	start := time.Now()
	metrics.InFlightFetches.Inc()
	defer func() {
		if r := recover(); r != nil {
			result = domain.FetchResult{
				Source:    src,
				Status:    domain.Error,
				Error:     fmt.Sprintf("retrieval panicked: %v", r),
				FetchedAt: time.Now().UTC(),
			}
		}
		if result.Status == domain.Error {
			result.Content = ""
		}
		metrics.InFlightFetches.Dec()
		metrics.FetchDuration.WithLabelValues(string(src.Kind)).Observe(time.Since(start).Seconds())
		metrics.FetchResults.WithLabelValues(string(src.Kind), string(result.Status)).Inc()
	}()
	return p.retriever.Retrieve(ctx, src)
}
