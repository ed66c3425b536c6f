// Package db archives finished reports in PostgreSQL. Nothing here is read
// back by the pipeline.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"pulse/packages/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS pulse_runs (
	id            BIGSERIAL PRIMARY KEY,
	fetched_at    TIMESTAMPTZ NOT NULL,
	total_sources INTEGER NOT NULL,
	successful    INTEGER NOT NULL,
	failed        INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS pulse_results (
	run_id           BIGINT NOT NULL REFERENCES pulse_runs(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	url              TEXT NOT NULL,
	kind             TEXT NOT NULL,
	status           TEXT NOT NULL,
	title            TEXT,
	description      TEXT,
	content          TEXT,
	error            TEXT,
	language         TEXT,
	relevant_keyword TEXT,
	source_name      TEXT,
	source_url       TEXT,
	fetched_at       TIMESTAMPTZ NOT NULL
);`

var resultColumns = []string{
	"run_id", "name", "url", "kind", "status", "title", "description", "content",
	"error", "language", "relevant_keyword", "source_name", "source_url", "fetched_at",
}

type Storage struct {
	DB *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	s := &Storage{DB: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return s, nil
}

func (s *Storage) Close() {
	s.DB.Close()
}

func (s *Storage) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return fn(tx)
}

// Save inserts the run summary and bulk-copies its results.
func (s *Storage) Save(ctx context.Context, report *domain.Report) error {
	err := s.WithTransaction(ctx, func(tx pgx.Tx) error {
		var runID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO pulse_runs (fetched_at, total_sources, successful, failed) VALUES ($1, $2, $3, $4) RETURNING id`,
			report.FetchedAt, report.TotalSources, report.Successful, report.Failed,
		).Scan(&runID)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		if len(report.Results) == 0 {
			return nil
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"pulse_results"}, resultColumns, pgx.CopyFromRows(resultRows(runID, report.Results))); err != nil {
			return fmt.Errorf("failed to bulk insert results: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Error("DB Writer: Transaction failed", "error", err)
		return err
	}
	slog.Info("DB Writer: Saved report", "results", len(report.Results))
	return nil
}

func resultRows(runID int64, results []domain.FetchResult) [][]any {
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		rows = append(rows, []any{
			runID, r.Name, r.URL, string(r.Kind), string(r.Status),
			nullable(r.Title), nullable(r.Description), nullable(r.Content),
			nullable(r.Error), nullable(r.Language), nullable(r.RelevanceTag),
			nullable(r.SourceName), nullable(r.SourceURL), r.FetchedAt,
		})
	}
	return rows
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
