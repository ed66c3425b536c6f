// Package sink delivers finished reports to their destinations.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"pulse/packages/domain"
)

type Sink interface {
	Save(ctx context.Context, report *domain.Report) error
}

// JSONSink writes the report as indented JSON to a file, or to its writer
// when no path is set.
type JSONSink struct {
	path string
	w    io.Writer
}

func NewJSONFile(path string) *JSONSink {
	return &JSONSink{path: path}
}

func NewJSONWriter(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Save(_ context.Context, report *domain.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if s.path != "" {
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			return fmt.Errorf("write report to %s: %w", s.path, err)
		}
		return nil
	}
	w := s.w
	if w == nil {
		w = os.Stdout
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (s *JSONSink) Path() string {
	return s.path
}
