package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"pulse/packages/config"
	"pulse/packages/crawler"
	"pulse/packages/discovery"
	"pulse/packages/domain"
	"pulse/packages/extractor"
	"pulse/packages/pipeline"
	"pulse/packages/relevance"
	"pulse/packages/sink"
	"pulse/packages/worker"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// directEnv configures the direct backend with every optional output off,
// so commands never leave the process.
func directEnv(t *testing.T) {
	t.Helper()
	for key, value := range map[string]string{
		"RETRIEVAL_BACKEND":       "direct",
		"FIRECRAWL_API_KEY":       "",
		"SOURCES_FILE":            "",
		"METRICS_ADDR":            "",
		"DATABASE_URL":            "",
		"REDIS_ADDR":              "",
		"MAX_WORKERS":             "",
		"MAX_ARTICLES_PER_SOURCE": "",
		"LOG_FILE":                "",
	} {
		t.Setenv(key, value)
	}
}

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestRootFailsOnUnknownCategory(t *testing.T) {
	directEnv(t)

	err := execute("--sources", "nope")

	assert.True(t, errors.Is(err, config.ErrUnknownCategory), "got %v", err)
}

func TestRootFailsOnMissingCredential(t *testing.T) {
	directEnv(t)
	t.Setenv("RETRIEVAL_BACKEND", "firecrawl")

	err := execute("--sources", "blogs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRECRAWL_API_KEY")
}

func TestRootRejectsNonPositiveWorkers(t *testing.T) {
	for _, value := range []string{"0", "-3"} {
		t.Run(value, func(t *testing.T) {
			directEnv(t)

			err := execute("--max-workers=" + value)

			assert.True(t, errors.Is(err, worker.ErrInvalidWorkerCount), "got %v", err)
		})
	}
}

func TestWatchStopsOnConfigError(t *testing.T) {
	directEnv(t)

	err := execute("watch", "--sources", "nope", "--interval", "1ms")
	assert.True(t, errors.Is(err, config.ErrUnknownCategory), "got %v", err)

	err = execute("watch", "--interval", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--interval")
}

func TestResolveConfigFlagPrecedence(t *testing.T) {
	env := config.Config{MaxWorkers: 20, MaxArticlesPerSource: 8}

	cases := []struct {
		name        string
		args        []string
		wantWorkers int
		wantMax     int
	}{
		{"env wins when flags unset", nil, 20, 8},
		{"explicit flags win", []string{"--max-workers", "3", "--max-articles-per-source", "2"}, 3, 2},
		{"explicit zero is kept", []string{"--max-workers", "0"}, 0, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var flags runFlags
			cmd := &cobra.Command{Use: "pulse"}
			bindRunFlags(cmd, &flags)
			require.NoError(t, cmd.ParseFlags(tc.args))

			got := resolveConfig(cmd, env, flags)

			assert.Equal(t, tc.wantWorkers, got.MaxWorkers)
			assert.Equal(t, tc.wantMax, got.MaxArticlesPerSource)
		})
	}
}

type staticService struct{}

func (staticService) Scrape(context.Context, string, string) (*crawler.Document, error) {
	return &crawler.Document{Title: "Home", Content: "hello"}, nil
}

type countingSink struct{ saved int }

func (s *countingSink) Save(context.Context, *domain.Report) error {
	s.saved++
	return nil
}

func newTestPipeline(t *testing.T, sinks ...sink.Sink) *pipeline.Pipeline {
	t.Helper()
	client, err := crawler.NewClient(staticService{}, 0, 0)
	require.NoError(t, err)
	pool, err := worker.New(client, 2)
	require.NoError(t, err)
	catalog := config.Catalog{"blogs": {{Name: "Example", URL: "https://example.com", Kind: domain.Blog}}}
	orch := discovery.New(pool, extractor.New(extractor.DefaultRules()), 5)
	return pipeline.New(catalog, orch, relevance.New(relevance.DefaultKeywords), sinks...)
}

func TestRunOnceWritesToFallbackWithoutSinks(t *testing.T) {
	p := newTestPipeline(t)
	require.False(t, p.HasSinks())
	var buf bytes.Buffer

	err := runOnce(context.Background(), p, pipeline.Options{Category: "blogs"}, sink.NewJSONWriter(&buf))

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"total_sources": 1`)
	assert.Contains(t, buf.String(), `"successful": 1`)
}

func TestRunOncePublishesToSinks(t *testing.T) {
	s := &countingSink{}
	p := newTestPipeline(t, s)

	require.NoError(t, runOnce(context.Background(), p, pipeline.Options{Category: "blogs"}, nil))
	assert.Equal(t, 1, s.saved)

	err := runOnce(context.Background(), p, pipeline.Options{Category: "nope"}, nil)
	assert.True(t, errors.Is(err, config.ErrUnknownCategory))
	assert.Equal(t, 1, s.saved)
}
