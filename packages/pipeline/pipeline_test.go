package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"pulse/packages/config"
	"pulse/packages/crawler"
	"pulse/packages/discovery"
	"pulse/packages/domain"
	"pulse/packages/extractor"
	"pulse/packages/relevance"
	"pulse/packages/sink"
	"pulse/packages/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageService serves canned documents keyed by URL.
type pageService struct {
	mu    sync.Mutex
	pages map[string]*crawler.Document
	calls []string
}

func (s *pageService) Scrape(_ context.Context, url, _ string) (*crawler.Document, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	doc, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return doc, nil
}

func newPipeline(t *testing.T, svc crawler.Service, catalog config.Catalog, sinks ...sink.Sink) *Pipeline {
	t.Helper()
	client, err := crawler.NewClient(svc, 0, 0)
	require.NoError(t, err)
	pool, err := worker.New(client, 4)
	require.NoError(t, err)
	orch := discovery.New(pool, extractor.New(extractor.DefaultRules()), 5)
	return New(catalog, orch, relevance.New(relevance.DefaultKeywords), sinks...)
}

var testCatalog = config.Catalog{
	"blogs": {
		{Name: "Example Blog", URL: "https://example.com", Kind: domain.Blog},
		{Name: "Down Blog", URL: "https://down.example.com", Kind: domain.Blog},
	},
	"docs": {
		{Name: "Docs", URL: "https://docs.example.com", Kind: domain.Docs},
	},
}

func TestRunFetchesAllSources(t *testing.T) {
	svc := &pageService{pages: map[string]*crawler.Document{
		"https://example.com":      {Title: "Example", Content: "writing about agent tooling"},
		"https://docs.example.com": {Title: "Docs", Content: "reference"},
	}}
	p := newPipeline(t, svc, testCatalog)

	report, err := p.Run(context.Background(), Options{Category: config.AllCategories})

	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalSources)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Results, 3)
}

func TestRunFiltersRelevant(t *testing.T) {
	svc := &pageService{pages: map[string]*crawler.Document{
		"https://example.com":      {Title: "Example", Content: "writing about agent tooling"},
		"https://docs.example.com": {Title: "Docs", Content: "reference"},
	}}
	p := newPipeline(t, svc, testCatalog)

	report, err := p.Run(context.Background(), Options{Category: config.AllCategories, FilterRelevant: true})

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Example Blog", report.Results[0].Name)
	assert.Equal(t, "agent", report.Results[0].RelevanceTag)
	assert.Equal(t, 3, report.TotalSources, "total counts selected sources, not kept results")
	assert.Equal(t, 1, report.Successful)
	assert.Zero(t, report.Failed)
}

func TestRunDiscoversArticles(t *testing.T) {
	home := strings.Join([]string{
		"# Example",
		"[My Great Post](https://example.com/blog/my-great-post)",
		"[Another Long Post](https://example.com/posts/another-long-post)",
		"[Privacy Policy](https://example.com/privacy-policy)",
	}, "\n")
	svc := &pageService{pages: map[string]*crawler.Document{
		"https://example.com":                         {Title: "Example", Content: home},
		"https://example.com/blog/my-great-post":      {Title: "My Great Post", Content: "body"},
		"https://example.com/posts/another-long-post": {Title: "Another", Content: "body"},
	}}
	p := newPipeline(t, svc, testCatalog)

	report, err := p.Run(context.Background(), Options{Category: "blogs", Discover: true})

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 2, report.TotalSources)
	for _, r := range report.Results {
		assert.Equal(t, domain.Article, r.Kind)
		assert.Equal(t, "Example Blog", r.SourceName)
		assert.Equal(t, "https://example.com", r.SourceURL)
		assert.Equal(t, domain.Success, r.Status)
	}
	assert.NotContains(t, svc.calls, "https://example.com/privacy-policy")
}

func TestRunDiscoverWithoutBlogs(t *testing.T) {
	svc := &pageService{}
	p := newPipeline(t, svc, testCatalog)

	_, err := p.Run(context.Background(), Options{Category: "docs", Discover: true})

	assert.True(t, errors.Is(err, discovery.ErrNoBlogSources))
	assert.Empty(t, svc.calls)
}

func TestRunRejectsUnknownAndEmptyCategories(t *testing.T) {
	catalog := config.Catalog{"empty": nil}
	p := newPipeline(t, &pageService{}, catalog)

	_, err := p.Run(context.Background(), Options{Category: "nope"})
	assert.True(t, errors.Is(err, config.ErrUnknownCategory))

	_, err = p.Run(context.Background(), Options{Category: "empty"})
	assert.True(t, errors.Is(err, ErrNoSources))
}

type recordingSink struct {
	err   error
	saved int
}

func (s *recordingSink) Save(context.Context, *domain.Report) error {
	s.saved++
	return s.err
}

func TestPublishContinuesPastFailingSinks(t *testing.T) {
	failing := &recordingSink{err: errors.New("redis down")}
	ok := &recordingSink{}
	p := newPipeline(t, &pageService{}, testCatalog, failing, ok)

	err := p.Publish(context.Background(), domain.NewReport(0, nil))

	require.Error(t, err)
	assert.True(t, p.HasSinks())
	assert.False(t, newPipeline(t, &pageService{}, testCatalog).HasSinks())
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, 1, failing.saved)
	assert.Equal(t, 1, ok.saved)
}
