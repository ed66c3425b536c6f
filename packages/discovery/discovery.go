// Package discovery sequences homepage retrieval, article link extraction and
// article retrieval into one two-phase run.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pulse/packages/domain"
	"pulse/packages/metrics"
)

var ErrNoBlogSources = errors.New("no blog sources found for article discovery")

// Fetcher retrieves a batch of sources and returns one result per source.
type Fetcher interface {
	RunAll(ctx context.Context, tasks []domain.Source) []domain.FetchResult
}

// LinkExtractor pulls article links out of homepage content.
type LinkExtractor interface {
	ExtractExcluding(content, baseURL string, maxLinks int, skip func(string) bool) []domain.ArticleLink
}

type State string

const (
	// StateNoArticles means no links were discovered; Results holds the homepages.
	StateNoArticles State = "no_articles"
	// StateCompleted means articles were fetched; Results holds the articles.
	StateCompleted State = "completed"
)

type Outcome struct {
	State     State
	Homepages []domain.FetchResult
	Links     []domain.ArticleLink
	Results   []domain.FetchResult
}

type Orchestrator struct {
	fetcher      Fetcher
	extractor    LinkExtractor
	maxPerSource int
}

func New(fetcher Fetcher, extractor LinkExtractor, maxPerSource int) *Orchestrator {
	if maxPerSource < 0 {
		maxPerSource = 0
	}
	return &Orchestrator{fetcher: fetcher, extractor: extractor, maxPerSource: maxPerSource}
}

// Fetch retrieves sources in a single phase.
func (o *Orchestrator) Fetch(ctx context.Context, sources []domain.Source) []domain.FetchResult {
	slog.Info("Fetching sources", "count", len(sources))
	return o.fetcher.RunAll(ctx, sources)
}

// Discover fetches the blog homepages among sources, extracts article links
// from them and fetches those articles. Each stage starts only after the
// previous one has fully drained.
func (o *Orchestrator) Discover(ctx context.Context, sources []domain.Source) (*Outcome, error) {
	blogs := BlogSources(sources)
	if len(blogs) == 0 {
		return nil, ErrNoBlogSources
	}

	slog.Info("Phase 1: fetching blog homepages", "count", len(blogs))
	homepages := o.fetcher.RunAll(ctx, blogs)

	slog.Info("Phase 2: extracting article links")
	links := o.extract(homepages)
	if len(links) == 0 {
		slog.Info("No articles found to fetch")
		return &Outcome{State: StateNoArticles, Homepages: homepages, Results: homepages}, nil
	}

	slog.Info("Phase 3: fetching individual articles", "count", len(links))
	tasks := make([]domain.Source, len(links))
	byURL := make(map[string]domain.ArticleLink, len(links))
	for i, link := range links {
		tasks[i] = link.Source()
		byURL[link.URL] = link
	}

	articles := o.fetcher.RunAll(ctx, tasks)
	for i := range articles {
		if link, ok := byURL[articles[i].URL]; ok {
			articles[i].SourceName = link.SourceName
			articles[i].SourceURL = link.SourceURL
		}
	}

	return &Outcome{State: StateCompleted, Homepages: homepages, Links: links, Results: articles}, nil
}

// extract collects links from every successful homepage. Links pointing at
// any fetched homepage, or already collected from another homepage, are dropped.
func (o *Orchestrator) extract(homepages []domain.FetchResult) []domain.ArticleLink {
	known := make(map[string]struct{}, len(homepages))
	for _, h := range homepages {
		known[normalize(h.URL)] = struct{}{}
	}
	skip := func(u string) bool {
		_, ok := known[normalize(u)]
		return ok
	}

	var all []domain.ArticleLink
	for _, h := range homepages {
		if !h.OK() {
			continue
		}
		links := o.extractor.ExtractExcluding(h.Content, h.URL, o.maxPerSource, skip)
		slog.Info("Extracted article links", "source", h.Name, "found", len(links))
		metrics.DiscoveredLinks.WithLabelValues(h.Name).Add(float64(len(links)))

		for _, link := range links {
			link.SourceName = h.Name
			link.SourceURL = h.URL
			known[normalize(link.URL)] = struct{}{}
			all = append(all, link)
		}
	}
	return all
}

// BlogSources returns the sources of kind blog, preserving order.
func BlogSources(sources []domain.Source) []domain.Source {
	var blogs []domain.Source
	for _, s := range sources {
		if s.Kind == domain.Blog {
			blogs = append(blogs, s)
		}
	}
	return blogs
}

func normalize(u string) string {
	return strings.TrimRight(u, "/")
}
