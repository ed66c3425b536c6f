// Package domain
package domain

import "time"

type Kind string

const (
	Blog        Kind = "blog"
	Docs        Kind = "docs"
	Marketplace Kind = "marketplace"
	Directory   Kind = "directory"
	Article     Kind = "article"
)

type Status string

const (
	Success Status = "success"
	Error   Status = "error"
)

// Source is a named, typed URL to retrieve. Its identity is the URL.
type Source struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
	Kind Kind   `json:"type" yaml:"type"`
}

// FetchResult is the outcome of one retrieval attempt. Results with
// Status Error never carry Content.
type FetchResult struct {
	Source
	Status       Status    `json:"status"`
	Content      string    `json:"content,omitempty"`
	Title        string    `json:"title,omitempty"`
	Description  string    `json:"description,omitempty"`
	Error        string    `json:"error,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Language     string    `json:"language,omitempty"`
	RelevanceTag string    `json:"relevant_keyword,omitempty"`
	SourceName   string    `json:"source_name,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
}

func (r FetchResult) OK() bool {
	return r.Status == Success
}

// ArticleLink is a candidate article discovered inside a homepage.
type ArticleLink struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
}

// Source promotes the link to a retrievable article source.
func (l ArticleLink) Source() Source {
	return Source{Name: l.Title, URL: l.URL, Kind: Article}
}

type Report struct {
	FetchedAt    time.Time     `json:"fetched_at"`
	TotalSources int           `json:"total_sources"`
	Successful   int           `json:"successful"`
	Failed       int           `json:"failed"`
	Results      []FetchResult `json:"results"`
}

func NewReport(totalSources int, results []FetchResult) *Report {
	report := &Report{
		FetchedAt:    time.Now().UTC(),
		TotalSources: totalSources,
		Results:      results,
	}
	if report.Results == nil {
		report.Results = []FetchResult{}
	}
	for _, r := range results {
		if r.OK() {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	return report
}
