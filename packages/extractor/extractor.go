// Package extractor finds candidate article links in fetched markdown.
package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"pulse/packages/domain"
)

// Rules is the pattern table the extractor applies. Each link pattern must
// capture the link title in group 1 and the URL in group 2.
type Rules struct {
	LinkPatterns    []*regexp.Regexp
	ExcludePatterns []*regexp.Regexp
	GenericTitles   []string
	MinTitleLength  int
	MaxTitleLength  int
}

// linkURL matches an absolute http(s) URL or a root-relative path, followed by
// the path shape of each pattern.
const linkURL = `(?:https?://[^)\s]*)?`

// DefaultRules returns the built-in table, in priority order: year paths,
// blog/post/article paths, then hyphenated slugs.
func DefaultRules() Rules {
	return Rules{
		LinkPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\[([^\]]+)\]\((` + linkURL + `/\d{4}/[^)\s]+)(?:\s+"[^"]*")?\)`),
			regexp.MustCompile(`\[([^\]]+)\]\((` + linkURL + `/(?:blog|posts?|p|articles?)/[^)\s]+)(?:\s+"[^"]*")?\)`),
			regexp.MustCompile(`\[([^\]]+)\]\((` + linkURL + `/\w+-\w+-\w+[^)\s]*)(?:\s+"[^"]*")?\)`),
		},
		ExcludePatterns: compileAll(
			`/tag/`, `/category/`, `/author/`, `/page/`, `/archive/`,
			`/about`, `/contact`, `/subscribe`, `/newsletter`, `/feed`,
			`/search`, `/login`, `/signup`, `/privacy`, `/terms`,
			`\.xml$`, `\.rss$`, `\.atom$`, `#`, `\?`,
		),
		GenericTitles:  []string{"read more", "continue reading", "link", "here", "click here"},
		MinTitleLength: 5,
		MaxTitleLength: 200,
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	rules   Rules
	generic map[string]struct{}
}

func New(rules Rules) *Extractor {
	generic := make(map[string]struct{}, len(rules.GenericTitles))
	for _, t := range rules.GenericTitles {
		generic[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Extractor{rules: rules, generic: generic}
}

// Extract returns at most maxLinks article links found in content.
func (e *Extractor) Extract(content, baseURL string, maxLinks int) []domain.ArticleLink {
	return e.ExtractExcluding(content, baseURL, maxLinks, nil)
}

// ExtractExcluding is Extract with an extra predicate; links whose resolved
// URL makes skip return true are dropped before counting toward maxLinks.
func (e *Extractor) ExtractExcluding(content, baseURL string, maxLinks int, skip func(string) bool) []domain.ArticleLink {
	links := []domain.ArticleLink{}
	if maxLinks <= 0 || strings.TrimSpace(content) == "" {
		return links
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return links
	}
	self := strings.TrimRight(base.String(), "/")

	seen := make(map[string]struct{})
	for _, pattern := range e.rules.LinkPatterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			if len(m) < 3 {
				continue
			}
			title, raw := m[1], m[2]

			resolved, ok := e.accept(raw, base)
			if !ok {
				continue
			}
			if _, dup := seen[resolved]; dup {
				continue
			}
			if strings.TrimRight(resolved, "/") == self {
				continue
			}
			if skip != nil && skip(resolved) {
				continue
			}

			title = strings.TrimSpace(title)
			if !e.validTitle(title) {
				continue
			}

			seen[resolved] = struct{}{}
			links = append(links, domain.ArticleLink{
				Title:     title,
				URL:       resolved,
				SourceURL: baseURL,
			})
			if len(links) == maxLinks {
				return links
			}
		}
	}
	return links
}

// accept applies exclusion and domain rules to a raw URL and returns its
// absolute form.
func (e *Extractor) accept(raw string, base *url.URL) (string, bool) {
	for _, exc := range e.rules.ExcludePatterns {
		if exc.MatchString(raw) {
			return "", false
		}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if parsed.Host != "" && parsed.Host != base.Host {
		return "", false
	}
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	if parsed.IsAbs() {
		return raw, true
	}
	return base.ResolveReference(parsed).String(), true
}

func (e *Extractor) validTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	if n < e.rules.MinTitleLength || (e.rules.MaxTitleLength > 0 && n > e.rules.MaxTitleLength) {
		return false
	}
	_, generic := e.generic[strings.ToLower(title)]
	return !generic
}
