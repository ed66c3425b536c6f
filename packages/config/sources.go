package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"pulse/packages/domain"

	"gopkg.in/yaml.v3"
)

// AllCategories selects every category of a catalog.
const AllCategories = "all"

var ErrUnknownCategory = errors.New("unknown source category")

// Catalog groups sources by category name.
type Catalog map[string][]domain.Source

// categoryOrder is the dispatch order of the built-in categories.
var categoryOrder = []string{"official", "blogs", "community"}

// DefaultCatalog returns the built-in source list.
func DefaultCatalog() Catalog {
	return Catalog{
		"official": {
			{Name: "Anthropic Engineering", URL: "https://www.anthropic.com/engineering", Kind: domain.Blog},
			{Name: "Claude Blog", URL: "https://claude.ai/blog", Kind: domain.Blog},
			{Name: "Claude Code Docs", URL: "https://code.claude.com", Kind: domain.Docs},
		},
		"blogs": {
			{Name: "Simon Willison", URL: "https://simonwillison.net", Kind: domain.Blog},
			{Name: "Every", URL: "https://every.to", Kind: domain.Blog},
			{Name: "SSHH Blog", URL: "https://blog.sshh.io", Kind: domain.Blog},
			{Name: "Lee Han Chung", URL: "https://leehanchung.github.io", Kind: domain.Blog},
			{Name: "Nick Nisi", URL: "https://nicknisi.com", Kind: domain.Blog},
			{Name: "HumanLayer", URL: "https://www.humanlayer.dev/blog", Kind: domain.Blog},
			{Name: "Chris Dzombak", URL: "https://www.dzombak.com/blog", Kind: domain.Blog},
			{Name: "GitButler", URL: "https://blog.gitbutler.com", Kind: domain.Blog},
			{Name: "Docker Blog", URL: "https://www.docker.com/blog", Kind: domain.Blog},
			{Name: "Nx Blog", URL: "https://nx.dev/blog", Kind: domain.Blog},
			{Name: "Yee Fei Ooi", URL: "https://medium.com/@ooi_yee_fei", Kind: domain.Blog},
		},
		"community": {
			{Name: "SkillsMP", URL: "https://skillsmp.com", Kind: domain.Marketplace},
			{Name: "Awesome Claude AI", URL: "https://awesomeclaude.ai", Kind: domain.Directory},
		},
	}
}

// LoadCatalog reads a YAML catalog of the form
//
//	blogs:
//	  - name: Example
//	    url: https://example.com
//	    type: blog
//
// An empty path returns the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	for category, sources := range catalog {
		for i, src := range sources {
			if src.URL == "" {
				return nil, fmt.Errorf("sources file %s: %s[%d] has no url", path, category, i)
			}
			if src.Name == "" {
				catalog[category][i].Name = src.URL
			}
		}
	}
	return catalog, nil
}

// Categories returns the built-in category names present in c, in their
// fixed order, followed by any other names sorted.
func (c Catalog) Categories() []string {
	names := make([]string, 0, len(c))
	known := make(map[string]struct{}, len(categoryOrder))
	for _, name := range categoryOrder {
		known[name] = struct{}{}
		if _, ok := c[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range c {
		if _, ok := known[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Select resolves a category name, or AllCategories, to its sources.
func (c Catalog) Select(category string) ([]domain.Source, error) {
	if category == "" || category == AllCategories {
		var all []domain.Source
		for _, name := range c.Categories() {
			all = append(all, c[name]...)
		}
		return all, nil
	}
	sources, ok := c[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return append([]domain.Source(nil), sources...), nil
}
