// Package relevance keeps results that mention a keyword of a fixed taxonomy.
package relevance

import (
	"strings"

	"pulse/packages/domain"
)

// DefaultKeywords is the built-in taxonomy, in match priority order.
var DefaultKeywords = []string{
	"claude", "claude code", "anthropic", "mcp", "model context protocol",
	"agent", "skill", "subagent", "cli", "terminal", "prompt engineering",
	"cursor", "windsurf", "copilot", "aider", "coding assistant", "hooks",
}

type Filter struct {
	keywords []string
	lowered  []string
}

func New(keywords []string) *Filter {
	f := &Filter{keywords: append([]string(nil), keywords...)}
	for _, k := range f.keywords {
		f.lowered = append(f.lowered, strings.ToLower(k))
	}
	return f
}

func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}

// Apply returns copies of the successful results whose content, title or
// description contain a keyword, tagged with the first keyword that matched.
// Order is preserved and the input is not modified.
func (f *Filter) Apply(results []domain.FetchResult) []domain.FetchResult {
	relevant := make([]domain.FetchResult, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			continue
		}
		if tag, ok := f.Match(r); ok {
			r.RelevanceTag = tag
			relevant = append(relevant, r)
		}
	}
	return relevant
}

// Match reports the first keyword found in the result's text.
func (f *Filter) Match(r domain.FetchResult) (string, bool) {
	text := strings.ToLower(r.Content + " " + r.Title + " " + r.Description)
	for i, k := range f.lowered {
		if k != "" && strings.Contains(text, k) {
			return f.keywords[i], true
		}
	}
	return "", false
}
