package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pulse/packages/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIRECRAWL_API_KEY", "fc-test")
	t.Setenv("RETRIEVAL_BACKEND", "")
	os.Unsetenv("RETRIEVAL_BACKEND")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendFirecrawl, cfg.Backend)
	assert.Equal(t, "fc-test", cfg.FirecrawlAPIKey)
	assert.Equal(t, "https://api.firecrawl.dev", cfg.FirecrawlAPIURL)
	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 5, cfg.MaxArticlesPerSource)
	assert.Equal(t, 50000, cfg.ContentLimit)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	t.Setenv("FIRECRAWL_API_KEY", "fc-test")
	t.Setenv("MAX_WORKERS", "20")
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")
	t.Setenv("CONTENT_LIMIT", "abc")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxWorkers)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 50000, cfg.ContentLimit)
}

func TestLoadRequiresCredentialForFirecrawl(t *testing.T) {
	t.Setenv("RETRIEVAL_BACKEND", "firecrawl")
	t.Setenv("FIRECRAWL_API_KEY", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRECRAWL_API_KEY")
}

func TestLoadDirectBackendNeedsNoCredential(t *testing.T) {
	t.Setenv("RETRIEVAL_BACKEND", "direct")
	t.Setenv("FIRECRAWL_API_KEY", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendDirect, cfg.Backend)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("RETRIEVAL_BACKEND", "carrier-pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestCatalogSelect(t *testing.T) {
	catalog := DefaultCatalog()

	blogs, err := catalog.Select("blogs")
	require.NoError(t, err)
	assert.Len(t, blogs, 11)

	all, err := catalog.Select(AllCategories)
	require.NoError(t, err)
	require.Len(t, all, 16)
	assert.Equal(t, "Anthropic Engineering", all[0].Name)
	assert.Equal(t, "Simon Willison", all[3].Name)
	assert.Equal(t, "SkillsMP", all[14].Name)

	_, err = catalog.Select("podcasts")
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
blogs:
  - name: Example
    url: https://example.com
    type: blog
  - url: https://unnamed.example.com
    type: blog
docs:
  - name: Reference
    url: https://docs.example.com
    type: docs
`), 0o600))

	catalog, err := LoadCatalog(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"blogs", "docs"}, catalog.Categories())
	assert.Equal(t, domain.Source{Name: "Example", URL: "https://example.com", Kind: domain.Blog}, catalog["blogs"][0])
	assert.Equal(t, "https://unnamed.example.com", catalog["blogs"][1].Name)
	assert.Equal(t, domain.Docs, catalog["docs"][0].Kind)
}

func TestLoadCatalogRejectsMissingURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blogs:\n  - name: Broken\n"), 0o600))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestLoadCatalogDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, []string{"official", "blogs", "community"}, catalog.Categories())
}

func TestCategoriesPutsCustomNamesLast(t *testing.T) {
	catalog := Catalog{"zines": nil, "blogs": nil, "docs": nil, "official": nil}
	assert.Equal(t, []string{"official", "blogs", "docs", "zines"}, catalog.Categories())
}
