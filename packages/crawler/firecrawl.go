package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mendableai/firecrawl-go/v2"
)

// FirecrawlService scrapes pages through the Firecrawl SDK.
type FirecrawlService struct {
	app *firecrawl.FirecrawlApp
}

// NewFirecrawlService returns ErrMissingCredential when apiKey is empty. The
// timeout bounds the SDK's HTTP client; per-task deadlines belong to Client.
func NewFirecrawlService(baseURL, apiKey string, timeout time.Duration) (*FirecrawlService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredential
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	app, err := firecrawl.NewFirecrawlApp(apiKey, strings.TrimRight(baseURL, "/"), timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create firecrawl client: %w", err)
	}
	return &FirecrawlService{app: app}, nil
}

// Scrape honours ctx even though the SDK call itself does not take one: on
// cancellation the result of the in-flight call is discarded.
func (f *FirecrawlService) Scrape(ctx context.Context, url, format string) (*Document, error) {
	type outcome struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		doc, err := f.app.ScrapeURL(url, &firecrawl.ScrapeParams{Formats: []string{format}})
		done <- outcome{doc: doc, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("firecrawl: %w", out.err)
		}
		return toDocument(out.doc)
	}
}

// toDocument is the single normalization step for SDK responses.
func toDocument(doc *firecrawl.FirecrawlDocument) (*Document, error) {
	if doc == nil {
		return nil, errors.New("firecrawl response has no data")
	}
	meta, err := metadataFields(doc.Metadata)
	if err != nil {
		return nil, err
	}
	return &Document{
		Content:     doc.Markdown,
		Title:       metadataString(meta, "title", "ogTitle"),
		Description: metadataString(meta, "description", "ogDescription"),
	}, nil
}

// metadataFields flattens the SDK's metadata struct back into its wire keys
// so that string and list-valued fields go through one lookup.
func metadataFields(meta any) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to read firecrawl metadata: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if string(raw) == "null" {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to read firecrawl metadata: %w", err)
	}
	return fields, nil
}

// metadataString returns the first non-empty value among keys. Metadata
// values arrive either as a string or as a list of strings.
func metadataString(meta map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := meta[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			for _, item := range list {
				if item = strings.TrimSpace(item); item != "" {
					return item
				}
			}
		}
	}
	return ""
}
