// Package crawler retrieves page content through a pluggable scrape service and
// normalizes every outcome into a domain.FetchResult.
package crawler

import (
	"context"
	"errors"
)

// FormatMarkdown is the only content format the pipeline consumes.
const FormatMarkdown = "markdown"

var ErrMissingCredential = errors.New("retrieval credential is not configured")

// Document is the normalized shape of a scrape response. Backends map their
// own payloads into it before anything downstream sees them.
type Document struct {
	Content     string
	Title       string
	Description string
}

// Service is the external retrieval capability.
type Service interface {
	Scrape(ctx context.Context, url, format string) (*Document, error)
}
