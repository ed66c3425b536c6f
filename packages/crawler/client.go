package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"pulse/packages/domain"
)

// Client wraps a Service and converts every outcome into a FetchResult.
// It is safe for concurrent use; its fields are never mutated after New.
type Client struct {
	service      Service
	timeout      time.Duration
	contentLimit int
	now          func() time.Time
}

// NewClient returns a Client. A zero timeout leaves timing to the service, and a
// contentLimit <= 0 disables truncation.
func NewClient(service Service, timeout time.Duration, contentLimit int) (*Client, error) {
	if service == nil {
		return nil, ErrMissingCredential
	}
	return &Client{
		service:      service,
		timeout:      timeout,
		contentLimit: contentLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Retrieve fetches one source. It never returns an error: failures, including
// panics inside the service, become results with Status domain.Error.
func (c *Client) Retrieve(ctx context.Context, src domain.Source) (result domain.FetchResult) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Retrieval panicked", "url", src.URL, "panic", p)
			result = c.failure(src, fmt.Errorf("retrieval panicked: %v", p))
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	doc, err := c.service.Scrape(ctx, src.URL, FormatMarkdown)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		return c.failure(src, err)
	}
	if doc == nil {
		return c.failure(src, errors.New("retrieval service returned an empty response"))
	}

	title := doc.Title
	if title == "" {
		title = src.Name
	}
	content := truncate(doc.Content, c.contentLimit)
	return domain.FetchResult{
		Source:      src,
		Status:      domain.Success,
		Content:     content,
		Title:       title,
		Description: doc.Description,
		FetchedAt:   c.now(),
		Language:    DetectLanguage(title, doc.Description, content),
	}
}

func (c *Client) failure(src domain.Source, err error) domain.FetchResult {
	return domain.FetchResult{
		Source:    src,
		Status:    domain.Error,
		Error:     err.Error(),
		FetchedAt: c.now(),
	}
}

// truncate caps s at limit characters.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
