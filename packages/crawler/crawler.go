package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxPageBytes = 10 << 20
)

var errClientRendered = errors.New("page is rendered client-side and has no server content")

// DirectService fetches pages itself and renders them as markdown-ish text:
// the readable body followed by one markdown link per anchor.
type DirectService struct {
	client *http.Client
}

func NewDirectService(timeout time.Duration) *DirectService {
	return &DirectService{
		client: &http.Client{Timeout: timeout},
	}
}

func (d *DirectService) Scrape(ctx context.Context, rawURL, format string) (*Document, error) {
	if format != FormatMarkdown {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	slog.Debug("Starting direct fetch", "url", rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Debug("Fetch returned bad status code", "url", rawURL, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	finalURL := resp.Request.URL

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	if isClientRendered(doc) {
		slog.Debug("Detected client-side rendering", "url", rawURL)
		return nil, errClientRendered
	}

	page := &Document{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "meta[name='description']", "meta[property='og:description']"),
	}
	links := markdownLinks(doc, finalURL)

	body := ""
	if article, err := readability.FromReader(bytes.NewReader(bodyBytes), finalURL); err == nil {
		body = strings.TrimSpace(article.TextContent)
		if page.Title == "" {
			page.Title = strings.TrimSpace(article.Title)
		}
	} else {
		slog.Debug("Readability extraction failed, using page text", "url", rawURL, "error", err)
	}
	if body == "" {
		doc.Find("script, style, noscript").Remove()
		body = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}

	if len(links) > 0 {
		page.Content = body + "\n\n" + strings.Join(links, "\n")
	} else {
		page.Content = body
	}
	return page, nil
}

func isClientRendered(doc *goquery.Document) bool {
	if doc.Find("#root, #app, [data-reactroot]").Length() > 0 && len(strings.TrimSpace(doc.Find("body").Text())) < 250 {
		return true
	}
	return doc.Find("template[data-dgst='BAILOUT_TO_CLIENT_SIDE_RENDERING']").Length() > 0
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if val, exists := doc.Find(sel).Attr("content"); exists && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// markdownLinks renders each distinct http(s) anchor as "[text](absolute-url)".
func markdownLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		text = strings.NewReplacer("[", "", "]", "").Replace(text)
		if text == "" {
			return
		}

		resolvedURL, err := base.Parse(href)
		if err != nil || (resolvedURL.Scheme != "http" && resolvedURL.Scheme != "https") {
			return
		}
		resolvedURL.Fragment = ""
		link := resolvedURL.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, "["+text+"]("+link+")")
	})
	slog.Debug("Link rendering found links", "base_url", base.String(), "count", len(links))
	return links
}
