// Package scraper fetches article pages: a cheap meta-tag lookup for the
// display image during ingestion, and full-text extraction for analysis.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; geonews/1.0)"
	maxPageBytes = 5 << 20
)

// fetchPage downloads url with the client's timeout bounded further by ctx.
func fetchPage(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// ImageResolver finds an article's display image from its page meta tags.
type ImageResolver struct {
	client  *http.Client
	timeout time.Duration
}

func NewImageResolver(timeout time.Duration) *ImageResolver {
	return &ImageResolver{client: &http.Client{Timeout: timeout}, timeout: timeout}
}

// Resolve returns the og:image, else twitter:image, of pageURL as an
// absolute URL. A page without either yields "" and no error.
func (r *ImageResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := fetchPage(ctx, r.client, pageURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	selectors := []string{
		`meta[property="og:image"]`,
		`meta[name="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	}
	for _, sel := range selectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if content = strings.TrimSpace(content); ok && content != "" {
			return absoluteURL(pageURL, content), nil
		}
	}
	return "", nil
}

func absoluteURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
