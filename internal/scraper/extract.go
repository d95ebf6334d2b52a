package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/deusflow/geonews/internal/logger"
)

// minReadable is the shortest readability result accepted before trying
// the selector-based fallback.
const minReadable = 200

// Page is the extracted text of an article page.
type Page struct {
	Title   string
	Content string
	URL     string
}

type PageExtractor struct {
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

func NewPageExtractor(timeout time.Duration) *PageExtractor {
	return &PageExtractor{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     logger.With("scraper"),
	}
}

// Extract downloads pageURL and returns its main text. Readability runs
// first; common article selectors are the fallback.
func (e *PageExtractor) Extract(ctx context.Context, pageURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := fetchPage(ctx, e.client, pageURL)
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", pageURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil {
		text := normalizeParagraphs(article.TextContent)
		if len(text) >= minReadable {
			return &Page{Title: strings.TrimSpace(article.Title), Content: text, URL: pageURL}, nil
		}
	} else {
		e.log.Debug("readability failed", "url", pageURL, "error", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	content := cleanContent(extractGenericContent(doc))
	if content == "" {
		return nil, fmt.Errorf("can't get content from %s", pageURL)
	}
	return &Page{Title: extractTitle(doc), Content: content, URL: pageURL}, nil
}

// extractGenericContent collects paragraphs from the first selectors that
// yield enough of them.
func extractGenericContent(doc *goquery.Document) string {
	var paragraphs []string

	selectors := []string{
		"article p",
		".article-body p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		".text p",
		"p",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		`meta[property="og:title"]`,
		"title",
		".article-title",
		".headline",
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		title := sel.Text()
		if v, ok := sel.Attr("content"); ok {
			title = v
		}
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	return ""
}

var junkIndicators = []string{
	"cookie", "gdpr", "advertisement", "subscribe to", "sign up for",
	"read more", "click here", "follow us", "share this", "all rights reserved",
}

// cleanContent drops boilerplate lines and short fragments and rejoins the
// rest as paragraphs.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	var kept []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if len(para) <= 30 {
			continue
		}
		lower := strings.ToLower(para)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if !junk {
			kept = append(kept, para)
		}
	}
	return strings.Join(kept, "\n\n")
}

// normalizeParagraphs collapses runs of spaces inside lines and blank-line
// runs between them.
func normalizeParagraphs(text string) string {
	var paras []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			paras = append(paras, line)
		}
	}
	return strings.Join(paras, "\n\n")
}
