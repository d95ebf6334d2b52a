// Package rss downloads feeds and flattens their items into entries with a
// best-guess image.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/deusflow/geonews/internal/logger"
)

const userAgent = "Mozilla/5.0 (compatible; geonews/1.0)"

// Entry is one feed item reduced to what ingestion needs.
type Entry struct {
	Title       string
	URL         string
	Snippet     string
	PublishedAt *time.Time
	// ImageURL comes from structured feed fields only; empty when none.
	ImageURL string
}

type Fetcher struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

// NewFetcher creates a Fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent
	return &Fetcher{parser: parser, log: logger.With("rss")}
}

// Fetch downloads and parses one feed. Items without a title or link are
// dropped.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]Entry, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing RSS %s: %w", feedURL, err)
	}

	feedImage := ""
	if feed.Image != nil {
		feedImage = strings.TrimSpace(feed.Image.URL)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		e, ok := toEntry(item, feedImage)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}

	f.log.Debug("feed loaded", "url", feedURL, "items", len(feed.Items), "entries", len(entries))
	return entries, nil
}

func toEntry(item *gofeed.Item, feedImage string) (Entry, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = strings.TrimSpace(item.GUID)
	}
	if title == "" || link == "" {
		return Entry{}, false
	}

	e := Entry{
		Title:    title,
		URL:      link,
		Snippet:  plainText(firstNonEmpty(item.Description, item.Content)),
		ImageURL: firstNonEmpty(itemImage(item), feedImage),
	}
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		e.PublishedAt = &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		e.PublishedAt = &t
	}
	return e, true
}

// itemImage picks the item's image in priority order: media:content,
// media:thumbnail, an image enclosure, then the item's own image field.
func itemImage(item *gofeed.Item) string {
	media := item.Extensions["media"]
	if u := mediaURL(media["content"], true); u != "" {
		return u
	}
	for _, group := range media["group"] {
		if u := mediaURL(group.Children["content"], true); u != "" {
			return u
		}
	}
	if u := mediaURL(media["thumbnail"], false); u != "" {
		return u
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	if item.Image != nil {
		return strings.TrimSpace(item.Image.URL)
	}
	return ""
}

func mediaURL(elems []ext.Extension, imagesOnly bool) string {
	for _, el := range elems {
		u := strings.TrimSpace(el.Attrs["url"])
		if u == "" {
			continue
		}
		if imagesOnly {
			typ, medium := el.Attrs["type"], el.Attrs["medium"]
			if typ != "" && !strings.HasPrefix(typ, "image/") {
				continue
			}
			if medium != "" && medium != "image" {
				continue
			}
		}
		return u
	}
	return ""
}

// plainText strips markup from a feed description.
func plainText(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
