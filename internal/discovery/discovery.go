// Package discovery serves context-aware article pages: it queries the
// store tier by tier (city to global), ranks what it finds and pages
// through the ranked set with an opaque cursor.
//
// Every page of one walk is computed against the same snapshot time, which
// the cursor carries as "as_of": tier queries only see articles created at
// or before it, and recency is scored from it. The collected set, and so
// the ranked order, is therefore identical for every page of the walk.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/metrics"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
	"github.com/deusflow/geonews/internal/ranking"
	"github.com/deusflow/geonews/internal/storage"
)

const (
	DefaultMaxCollection = 300
	EmptyMessage         = "No articles available yet"

	asOfKey = "as_of"
)

// Item is one article on a discovery page.
type Item struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Summary          string      `json:"summary"`
	URL              string      `json:"original_url"`
	ImageURL         string      `json:"image_url"`
	Source           string      `json:"source"`
	Language         string      `json:"language"`
	Country          string      `json:"country"`
	Category         string      `json:"category"`
	InferredCategory string      `json:"inferred_category,omitempty"`
	SubCategory      string      `json:"sub_category,omitempty"`
	PublishedAt      *time.Time  `json:"published_date,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	Analyzed         bool        `json:"analyzed"`
	Score            int         `json:"score"`
	Tier             models.Tier `json:"tier"`
}

type Page struct {
	Items      []Item         `json:"articles"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
	Empty      bool           `json:"empty"`
	Message    string         `json:"message,omitempty"`
	Context    models.Context `json:"context"`
}

type tier struct {
	level models.Tier
	field storage.GeoField
	value string
}

type Fetcher struct {
	store         storage.ArticleStore
	paginator     *pagination.Paginator
	maxCollection int
	now           func() time.Time
	log           *slog.Logger
}

type Option func(*Fetcher)

// WithClock replaces time.Now as the source of snapshot times.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a Fetcher serving pages of at most maxLimit items and
// collecting at most maxCollection candidates per page.
func NewFetcher(store storage.ArticleStore, maxLimit, maxCollection int, opts ...Option) *Fetcher {
	if maxCollection <= 0 {
		maxCollection = DefaultMaxCollection
	}
	f := &Fetcher{
		store:         store,
		paginator:     pagination.New(maxLimit, ranking.Order.Sort()...),
		maxCollection: maxCollection,
		now:           time.Now,
		log:           logger.With("discovery"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ClampLimit exposes the page size policy.
func (f *Fetcher) ClampLimit(requested int) int {
	return f.paginator.ClampLimit(requested)
}

// tiers lists the store queries for c, most specific first. The global
// tier is always last.
func tiers(c models.Context) []tier {
	var out []tier
	if c.City != "" {
		out = append(out, tier{models.ScopeCity, storage.GeoCity, c.City})
	}
	if c.State != "" {
		out = append(out, tier{models.ScopeState, storage.GeoState, c.State})
	}
	if c.Country != "" {
		out = append(out, tier{models.ScopeCountry, storage.GeoCountry, c.Country})
	}
	if c.Continent != "" {
		out = append(out, tier{models.ScopeContinent, storage.GeoContinent, c.Continent})
	}
	return append(out, tier{models.ScopeGlobal, storage.GeoNone, ""})
}

// Fetch returns one page for c. An invalid cursor is reported wrapped in
// pagination.ErrInvalidCursor; an empty result is a normal page.
func (f *Fetcher) Fetch(ctx context.Context, c models.Context) (*Page, error) {
	metrics.Global.IncrementDiscovery(string(c.Scope))

	limit := f.paginator.ClampLimit(c.Limit)
	c.Limit = limit

	cursor, err := f.paginator.Decode(c.Cursor)
	if err != nil {
		return nil, err
	}

	asOf := f.now().UTC()
	if cursor != nil {
		if t, ok := cursor.Time(asOfKey); ok {
			asOf = t
		}
	}

	ts := tiers(c)
	budget := max(f.maxCollection, len(ts)*(limit+1))

	seen := make(map[string]struct{})
	var kept []ranking.Ranked

collect:
	for _, t := range ts {
		remaining := budget - len(seen)
		if remaining <= 0 {
			break
		}

		rows, err := f.store.QueryArticles(ctx, storage.ArticleQuery{
			GeoField:      t.field,
			GeoValue:      t.value,
			Languages:     c.Languages,
			Category:      c.Category,
			Source:        c.Source,
			Analyzed:      c.Analyzed,
			CreatedBefore: asOf,
			Limit:         remaining,
		})
		if err != nil {
			return nil, fmt.Errorf("query %s tier: %w", t.level, err)
		}

		for i := range rows {
			a := rows[i]
			if _, dup := seen[a.ID]; dup {
				continue
			}
			// Marked before the cursor check so a later tier cannot
			// resurrect an item already placed on an earlier page.
			seen[a.ID] = struct{}{}

			r := ranking.Ranked{Article: a, Tier: t.level, Score: ranking.Score(&a, c, t.level, asOf)}
			if f.paginator.After(cursor, r.Key()) {
				kept = append(kept, r)
			}
			if len(seen) >= budget {
				break collect
			}
		}
	}

	ranking.Sort(kept)

	page := &Page{Context: c, Items: []Item{}}
	if len(kept) > limit {
		page.HasMore = true
		kept = kept[:limit]
	}
	for _, r := range kept {
		page.Items = append(page.Items, toItem(r))
	}

	if page.HasMore {
		key := kept[len(kept)-1].Key()
		key[asOfKey] = asOf
		if page.NextCursor, err = f.paginator.Encode(key); err != nil {
			return nil, err
		}
	}

	if len(page.Items) == 0 {
		page.Empty = true
		page.Message = EmptyMessage
	}

	f.log.Debug("discovery page served",
		"scope", c.Scope,
		"tiers", len(ts),
		"collected", len(seen),
		"returned", len(page.Items),
		"has_more", page.HasMore,
	)
	return page, nil
}

func toItem(r ranking.Ranked) Item {
	a := r.Article
	return Item{
		ID:               a.ID,
		Title:            a.Title,
		Summary:          a.DisplaySummary(),
		URL:              a.URL,
		ImageURL:         a.ImageURL,
		Source:           a.Source,
		Language:         a.Language,
		Country:          a.Country,
		Category:         a.Category,
		InferredCategory: a.InferredCategory,
		SubCategory:      a.SubCategory,
		PublishedAt:      a.PublishedAt,
		CreatedAt:        a.CreatedAt,
		Analyzed:         a.Analyzed,
		Score:            r.Score,
		Tier:             r.Tier,
	}
}
