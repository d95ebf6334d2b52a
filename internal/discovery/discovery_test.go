package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
	"github.com/deusflow/geonews/internal/storage"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func insert(t *testing.T, st *storage.MemoryStore, a models.Article) {
	t.Helper()
	if a.URL == "" {
		a.URL = "https://news.example.com/" + a.ID
	}
	res, err := st.InsertIfNew(context.Background(), &a)
	require.NoError(t, err)
	require.Equal(t, models.Inserted, res)
}

// seed fills the store with articles spread over city, state, country,
// continent and global coverage.
func seed(t *testing.T, st *storage.MemoryStore) []string {
	t.Helper()
	var ids []string
	add := func(prefix string, n int, a models.Article) {
		for i := 0; i < n; i++ {
			a.ID = fmt.Sprintf("%s-%02d", prefix, i)
			a.Title = a.ID
			a.CreatedAt = base.Add(-time.Duration(i*37) * time.Minute)
			insert(t, st, a)
			ids = append(ids, a.ID)
		}
	}
	add("city", 6, models.Article{City: "pune", State: "maharashtra", Country: "india", Continent: "asia", Language: "mr", Category: "local"})
	add("state", 5, models.Article{State: "maharashtra", Country: "india", Continent: "asia", Language: "mr", Category: "national"})
	add("country", 8, models.Article{Country: "india", Continent: "asia", Language: "hi", Category: "national"})
	add("continent", 4, models.Article{Country: "japan", Continent: "asia", Language: "en", Category: "world"})
	add("global", 7, models.Article{Country: "global", Continent: "global", Language: "en", Category: "world"})
	return ids
}

func walk(t *testing.T, f *Fetcher, c models.Context) ([]Item, int) {
	t.Helper()
	var items []Item
	pages := 0
	for {
		page, err := f.Fetch(context.Background(), c)
		require.NoError(t, err)
		pages++
		items = append(items, page.Items...)
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			return items, pages
		}
		require.NotEmpty(t, page.NextCursor)
		c.Cursor = page.NextCursor
		require.Less(t, pages, 100, "pagination did not terminate")
	}
}

func TestFetchWalksEveryArticleOnce(t *testing.T) {
	t.Parallel()
	st := storage.NewMemoryStore("")
	all := seed(t, st)
	clk := &clock{t: base}
	f := NewFetcher(st, 50, 300, WithClock(clk.now))

	c := models.Context{
		Scope:     models.ScopeCity,
		City:      "pune",
		State:     "maharashtra",
		Country:   "india",
		Continent: "asia",
		Limit:     7,
	}
	items, pages := walk(t, f, c)

	assert.Equal(t, 5, pages)
	seen := make(map[string]bool)
	for i, it := range items {
		assert.False(t, seen[it.ID], "duplicate %s", it.ID)
		seen[it.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, items[i-1].Score, it.Score, "scores must not increase across pages")
		}
	}
	assert.Len(t, seen, len(all))
}

func TestFetchFirstTierWins(t *testing.T) {
	t.Parallel()
	st := storage.NewMemoryStore("")
	seed(t, st)
	f := NewFetcher(st, 50, 300, WithClock((&clock{t: base}).now))

	page, err := f.Fetch(context.Background(), models.Context{
		Scope:     models.ScopeCity,
		City:      "pune",
		State:     "maharashtra",
		Country:   "india",
		Continent: "asia",
		Limit:     50,
	})
	require.NoError(t, err)
	for _, it := range page.Items {
		switch {
		case it.ID[:4] == "city":
			assert.Equal(t, models.ScopeCity, it.Tier, it.ID)
		case it.ID[:5] == "state":
			assert.Equal(t, models.ScopeState, it.Tier, it.ID)
		case it.ID[:7] == "country":
			assert.Equal(t, models.ScopeCountry, it.Tier, it.ID)
		}
	}
	// The newest city article outranks everything else.
	assert.Equal(t, "city-00", page.Items[0].ID)
	assert.Equal(t, 100+30+5+20, page.Items[0].Score)
}

func TestFetchSnapshotExcludesLateArrivals(t *testing.T) {
	t.Parallel()
	st := storage.NewMemoryStore("")
	all := seed(t, st)
	clk := &clock{t: base}
	f := NewFetcher(st, 50, 300, WithClock(clk.now))

	c := models.Context{Scope: models.ScopeCountry, Country: "india", Continent: "asia", Limit: 10}
	first, err := f.Fetch(context.Background(), c)
	require.NoError(t, err)
	require.True(t, first.HasMore)

	clk.t = base.Add(time.Hour)
	insert(t, st, models.Article{ID: "late", Country: "india", Continent: "asia", Language: "hi", CreatedAt: base.Add(30 * time.Minute)})

	c.Cursor = first.NextCursor
	rest, _ := walk(t, f, c)

	ids := make(map[string]bool)
	for _, it := range append(first.Items, rest...) {
		assert.False(t, ids[it.ID], "duplicate %s", it.ID)
		ids[it.ID] = true
	}
	assert.False(t, ids["late"])
	assert.Len(t, ids, len(all))

	// A fresh walk sees it.
	c.Cursor = ""
	fresh, err := f.Fetch(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "late", fresh.Items[0].ID)
}

func TestFetchFilters(t *testing.T) {
	t.Parallel()
	st := storage.NewMemoryStore("")
	seed(t, st)
	f := NewFetcher(st, 50, 300, WithClock((&clock{t: base}).now))

	page, err := f.Fetch(context.Background(), models.Context{
		Scope:     models.ScopeCountry,
		Country:   "india",
		Languages: []string{"hi"},
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 8)
	for _, it := range page.Items {
		assert.Equal(t, "hi", it.Language)
	}

	page, err = f.Fetch(context.Background(), models.Context{Scope: models.ScopeGlobal, Category: "world", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, page.Items, 11)
}

func TestFetchEmpty(t *testing.T) {
	t.Parallel()
	f := NewFetcher(storage.NewMemoryStore(""), 50, 300)

	page, err := f.Fetch(context.Background(), models.Context{Scope: models.ScopeGlobal})
	require.NoError(t, err)
	assert.True(t, page.Empty)
	assert.Equal(t, EmptyMessage, page.Message)
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasMore)
}

func TestFetchInvalidCursor(t *testing.T) {
	t.Parallel()
	f := NewFetcher(storage.NewMemoryStore(""), 50, 300)

	_, err := f.Fetch(context.Background(), models.Context{Scope: models.ScopeGlobal, Cursor: "not-a-cursor!"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pagination.ErrInvalidCursor))
}

func TestFetchClampsLimit(t *testing.T) {
	t.Parallel()
	st := storage.NewMemoryStore("")
	seed(t, st)
	f := NewFetcher(st, 5, 300, WithClock((&clock{t: base}).now))

	page, err := f.Fetch(context.Background(), models.Context{Scope: models.ScopeGlobal, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 5, page.Context.Limit)
	assert.True(t, page.HasMore)
}

func TestTiersAlwaysEndGlobal(t *testing.T) {
	t.Parallel()
	got := tiers(models.Context{Country: "india"})
	require.Len(t, got, 2)
	assert.Equal(t, models.ScopeCountry, got[0].level)
	assert.Equal(t, models.ScopeGlobal, got[1].level)
	assert.Equal(t, storage.GeoNone, got[1].field)
}
