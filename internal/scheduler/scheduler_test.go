package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/classify"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/rss"
	"github.com/deusflow/geonews/internal/sources"
	"github.com/deusflow/geonews/internal/storage"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeFeeds struct {
	mu      sync.Mutex
	entries map[string][]rss.Entry
	errs    map[string]error
	calls   []string
	fetched chan string
}

func (f *fakeFeeds) Fetch(_ context.Context, feedURL string) ([]rss.Entry, error) {
	f.mu.Lock()
	f.calls = append(f.calls, feedURL)
	f.mu.Unlock()
	if f.fetched != nil {
		f.fetched <- feedURL
	}
	if err := f.errs[feedURL]; err != nil {
		return nil, err
	}
	return f.entries[feedURL], nil
}

func (f *fakeFeeds) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeImages map[string]string

func (f fakeImages) Resolve(_ context.Context, pageURL string) (string, error) {
	if pageURL == "https://news.example/broken" {
		return "", errors.New("timeout")
	}
	return f[pageURL], nil
}

var (
	indiaSource = sources.Source{
		Name:       "Pune Daily",
		FeedURL:    "https://feeds.example/pune",
		Languages:  []string{"mr", "en"},
		Country:    "india",
		Continent:  "asia",
		Categories: []string{"national"},
	}
	qatarSource = sources.Source{
		Name:       "Doha Wire",
		FeedURL:    "https://feeds.example/doha",
		Languages:  []string{"ar"},
		Country:    "qatar",
		Continent:  "asia",
		Categories: []string{"world"},
	}
)

func newTestScheduler(t *testing.T, catalog sources.Catalog, feeds *fakeFeeds, images fakeImages,
	store ArticleWriter, settings Settings) *Scheduler {
	t.Helper()
	ids := 0
	s, err := New(catalog, feeds, images, classify.New(nil), store, settings, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	s.newID = func() string {
		ids++
		return fmt.Sprintf("id-%02d", ids)
	}
	return s
}

func TestRunOnceStoresEntriesWithImages(t *testing.T) {
	feeds := &fakeFeeds{entries: map[string][]rss.Entry{
		indiaSource.FeedURL: {
			{Title: "Heavy rain lashes Pune", URL: "https://news.example/a", Snippet: "Schools shut."},
			{Title: "No picture anywhere", URL: "https://news.example/b"},
			{Title: "Feed image only", URL: "https://news.example/broken", ImageURL: "https://img.example/feed.jpg"},
			{Title: "Heavy rain lashes Pune again", URL: "https://news.example/a"},
		},
	}}
	images := fakeImages{"https://news.example/a": "https://img.example/og.jpg"}
	store := storage.NewMemoryStore("")

	s := newTestScheduler(t, sources.Catalog{indiaSource}, feeds, images, store, Settings{})
	stats := s.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.NoImage)
	assert.Zero(t, stats.Errors)

	a, err := store.GetArticle(context.Background(), "id-01")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/og.jpg", a.ImageURL)
	assert.Equal(t, "mr", a.Language)
	assert.Equal(t, "national", a.Category)
	assert.Equal(t, "india", a.Country)
	assert.Equal(t, "asia", a.Continent)
	assert.Equal(t, "pune", a.City)
	assert.Equal(t, "maharashtra", a.State)
	assert.Equal(t, now, a.CreatedAt)
	assert.NotEmpty(t, a.InferredCategory)

	b, err := store.GetArticle(context.Background(), "id-02")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/feed.jpg", b.ImageURL)

	last := s.Status().LastCycle
	require.NotNil(t, last)
	assert.Equal(t, 2, last.Stored)
}

func TestGeotagRequiresMatchingCountry(t *testing.T) {
	feeds := &fakeFeeds{entries: map[string][]rss.Entry{
		qatarSource.FeedURL: {{Title: "Flights to Pune resume", URL: "https://news.example/q", ImageURL: "https://img.example/q.jpg"}},
	}}
	store := storage.NewMemoryStore("")
	s := newTestScheduler(t, sources.Catalog{qatarSource}, feeds, fakeImages{}, store, Settings{})

	s.RunOnce(context.Background())
	a, err := store.GetArticle(context.Background(), "id-01")
	require.NoError(t, err)
	assert.Empty(t, a.City)
	assert.Empty(t, a.State)
	assert.Equal(t, "qatar", a.Country)
}

func TestRunOnceCapsPerSource(t *testing.T) {
	var entries []rss.Entry
	for i := 0; i < 15; i++ {
		entries = append(entries, rss.Entry{
			Title:    fmt.Sprintf("story %d", i),
			URL:      fmt.Sprintf("https://news.example/%d", i),
			ImageURL: "https://img.example/x.jpg",
		})
	}
	feeds := &fakeFeeds{entries: map[string][]rss.Entry{indiaSource.FeedURL: entries}}
	s := newTestScheduler(t, sources.Catalog{indiaSource}, feeds, fakeImages{}, storage.NewMemoryStore(""), Settings{})

	stats := s.RunOnce(context.Background())
	assert.Equal(t, DefaultMaxPerSource, stats.Stored)
}

func TestSourceErrorsAreSkipped(t *testing.T) {
	feeds := &fakeFeeds{
		entries: map[string][]rss.Entry{
			qatarSource.FeedURL: {{Title: "ok", URL: "https://news.example/ok", ImageURL: "https://img.example/ok.jpg"}},
		},
		errs: map[string]error{indiaSource.FeedURL: errors.New("502 bad gateway")},
	}
	s := newTestScheduler(t, sources.Catalog{indiaSource, qatarSource}, feeds, fakeImages{}, storage.NewMemoryStore(""), Settings{})

	stats := s.RunOnce(context.Background())
	assert.Equal(t, 2, stats.Sources)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Stored)
}

func TestRunOncePurgesExpired(t *testing.T) {
	store := storage.NewMemoryStore("")
	_, err := store.InsertIfNew(context.Background(), &models.Article{
		ID: "old", URL: "https://news.example/old", CreatedAt: now.Add(-25 * time.Hour),
	})
	require.NoError(t, err)

	s := newTestScheduler(t, nil, &fakeFeeds{}, fakeImages{}, store, Settings{})
	stats := s.RunOnce(context.Background())
	assert.EqualValues(t, 1, stats.Purged)

	_, err = store.GetArticle(context.Background(), "old")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInvalidSchedule(t *testing.T) {
	_, err := New(nil, &fakeFeeds{}, nil, nil, storage.NewMemoryStore(""), Settings{Schedule: "every tuesday"})
	assert.Error(t, err)
}

func TestTriggerNeverBlocks(t *testing.T) {
	s := newTestScheduler(t, nil, &fakeFeeds{}, fakeImages{}, storage.NewMemoryStore(""), Settings{})
	for i := 0; i < triggerQueue; i++ {
		assert.True(t, s.Trigger(models.Context{}))
	}
	assert.False(t, s.Trigger(models.Context{}))
}

func TestRunHonoursPauseAndTrigger(t *testing.T) {
	feeds := &fakeFeeds{fetched: make(chan string, 4)}
	s, err := New(sources.Catalog{indiaSource, qatarSource}, feeds, fakeImages{}, nil,
		storage.NewMemoryStore(""), Settings{Schedule: "@every 1h"})
	require.NoError(t, err)

	s.Pause()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Paused: neither the start-up cycle nor a trigger fetches anything.
	require.True(t, s.Trigger(models.Context{Country: "qatar"}))
	select {
	case url := <-feeds.fetched:
		t.Fatalf("fetched %s while paused", url)
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, s.Status().Paused)

	s.Resume()
	require.True(t, s.Trigger(models.Context{Country: "qatar"}))
	select {
	case url := <-feeds.fetched:
		assert.Equal(t, qatarSource.FeedURL, url)
	case <-time.After(2 * time.Second):
		t.Fatal("targeted refresh did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, []string{qatarSource.FeedURL}, feeds.Calls())
}
