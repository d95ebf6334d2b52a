package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
)

func seedArticles(t *testing.T, st *MemoryStore, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		a := &models.Article{
			ID:        fmt.Sprintf("a%02d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Title:     fmt.Sprintf("item %d", i),
			Language:  []string{"en", "hi"}[i%2],
			Country:   []string{"india", "qatar"}[i%2],
			Continent: "asia",
			Category:  "national",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		res, err := st.InsertIfNew(context.Background(), a)
		require.NoError(t, err)
		require.Equal(t, models.Inserted, res)
	}
}

func TestMemoryInsertDedupByURL(t *testing.T) {
	t.Parallel()
	st := NewMemoryStore("")
	ctx := context.Background()

	res, err := st.InsertIfNew(ctx, &models.Article{ID: "1", URL: "https://x/a"})
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, res)

	res, err = st.InsertIfNew(ctx, &models.Article{ID: "2", URL: "https://x/a"})
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyKnown, res)

	_, err = st.GetArticle(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueryArticles(t *testing.T) {
	t.Parallel()
	st := NewMemoryStore("")
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seedArticles(t, st, 10, base)

	got, err := st.QueryArticles(context.Background(), ArticleQuery{
		GeoField:  GeoCountry,
		GeoValue:  "india",
		Languages: []string{"en"},
		Limit:     3,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a08", "a06", "a04"}, []string{got[0].ID, got[1].ID, got[2].ID})

	got, err = st.QueryArticles(context.Background(), ArticleQuery{
		GeoField:      GeoContinent,
		GeoValue:      "asia",
		CreatedBefore: base.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMemoryListRecentWalksAllPages(t *testing.T) {
	t.Parallel()
	st := NewMemoryStore("")
	seedArticles(t, st, 7, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var seen []string
	var cur pagination.Cursor
	for page := 0; page < 5; page++ {
		items, err := st.ListRecent(ctx, cur, 3)
		require.NoError(t, err)
		if len(items) == 0 {
			break
		}
		for _, a := range items {
			seen = append(seen, a.ID)
		}
		last := items[len(items)-1]
		token, err := RecentOrder.Encode(map[string]any{"created_at": last.CreatedAt, "id": last.ID})
		require.NoError(t, err)
		cur, err = RecentOrder.Decode(token)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a06", "a05", "a04", "a03", "a02", "a01", "a00"}, seen)
}

func TestMemoryCommitAnalysis(t *testing.T) {
	t.Parallel()
	st := NewMemoryStore("")
	ctx := context.Background()
	seedArticles(t, st, 1, time.Now())

	require.NoError(t, st.CreateDocument(ctx, &models.Document{ID: "d1", ArticleID: "a00", RawText: "body"}))

	summary := "sum"
	now := time.Now().UTC()
	err := st.CommitAnalysis(ctx, "d1", models.DocumentUpdate{
		SetSummary:  true,
		Summary:     &summary,
		Status:      models.StatusCompleted,
		ProcessedAt: now,
	}, &models.ArticleAnalysis{ArticleID: "a00", Summary: summary, AnalyzedAt: now})
	require.NoError(t, err)

	d, err := st.GetDocumentByArticle(ctx, "a00")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, d.Status)
	require.NotNil(t, d.Summary)
	assert.Equal(t, "sum", *d.Summary)

	a, err := st.GetArticle(ctx, "a00")
	require.NoError(t, err)
	assert.True(t, a.Analyzed)
	assert.Equal(t, "sum", a.DisplaySummary())

	err = st.CommitAnalysis(ctx, "d1", models.DocumentUpdate{Status: models.StatusFailed},
		&models.ArticleAnalysis{ArticleID: "gone"})
	assert.ErrorIs(t, err, ErrNotFound)
	d, _ = st.GetDocument(ctx, "d1")
	assert.Equal(t, models.StatusCompleted, d.Status)
}

func TestMemoryPurgeKeepsAnalyzed(t *testing.T) {
	t.Parallel()
	st := NewMemoryStore("")
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	seedArticles(t, st, 3, old)

	require.NoError(t, st.CreateDocument(ctx, &models.Document{ID: "d", ArticleID: "a01"}))
	require.NoError(t, st.CommitAnalysis(ctx, "d", models.DocumentUpdate{},
		&models.ArticleAnalysis{ArticleID: "a01", AnalyzedAt: time.Now()}))

	n, err := st.PurgeExpired(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = st.GetArticle(ctx, "a01")
	assert.NoError(t, err)

	res, err := st.InsertIfNew(ctx, &models.Article{ID: "again", URL: "https://example.com/0"})
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, res)
}

func TestMemorySnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	ctx := context.Background()

	st := NewMemoryStore(path)
	seedArticles(t, st, 2, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, st.PutLanguages(ctx, "country", "India", []string{"hi", "en"}))
	require.NoError(t, st.PutTranslation(ctx, "k", "hello", "primary"))
	require.NoError(t, st.Increment(ctx, "resolver_calls_total"))
	require.NoError(t, st.Close())

	restored := NewMemoryStore(path)
	require.NoError(t, restored.Load())

	a, err := restored.GetArticle(ctx, "a01")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1", a.URL)

	langs, ok, err := restored.GetLanguages(ctx, "country", "india")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"hi", "en"}, langs)

	text, engine, ok, err := restored.GetTranslation(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "primary", engine)

	counters, err := restored.Counters(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counters["resolver_calls_total"])

	res, err := restored.InsertIfNew(ctx, &models.Article{ID: "dup", URL: "https://example.com/0"})
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyKnown, res)
}
