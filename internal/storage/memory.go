package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
)

// MemoryStore keeps everything in process memory, optionally snapshotted to
// a JSON file between runs.
type MemoryStore struct {
	filePath string

	mu           sync.RWMutex
	articles     map[string]*models.Article
	byURL        map[string]string
	documents    map[string]*models.Document
	languages    map[string][]string
	translations map[string]memoTranslation
	counters     map[string]int64

	log *slog.Logger
}

type memoTranslation struct {
	Text   string `json:"text"`
	Engine string `json:"engine"`
}

// memorySnapshot is the on-disk layout of a MemoryStore.
type memorySnapshot struct {
	Articles     []models.Article           `json:"articles"`
	Documents    []models.Document          `json:"documents"`
	Languages    map[string][]string        `json:"languages"`
	Translations map[string]memoTranslation `json:"translations"`
	Counters     map[string]int64           `json:"counters"`
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. filePath may be empty, in which
// case Load and Save are no-ops.
func NewMemoryStore(filePath string) *MemoryStore {
	return &MemoryStore{
		filePath:     filePath,
		articles:     make(map[string]*models.Article),
		byURL:        make(map[string]string),
		documents:    make(map[string]*models.Document),
		languages:    make(map[string][]string),
		translations: make(map[string]memoTranslation),
		counters:     make(map[string]int64),
		log:          logger.With("storage"),
	}
}

// Load reads the snapshot file if it exists.
func (ms *MemoryStore) Load() error {
	if ms.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(ms.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var snap memorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	for i := range snap.Articles {
		a := snap.Articles[i]
		ms.articles[a.ID] = &a
		ms.byURL[a.URL] = a.ID
	}
	for i := range snap.Documents {
		d := snap.Documents[i]
		ms.documents[d.ID] = &d
	}
	for k, v := range snap.Languages {
		ms.languages[k] = v
	}
	for k, v := range snap.Translations {
		ms.translations[k] = v
	}
	for k, v := range snap.Counters {
		ms.counters[k] = v
	}

	ms.log.Info("snapshot loaded", "path", ms.filePath, "articles", len(ms.articles), "documents", len(ms.documents))
	return nil
}

// Save writes the current state to the snapshot file.
func (ms *MemoryStore) Save() error {
	if ms.filePath == "" {
		return nil
	}

	ms.mu.RLock()
	snap := memorySnapshot{
		Articles:     make([]models.Article, 0, len(ms.articles)),
		Documents:    make([]models.Document, 0, len(ms.documents)),
		Languages:    ms.languages,
		Translations: ms.translations,
		Counters:     ms.counters,
	}
	for _, a := range ms.articles {
		snap.Articles = append(snap.Articles, *a)
	}
	for _, d := range ms.documents {
		snap.Documents = append(snap.Documents, *d)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	ms.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(ms.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (ms *MemoryStore) InsertIfNew(_ context.Context, a *models.Article) (models.InsertResult, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.byURL[a.URL]; ok {
		return models.AlreadyKnown, nil
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	ms.articles[a.ID] = &cp
	ms.byURL[a.URL] = a.ID
	return models.Inserted, nil
}

func (ms *MemoryStore) GetArticle(_ context.Context, id string) (*models.Article, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	a, ok := ms.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (q ArticleQuery) matches(a *models.Article) bool {
	if q.GeoField != GeoNone && geoValue(a, q.GeoField) != q.GeoValue {
		return false
	}
	if len(q.Languages) > 0 {
		found := false
		for _, l := range q.Languages {
			if a.Language == l {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Category != "" && a.Category != q.Category && a.InferredCategory != q.Category {
		return false
	}
	if q.Source != "" && a.Source != q.Source {
		return false
	}
	if q.Analyzed != nil && a.Analyzed != *q.Analyzed {
		return false
	}
	if !q.CreatedBefore.IsZero() && a.CreatedAt.After(q.CreatedBefore) {
		return false
	}
	return true
}

func geoValue(a *models.Article, f GeoField) string {
	switch f {
	case GeoCity:
		return a.City
	case GeoState:
		return a.State
	case GeoCountry:
		return a.Country
	case GeoContinent:
		return a.Continent
	}
	return ""
}

func recentValues(a *models.Article) map[string]any {
	return map[string]any{"created_at": a.CreatedAt, "id": a.ID}
}

// sortedArticles returns copies of the matching articles, newest first.
func (ms *MemoryStore) sortedArticles(keep func(*models.Article) bool) []models.Article {
	var out []models.Article
	for _, a := range ms.articles {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return RecentOrder.Compare(recentValues(&out[i]), recentValues(&out[j])) < 0
	})
	return out
}

func (ms *MemoryStore) QueryArticles(_ context.Context, q ArticleQuery) ([]models.Article, error) {
	ms.mu.RLock()
	out := ms.sortedArticles(q.matches)
	ms.mu.RUnlock()

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (ms *MemoryStore) ListRecent(_ context.Context, after pagination.Cursor, limit int) ([]models.Article, error) {
	ms.mu.RLock()
	out := ms.sortedArticles(func(a *models.Article) bool {
		return after == nil || RecentOrder.After(after, recentValues(a))
	})
	ms.mu.RUnlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (ms *MemoryStore) SetRawText(_ context.Context, id, text string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	a, ok := ms.articles[id]
	if !ok {
		return ErrNotFound
	}
	a.RawText = text
	return nil
}

func (ms *MemoryStore) PurgeExpired(_ context.Context, olderThan time.Time) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var n int64
	for id, a := range ms.articles {
		if !a.Analyzed && a.CreatedAt.Before(olderThan) {
			delete(ms.articles, id)
			delete(ms.byURL, a.URL)
			n++
		}
	}
	if n > 0 {
		ms.log.Info("purged stale articles", "count", n)
	}
	return n, nil
}

func (ms *MemoryStore) CreateDocument(_ context.Context, d *models.Document) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.documents[d.ID]; ok {
		return fmt.Errorf("create document: id %s already exists", d.ID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.UpdatedAt = d.CreatedAt
	if d.Status == "" {
		d.Status = models.StatusPending
	}
	cp := *d
	ms.documents[d.ID] = &cp
	return nil
}

func (ms *MemoryStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	d, ok := ms.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (ms *MemoryStore) GetDocumentByArticle(_ context.Context, articleID string) (*models.Document, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, d := range ms.documents {
		if d.ArticleID == articleID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (ms *MemoryStore) CommitAnalysis(_ context.Context, docID string, upd models.DocumentUpdate, article *models.ArticleAnalysis) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	d, ok := ms.documents[docID]
	if !ok {
		return ErrNotFound
	}
	var a *models.Article
	if article != nil {
		if a, ok = ms.articles[article.ArticleID]; !ok {
			return ErrNotFound
		}
	}

	upd.Apply(d)
	if a != nil {
		t := article.AnalyzedAt
		a.Analyzed = true
		a.AnalyzedAt = &t
		a.Summary = article.Summary
	}
	return nil
}

func languageKey(kind, key string) string {
	return kind + ":" + strings.ToLower(key)
}

func (ms *MemoryStore) GetLanguages(_ context.Context, kind, key string) ([]string, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	langs, ok := ms.languages[languageKey(kind, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), langs...), true, nil
}

func (ms *MemoryStore) PutLanguages(_ context.Context, kind, key string, languages []string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.languages[languageKey(kind, key)] = append([]string(nil), languages...)
	return nil
}

func (ms *MemoryStore) GetTranslation(_ context.Context, key string) (string, string, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	t, ok := ms.translations[key]
	return t.Text, t.Engine, ok, nil
}

func (ms *MemoryStore) PutTranslation(_ context.Context, key, text, engine string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.translations[key] = memoTranslation{Text: text, Engine: engine}
	return nil
}

func (ms *MemoryStore) Increment(_ context.Context, metric string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.counters[metric]++
	return nil
}

func (ms *MemoryStore) Counters(_ context.Context) (map[string]int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make(map[string]int64, len(ms.counters))
	for k, v := range ms.counters {
		out[k] = v
	}
	return out, nil
}

func (ms *MemoryStore) Stats(_ context.Context) (map[string]int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stats := map[string]int{
		"articles_total":  len(ms.articles),
		"documents_total": len(ms.documents),
	}
	analyzed := 0
	for _, a := range ms.articles {
		if a.Analyzed {
			analyzed++
		}
		stats["country_"+a.Country]++
	}
	stats["articles_analyzed"] = analyzed
	return stats, nil
}

// Close saves the snapshot when one is configured.
func (ms *MemoryStore) Close() error {
	return ms.Save()
}
