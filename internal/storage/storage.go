// Package storage persists articles, documents and lookup memos. The
// Postgres store is the production backend; MemoryStore serves single-node
// runs without a database and tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
)

var ErrNotFound = errors.New("not found")

// RecentOrder is the sort key of plain article listings.
var RecentOrder = pagination.New(pagination.DefaultMaxLimit,
	pagination.SortField{Name: "created_at", Desc: true, Kind: pagination.KindTime},
	pagination.SortField{Name: "id", Desc: true, Kind: pagination.KindString},
)

// GeoField names the article column a discovery tier constrains.
type GeoField string

const (
	GeoNone      GeoField = ""
	GeoCity      GeoField = "city"
	GeoState     GeoField = "state"
	GeoCountry   GeoField = "country"
	GeoContinent GeoField = "continent"
)

// ArticleQuery is one discovery tier. Results are ordered newest first.
type ArticleQuery struct {
	GeoField  GeoField
	GeoValue  string
	Languages []string // empty = any language
	Category  string   // matches category or inferred_category; empty = any
	Source    string
	Analyzed  *bool
	// CreatedBefore bounds the snapshot (inclusive); zero = no bound.
	CreatedBefore time.Time
	Limit         int
}

type ArticleStore interface {
	InsertIfNew(ctx context.Context, a *models.Article) (models.InsertResult, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	QueryArticles(ctx context.Context, q ArticleQuery) ([]models.Article, error)
	ListRecent(ctx context.Context, after pagination.Cursor, limit int) ([]models.Article, error)
	SetRawText(ctx context.Context, id, text string) error
	PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByArticle(ctx context.Context, articleID string) (*models.Document, error)
	// CommitAnalysis writes every touched document field, and the linked
	// article's analysis fields when article is non-nil, in one transaction.
	CommitAnalysis(ctx context.Context, docID string, upd models.DocumentUpdate, article *models.ArticleAnalysis) error
}

// LanguageCache memoizes place → languages lookups. kind is "country",
// "state", "city" or "continent".
type LanguageCache interface {
	GetLanguages(ctx context.Context, kind, key string) ([]string, bool, error)
	PutLanguages(ctx context.Context, kind, key string, languages []string) error
}

type CounterStore interface {
	Increment(ctx context.Context, metric string) error
	Counters(ctx context.Context) (map[string]int64, error)
}

type TranslationCache interface {
	GetTranslation(ctx context.Context, key string) (text, engine string, ok bool, err error)
	PutTranslation(ctx context.Context, key, text, engine string) error
}

// Store is everything the application needs from persistence.
type Store interface {
	ArticleStore
	DocumentStore
	LanguageCache
	CounterStore
	TranslationCache
	Stats(ctx context.Context) (map[string]int, error)
	Close() error
}
