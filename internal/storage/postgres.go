package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/retry"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps articles, documents and memo tables in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects, pings with retry and bootstraps the schema.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ping := retry.RetryConfig{MaxAttempts: 5, Delay: 2 * time.Second, Backoff: true}
	if err := retry.WithRetry(ctx, ping, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewPostgresStoreWithDB(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.log.Info("PostgreSQL store connected")
	return store, nil
}

// NewPostgresStoreWithDB wraps an open handle without touching the schema.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, log: logger.With("storage")}
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	snippet TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	continent TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	inferred_category TEXT NOT NULL DEFAULT '',
	sub_category TEXT NOT NULL DEFAULT '',
	category_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	analyzed BOOLEAN NOT NULL DEFAULT FALSE,
	analyzed_at TIMESTAMPTZ,
	raw_text TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_created ON articles(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_articles_country ON articles(country, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_articles_continent ON articles(continent, created_at DESC);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	article_id TEXT REFERENCES articles(id) ON DELETE SET NULL,
	raw_text TEXT NOT NULL,
	clean_text TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	translated_text TEXT NOT NULL DEFAULT '',
	translation_engine TEXT NOT NULL DEFAULT '',
	sentiment JSONB,
	event JSONB,
	location JSONB,
	summary TEXT,
	keywords JSONB,
	entities JSONB,
	pipeline_metrics JSONB,
	source_category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_article ON documents(article_id) WHERE article_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);

CREATE TABLE IF NOT EXISTS language_cache (
	kind TEXT NOT NULL,
	key TEXT NOT NULL,
	languages TEXT[] NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (kind, key)
);

CREATE TABLE IF NOT EXISTS translation_cache (
	content_hash VARCHAR(64) PRIMARY KEY,
	translated_text TEXT NOT NULL,
	engine VARCHAR(32) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	use_count INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS resolver_metrics (
	metric TEXT PRIMARY KEY,
	count BIGINT NOT NULL DEFAULT 0,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables if they don't exist.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	ps.log.Info("database schema initialized")
	return nil
}

// Stats returns row counts for the health endpoint.
func (ps *PostgresStore) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total, analyzed int
	err := ps.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE analyzed) FROM articles`).Scan(&total, &analyzed)
	if err != nil {
		return nil, err
	}
	stats["articles_total"] = total
	stats["articles_analyzed"] = analyzed

	var docs int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&docs); err != nil {
		return nil, err
	}
	stats["documents_total"] = docs

	rows, err := ps.db.QueryContext(ctx, `SELECT country, COUNT(*) FROM articles GROUP BY country`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var country string
			var count int
			if err := rows.Scan(&country, &count); err == nil {
				stats["country_"+country] = count
			}
		}
	}

	return stats, nil
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
