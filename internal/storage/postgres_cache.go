package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

func (ps *PostgresStore) GetLanguages(ctx context.Context, kind, key string) ([]string, bool, error) {
	var langs pq.StringArray
	err := ps.db.QueryRowContext(ctx,
		`SELECT languages FROM language_cache WHERE kind = $1 AND key = $2`, kind, key).Scan(&langs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get language cache: %w", err)
	}
	return []string(langs), true, nil
}

func (ps *PostgresStore) PutLanguages(ctx context.Context, kind, key string, languages []string) error {
	query := `
		INSERT INTO language_cache (kind, key, languages, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (kind, key) DO UPDATE SET
			languages = EXCLUDED.languages,
			updated_at = NOW()
	`
	if _, err := ps.db.ExecContext(ctx, query, kind, key, pq.Array(languages)); err != nil {
		return fmt.Errorf("put language cache: %w", err)
	}
	return nil
}

// GetTranslation retrieves a memoized translation and bumps its usage.
func (ps *PostgresStore) GetTranslation(ctx context.Context, key string) (string, string, bool, error) {
	var text, engine string
	query := `
		UPDATE translation_cache
		SET last_used_at = NOW(), use_count = use_count + 1
		WHERE content_hash = $1
		RETURNING translated_text, engine
	`
	err := ps.db.QueryRowContext(ctx, query, key).Scan(&text, &engine)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("failed to get translation from cache: %w", err)
	}
	return text, engine, true, nil
}

func (ps *PostgresStore) PutTranslation(ctx context.Context, key, text, engine string) error {
	query := `
		INSERT INTO translation_cache (content_hash, translated_text, engine, created_at, last_used_at, use_count)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		ON CONFLICT (content_hash) DO UPDATE SET
			translated_text = EXCLUDED.translated_text,
			engine = EXCLUDED.engine,
			last_used_at = NOW()
	`
	if _, err := ps.db.ExecContext(ctx, query, key, text, engine); err != nil {
		return fmt.Errorf("failed to set translation cache: %w", err)
	}
	return nil
}

// Increment upserts a resolver counter.
func (ps *PostgresStore) Increment(ctx context.Context, metric string) error {
	query := `
		INSERT INTO resolver_metrics (metric, count, last_updated)
		VALUES ($1, 1, NOW())
		ON CONFLICT (metric) DO UPDATE SET
			count = resolver_metrics.count + 1,
			last_updated = NOW()
	`
	if _, err := ps.db.ExecContext(ctx, query, metric); err != nil {
		return fmt.Errorf("increment %s: %w", metric, err)
	}
	return nil
}

func (ps *PostgresStore) Counters(ctx context.Context) (map[string]int64, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT metric, count FROM resolver_metrics`)
	if err != nil {
		return nil, fmt.Errorf("read counters: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		out[name] = count
	}
	return out, rows.Err()
}
