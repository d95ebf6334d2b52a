package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
)

var articleColumns = []string{
	"id", "url", "title", "snippet", "source", "language",
	"city", "state", "country", "continent", "category", "image_url",
	"published_at", "created_at",
	"inferred_category", "sub_category", "category_confidence",
	"analyzed", "analyzed_at", "raw_text", "summary",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (models.Article, error) {
	var a models.Article
	var published, analyzedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.URL, &a.Title, &a.Snippet, &a.Source, &a.Language,
		&a.City, &a.State, &a.Country, &a.Continent, &a.Category, &a.ImageURL,
		&published, &a.CreatedAt,
		&a.InferredCategory, &a.SubCategory, &a.CategoryConfidence,
		&a.Analyzed, &analyzedAt, &a.RawText, &a.Summary,
	)
	if err != nil {
		return a, err
	}
	if published.Valid {
		t := published.Time
		a.PublishedAt = &t
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		a.AnalyzedAt = &t
	}
	return a, nil
}

// InsertIfNew stores a unless its URL is already known. The unique index on
// url is the only dedup mechanism; a lost race is reported as AlreadyKnown.
func (ps *PostgresStore) InsertIfNew(ctx context.Context, a *models.Article) (models.InsertResult, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	var published any
	if a.PublishedAt != nil {
		published = *a.PublishedAt
	}

	query, args, err := psql.Insert("articles").
		Columns(
			"id", "url", "title", "snippet", "source", "language",
			"city", "state", "country", "continent", "category", "image_url",
			"published_at", "created_at",
			"inferred_category", "sub_category", "category_confidence",
		).
		Values(
			a.ID, a.URL, a.Title, a.Snippet, a.Source, a.Language,
			a.City, a.State, a.Country, a.Continent, a.Category, a.ImageURL,
			published, a.CreatedAt,
			a.InferredCategory, a.SubCategory, a.CategoryConfidence,
		).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return models.AlreadyKnown, err
	}

	res, err := ps.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.AlreadyKnown, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.AlreadyKnown, fmt.Errorf("insert article: %w", err)
	}
	if n == 0 {
		return models.AlreadyKnown, nil
	}
	return models.Inserted, nil
}

func (ps *PostgresStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	query, args, err := psql.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanArticle(ps.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

// QueryArticles runs one discovery tier.
func (ps *PostgresStore) QueryArticles(ctx context.Context, q ArticleQuery) ([]models.Article, error) {
	b := psql.Select(articleColumns...).From("articles")

	if q.GeoField != GeoNone {
		b = b.Where(sq.Eq{string(q.GeoField): q.GeoValue})
	}
	if len(q.Languages) > 0 {
		b = b.Where("language = ANY(?)", pq.Array(q.Languages))
	}
	if q.Category != "" {
		b = b.Where(sq.Or{sq.Eq{"category": q.Category}, sq.Eq{"inferred_category": q.Category}})
	}
	if q.Source != "" {
		b = b.Where(sq.Eq{"source": q.Source})
	}
	if q.Analyzed != nil {
		b = b.Where(sq.Eq{"analyzed": *q.Analyzed})
	}
	if !q.CreatedBefore.IsZero() {
		b = b.Where(sq.LtOrEq{"created_at": q.CreatedBefore})
	}
	b = b.OrderBy(RecentOrder.OrderBy()...)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	return ps.queryArticles(ctx, b)
}

// ListRecent pages through all articles newest first.
func (ps *PostgresStore) ListRecent(ctx context.Context, after pagination.Cursor, limit int) ([]models.Article, error) {
	b := psql.Select(articleColumns...).From("articles")
	if f := RecentOrder.Filter(after); f != nil {
		b = b.Where(f)
	}
	b = b.OrderBy(RecentOrder.OrderBy()...).Limit(uint64(limit))
	return ps.queryArticles(ctx, b)
}

func (ps *PostgresStore) queryArticles(ctx context.Context, b sq.SelectBuilder) ([]models.Article, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) SetRawText(ctx context.Context, id, text string) error {
	query, args, err := psql.Update("articles").Set("raw_text", text).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := ps.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set raw text: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired removes unanalyzed articles created before olderThan.
// Analyzed articles are kept: documents point at them.
func (ps *PostgresStore) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := psql.Delete("articles").
		Where(sq.Eq{"analyzed": false}).
		Where(sq.Lt{"created_at": olderThan}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := ps.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge articles: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows > 0 {
		ps.log.Info("purged stale articles", "count", rows)
	}
	return rows, nil
}
