package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/deusflow/geonews/internal/models"
)

var documentColumns = []string{
	"id", "article_id", "raw_text", "clean_text", "language", "content_hash",
	"translated_text", "translation_engine",
	"sentiment", "event", "location", "summary", "keywords", "entities",
	"pipeline_metrics", "source_category", "status",
	"created_at", "updated_at", "processed_at",
}

func (ps *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = d.CreatedAt
	if d.Status == "" {
		d.Status = models.StatusPending
	}

	var articleID any
	if d.ArticleID != "" {
		articleID = d.ArticleID
	}

	query, args, err := psql.Insert("documents").
		Columns("id", "article_id", "raw_text", "language", "source_category", "status", "created_at", "updated_at").
		Values(d.ID, articleID, d.RawText, d.Language, d.SourceCategory, string(d.Status), d.CreatedAt, d.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (ps *PostgresStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return ps.getDocument(ctx, sq.Eq{"id": id})
}

func (ps *PostgresStore) GetDocumentByArticle(ctx context.Context, articleID string) (*models.Document, error) {
	return ps.getDocument(ctx, sq.Eq{"article_id": articleID})
}

func (ps *PostgresStore) getDocument(ctx context.Context, where sq.Eq) (*models.Document, error) {
	query, args, err := psql.Select(documentColumns...).From("documents").Where(where).ToSql()
	if err != nil {
		return nil, err
	}

	var d models.Document
	var articleID, summary sql.NullString
	var processedAt sql.NullTime
	var status string
	var sentiment, event, location, keywords, entities, metrics []byte

	err = ps.db.QueryRowContext(ctx, query, args...).Scan(
		&d.ID, &articleID, &d.RawText, &d.CleanText, &d.Language, &d.ContentHash,
		&d.TranslatedText, &d.TranslationEngine,
		&sentiment, &event, &location, &summary, &keywords, &entities,
		&metrics, &d.SourceCategory, &status,
		&d.CreatedAt, &d.UpdatedAt, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	d.ArticleID = articleID.String
	d.Status = models.DocumentStatus(status)
	if summary.Valid {
		s := summary.String
		d.Summary = &s
	}
	if processedAt.Valid {
		t := processedAt.Time
		d.ProcessedAt = &t
	}

	for _, f := range []struct {
		raw  []byte
		dest any
	}{
		{sentiment, &d.Sentiment},
		{event, &d.Event},
		{location, &d.Location},
		{keywords, &d.Keywords},
		{entities, &d.Entities},
		{metrics, &d.PipelineMetrics},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
	}
	return &d, nil
}

func jsonValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, nil
	}
	// lib/pq sends []byte as bytea; JSONB columns need text.
	return string(raw), nil
}

func documentUpdateColumns(upd models.DocumentUpdate) (map[string]any, error) {
	set := map[string]any{}
	if upd.SetPreprocessing {
		set["clean_text"] = upd.CleanText
		set["language"] = upd.Language
		set["content_hash"] = upd.ContentHash
	}
	if upd.SetTranslation {
		set["translated_text"] = upd.TranslatedText
		set["translation_engine"] = upd.TranslationEngine
	}

	jsonFields := []struct {
		on   bool
		name string
		v    any
	}{
		{upd.SetSentiment, "sentiment", upd.Sentiment},
		{upd.SetEvent, "event", upd.Event},
		{upd.SetLocation, "location", upd.Location},
		{upd.SetKeywords, "keywords", upd.Keywords},
		{upd.SetEntities, "entities", upd.Entities},
		{upd.PipelineMetrics != nil, "pipeline_metrics", upd.PipelineMetrics},
	}
	for _, f := range jsonFields {
		if !f.on {
			continue
		}
		v, err := jsonValue(f.v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
		set[f.name] = v
	}

	if upd.SetSummary {
		if upd.Summary != nil {
			set["summary"] = *upd.Summary
		} else {
			set["summary"] = nil
		}
	}
	if upd.Status != "" {
		set["status"] = string(upd.Status)
	}
	if !upd.ProcessedAt.IsZero() {
		set["processed_at"] = upd.ProcessedAt
		set["updated_at"] = upd.ProcessedAt
	}
	return set, nil
}

// CommitAnalysis applies one pipeline call's output atomically.
func (ps *PostgresStore) CommitAnalysis(ctx context.Context, docID string, upd models.DocumentUpdate, article *models.ArticleAnalysis) error {
	set, err := documentUpdateColumns(upd)
	if err != nil {
		return err
	}
	if len(set) == 0 && article == nil {
		return nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(set) > 0 {
		query, args, err := psql.Update("documents").SetMap(set).Where(sq.Eq{"id": docID}).ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
	}

	if article != nil {
		query, args, err := psql.Update("articles").
			Set("analyzed", true).
			Set("analyzed_at", article.AnalyzedAt).
			Set("summary", article.Summary).
			Where(sq.Eq{"id": article.ArticleID}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark article analyzed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}
	return nil
}
