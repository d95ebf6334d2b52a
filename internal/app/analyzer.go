package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pipeline"
	"github.com/deusflow/geonews/internal/scraper"
	"github.com/deusflow/geonews/internal/storage"
)

// minArticleChars is the shortest extracted text worth analysing.
const minArticleChars = 200

var (
	ErrNotFound = errors.New("article not found")
	// ErrExtraction means the article page could not be turned into text.
	// Callers may retry later.
	ErrExtraction = errors.New("could not extract article text")
	// ErrProcessing means a pipeline stage failed. Callers may retry.
	ErrProcessing = errors.New("analysis failed")
)

type Mode string

const (
	// ModeFull runs the requested stages regardless of stored results.
	ModeFull Mode = "full"
	// ModeMissing runs only the stages without stored results.
	ModeMissing Mode = "missing"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeMissing:
		return ModeMissing, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) (*scraper.Page, error)
}

type PipelineRunner interface {
	Run(ctx context.Context, docID string, stages []pipeline.Stage) pipeline.Result
}

// AnalysisStore is the persistence the analyzer needs.
type AnalysisStore interface {
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	SetRawText(ctx context.Context, id, text string) error
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocumentByArticle(ctx context.Context, articleID string) (*models.Document, error)
}

// Analyzer runs a stored article through the pipeline on demand.
type Analyzer struct {
	store     AnalysisStore
	extractor PageExtractor
	runner    PipelineRunner
	now       func() time.Time
	log       *slog.Logger
}

func NewAnalyzer(store AnalysisStore, extractor PageExtractor, runner PipelineRunner) *Analyzer {
	return &Analyzer{
		store:     store,
		extractor: extractor,
		runner:    runner,
		now:       time.Now,
		log:       logger.With("analyzer"),
	}
}

// Analyze fetches the article's full text when it has none yet, makes sure
// a document exists for it and runs the pipeline. The returned result is
// non-nil whenever the pipeline ran, including on ErrProcessing.
func (a *Analyzer) Analyze(ctx context.Context, articleID string, stages []pipeline.Stage, mode Mode) (*pipeline.Result, error) {
	article, err := a.store.GetArticle(ctx, articleID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}

	raw := article.RawText
	if raw == "" {
		if raw, err = a.extract(ctx, article); err != nil {
			return nil, err
		}
	}

	doc, err := a.document(ctx, article, raw)
	if err != nil {
		return nil, err
	}

	if mode == ModeMissing {
		stages = pipeline.MissingStages(doc)
		if len(stages) == 0 {
			a.log.Debug("nothing missing", "article", articleID, "document", doc.ID)
			return &pipeline.Result{DocumentID: doc.ID, Success: true, Stages: stages, Document: doc}, nil
		}
	}

	res := a.runner.Run(ctx, doc.ID, stages)
	if !res.Success {
		return &res, fmt.Errorf("%w: %s", ErrProcessing, res.Error)
	}
	return &res, nil
}

func (a *Analyzer) extract(ctx context.Context, article *models.Article) (string, error) {
	page, err := a.extractor.Extract(ctx, article.URL)
	if err != nil {
		a.log.Warn("extraction failed", "article", article.ID, "url", article.URL, "error", err)
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	text := strings.TrimSpace(page.Content)
	if n := utf8.RuneCountInString(text); n < minArticleChars {
		return "", fmt.Errorf("%w: only %d characters", ErrExtraction, n)
	}
	if err := a.store.SetRawText(ctx, article.ID, text); err != nil {
		return "", fmt.Errorf("save raw text: %w", err)
	}
	return text, nil
}

func (a *Analyzer) document(ctx context.Context, article *models.Article, raw string) (*models.Document, error) {
	doc, err := a.store.GetDocumentByArticle(ctx, article.ID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load document: %w", err)
	}

	doc = &models.Document{
		ID:             uuid.NewString(),
		ArticleID:      article.ID,
		RawText:        raw,
		Language:       article.Language,
		SourceCategory: article.Category,
		Status:         models.StatusPending,
		CreatedAt:      a.now().UTC(),
	}
	if err := a.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}
