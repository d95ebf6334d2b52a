// Package pipeline runs stored documents through the enrichment stages and
// commits every stage output in one write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/metrics"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/nlp"
	"github.com/deusflow/geonews/internal/translate"
)

const (
	summarySentences = 3
	topKeywords      = 10
)

type Sentimenter interface {
	Analyze(ctx context.Context, text string) (*models.SentimentResult, error)
}

type EventClassifier interface {
	Classify(ctx context.Context, text string) (*models.EventResult, error)
}

// LocationExtractor returns nil when the text names no place.
type LocationExtractor interface {
	Extract(ctx context.Context, text string) (*models.Location, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string, sentences int) (string, error)
}

type KeywordExtractor interface {
	Keywords(ctx context.Context, text string, topN int) ([]string, error)
}

type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]models.Entity, error)
}

type Translator interface {
	ToEnglish(ctx context.Context, text, srcLang string) translate.Result
}

// DocumentStore is the persistence the orchestrator reads and commits to.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	CommitAnalysis(ctx context.Context, docID string, upd models.DocumentUpdate, article *models.ArticleAnalysis) error
}

// Providers are the capability engines behind the semantic stages.
type Providers struct {
	Sentiment  Sentimenter
	Events     EventClassifier
	Locations  LocationExtractor
	Summarizer Summarizer
	Keywords   KeywordExtractor
	Entities   EntityExtractor
}

// DefaultProviders returns the built-in engines. geocoder may be nil.
func DefaultProviders(geocoder nlp.Geocoder) Providers {
	return Providers{
		Sentiment:  nlp.NewSentiment(),
		Events:     nlp.NewEvents(),
		Locations:  nlp.NewLocator(geocoder),
		Summarizer: nlp.NewExtractive(),
		Keywords:   nlp.NewRake(),
		Entities:   nlp.NewEntities(),
	}
}

// Result reports one orchestrator call. On failure nothing was written.
type Result struct {
	DocumentID string             `json:"document_id"`
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	Stages     []Stage            `json:"stages"`
	Metrics    map[string]float64 `json:"pipeline_metrics,omitempty"`
	Document   *models.Document   `json:"document,omitempty"`
}

type Orchestrator struct {
	docs       DocumentStore
	translator Translator
	providers  Providers
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(docs DocumentStore, translator Translator, providers Providers, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		docs:       docs,
		translator: translator,
		providers:  providers,
		now:        time.Now,
		log:        logger.With("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the requested stages (nil = all) on document docID. A
// failing stage aborts the run and leaves the stored document untouched.
// Stages are not interrupted by ctx cancellation once started; each
// provider bounds its own calls.
func (o *Orchestrator) Run(ctx context.Context, docID string, stages []Stage) Result {
	ctx = context.WithoutCancel(ctx)
	plan := Expand(stages)
	res := Result{DocumentID: docID, Stages: plan}

	doc, err := o.docs.GetDocument(ctx, docID)
	if err != nil {
		return o.fail(res, fmt.Errorf("load document: %w", err))
	}

	work := *doc
	upd := models.DocumentUpdate{}
	timings := make(map[string]float64, len(plan)+1)
	started := o.now()

	for _, stage := range plan {
		t0 := o.now()
		if err := o.runStage(ctx, stage, &work, &upd); err != nil {
			o.log.Warn("stage failed", "document", docID, "stage", stage, "error", err)
			return o.fail(res, fmt.Errorf("%s: %w", stage, err))
		}
		elapsed := o.now().Sub(t0)
		timings[string(stage)] = millis(elapsed)
		metrics.Global.ObserveStage(string(stage), elapsed)
	}

	finished := o.now()
	timings["total"] = millis(finished.Sub(started))
	upd.PipelineMetrics = timings
	upd.Status = models.StatusCompleted
	upd.ProcessedAt = finished.UTC()

	var analysis *models.ArticleAnalysis
	if doc.ArticleID != "" {
		summary := ""
		if work.Summary != nil {
			summary = *work.Summary
		}
		analysis = &models.ArticleAnalysis{ArticleID: doc.ArticleID, Summary: summary, AnalyzedAt: finished.UTC()}
	}

	if err := o.docs.CommitAnalysis(ctx, docID, upd, analysis); err != nil {
		return o.fail(res, fmt.Errorf("commit: %w", err))
	}

	upd.Apply(&work)
	metrics.Global.RecordPipeline(true)
	o.log.Info("pipeline finished", "document", docID, "stages", len(plan), "total_ms", timings["total"])

	res.Success = true
	res.Metrics = timings
	res.Document = &work
	return res
}

func (o *Orchestrator) fail(res Result, err error) Result {
	metrics.Global.RecordPipeline(false)
	res.Success = false
	res.Error = err.Error()
	return res
}

// runStage computes one stage from the working copy, records it in upd and
// mirrors it onto work so later stages see it.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, work *models.Document, upd *models.DocumentUpdate) error {
	p := o.providers
	switch stage {
	case StagePreprocessing:
		pre := nlp.Preprocess(work.RawText)
		lang := work.Language
		if lang == "" || lang == nlp.UnknownLanguage {
			lang = pre.Language
		}
		upd.SetPreprocessing = true
		upd.CleanText, upd.Language, upd.ContentHash = pre.CleanText, lang, pre.Hash

	case StageTranslation:
		text := work.CleanText
		if text == "" {
			text = work.RawText
		}
		tr := o.translator.ToEnglish(ctx, text, work.Language)
		upd.SetTranslation = true
		upd.TranslatedText, upd.TranslationEngine = tr.Text, tr.Engine
		switch {
		case tr.Failed && tr.Merged != "":
			o.log.Warn("translation partly failed, keeping original for failed chunks", "document", work.ID, "language", work.Language)
			upd.TranslatedText = tr.Merged
		case tr.Failed:
			o.log.Warn("translation failed, keeping original text", "document", work.ID, "language", work.Language)
			upd.TranslatedText = text
		}

	case StageEvent:
		ev, err := p.Events.Classify(ctx, work.AnalysisText())
		if err != nil {
			return err
		}
		upd.SetEvent = true
		upd.Event = applyGuardrail(ev, work.SourceCategory)

	case StageLocation:
		loc, err := p.Locations.Extract(ctx, work.AnalysisText())
		if err != nil {
			return err
		}
		if loc == nil {
			// Ran, found nothing.
			loc = &models.Location{}
		}
		upd.SetLocation = true
		upd.Location = loc

	case StageSummary:
		s, err := p.Summarizer.Summarize(ctx, work.AnalysisText(), summarySentences)
		if err != nil {
			return err
		}
		upd.SetSummary = true
		upd.Summary = &s

	case StageSentiment:
		s, err := p.Sentiment.Analyze(ctx, work.AnalysisText())
		if err != nil {
			return err
		}
		upd.SetSentiment = true
		upd.Sentiment = s

	case StageKeywords:
		kw, err := p.Keywords.Keywords(ctx, work.AnalysisText(), topKeywords)
		if err != nil {
			return err
		}
		if kw == nil {
			kw = []string{}
		}
		upd.SetKeywords = true
		upd.Keywords = kw

	case StageEntities:
		ents, err := p.Entities.Extract(ctx, work.AnalysisText())
		if err != nil {
			return err
		}
		if ents == nil {
			ents = []models.Entity{}
		}
		upd.SetEntities = true
		upd.Entities = ents

	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	upd.Apply(work)
	return nil
}

func millis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
