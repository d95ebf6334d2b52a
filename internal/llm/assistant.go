// Package llm turns a text-generation model into the summarizer and
// zero-shot classifier used by the analysis pipeline and the category
// classifier. Model access goes through the shared AI request budget.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/deusflow/geonews/internal/cache"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/ratelimit"
	"github.com/deusflow/geonews/internal/translate"
)

const (
	summaryMemoSize = 512
	summaryMemoTTL  = 6 * time.Hour
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer is the extractive fallback used when the model is unavailable.
type Summarizer interface {
	Summarize(ctx context.Context, text string, sentences int) (string, error)
}

// Assistant answers summary and zero-shot requests with a Generator.
type Assistant struct {
	gen      Generator
	limiter  *ratelimit.AIRateLimiter
	fallback Summarizer
	memo     *cache.Cache[string]
	log      *slog.Logger
}

type Option func(*Assistant)

// WithFallback sets the summarizer used when the model fails or the daily
// budget is spent.
func WithFallback(s Summarizer) Option {
	return func(a *Assistant) { a.fallback = s }
}

// NewAssistant wraps gen. The limiter must have gen.Name() registered;
// a nil limiter means no budget.
func NewAssistant(gen Generator, limiter *ratelimit.AIRateLimiter, opts ...Option) *Assistant {
	a := &Assistant{
		gen:     gen,
		limiter: limiter,
		memo:    cache.New[string](summaryMemoSize, 0),
		log:     logger.With("llm").With("provider", gen.Name()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assistant) generate(ctx context.Context, prompt string) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, a.gen.Name()); err != nil {
			return "", err
		}
	}
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", a.gen.Name(), err)
	}
	return translate.SanitizeAIText(out), nil
}

// Summarize returns a summary of at most sentences sentences.
func (a *Assistant) Summarize(ctx context.Context, text string, sentences int) (string, error) {
	key := cache.GenerateKey(text, strconv.Itoa(sentences))
	if s, ok := a.memo.Get(key); ok {
		if a.limiter != nil {
			a.limiter.RecordCacheHit()
		}
		return s, nil
	}

	summary, err := a.summarize(ctx, text, sentences)
	if err != nil {
		if a.fallback == nil {
			return "", err
		}
		a.log.Warn("model summary failed, using fallback", "error", err)
		return a.fallback.Summarize(ctx, text, sentences)
	}
	a.memo.Set(key, summary, summaryMemoTTL)
	return summary, nil
}

func (a *Assistant) summarize(ctx context.Context, text string, sentences int) (string, error) {
	out, err := a.generate(ctx, summaryPrompt(text, sentences))
	if err != nil {
		return "", err
	}
	return parseSummary(out)
}

// ClassifyZeroShot picks the best of labels for text.
func (a *Assistant) ClassifyZeroShot(ctx context.Context, text string, labels []string) (string, float64, error) {
	if len(labels) == 0 {
		return "", 0, fmt.Errorf("no candidate labels")
	}
	out, err := a.generate(ctx, zeroShotPrompt(text, labels))
	if err != nil {
		return "", 0, err
	}
	return parseZeroShot(out, labels)
}
