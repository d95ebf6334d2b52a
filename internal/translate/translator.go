// Package translate turns non-English text into English through a primary
// engine guarded by a circuit breaker and a secondary fallback engine.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"unicode"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/metrics"
	"github.com/deusflow/geonews/internal/retry"
	"github.com/deusflow/geonews/internal/storage"
)

const (
	// FailedSentinel replaces a chunk neither engine could translate.
	FailedSentinel = "[translation failed]"

	DefaultChunkSize = 4000

	EngineNone   = "none"
	EngineCache  = "cache"
	EngineFailed = "failed"
)

// Result is the outcome of translating one text.
type Result struct {
	Text     string `json:"translated_text"`
	Source   string `json:"original_language"`
	Engine   string `json:"translation_engine"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped"`
	Failed   bool   `json:"failed"`
	Original string `json:"-"`
	// Merged is set on a partial failure: translated chunks with the
	// untranslated ones left in their original language.
	Merged   string `json:"-"`
}

type Translator struct {
	primary   Engine
	secondary Engine
	breaker   *Breaker
	chunkSize int
	cache     storage.TranslationCache
	log       *slog.Logger
}

type Option func(*Translator)

// WithCache memoizes successful translations in c.
func WithCache(c storage.TranslationCache) Option {
	return func(t *Translator) { t.cache = c }
}

func WithChunkSize(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.chunkSize = n
		}
	}
}

// New builds a Translator. Either engine may be nil; breaker may be nil for
// a default one.
func New(primary, secondary Engine, breaker *Breaker, opts ...Option) *Translator {
	if breaker == nil {
		breaker = NewBreaker(DefaultCooldown, nil)
	}
	t := &Translator{
		primary:   primary,
		secondary: secondary,
		breaker:   breaker,
		chunkSize: DefaultChunkSize,
		log:       logger.With("translate"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Translator) Breaker() *Breaker { return t.breaker }

// ToEnglish translates text from srcLang. Empty and English input is
// returned unchanged. Chunks that fail on both engines are replaced by
// FailedSentinel and the result is marked Failed. If some chunks did
// translate, Merged keeps them.
func (t *Translator) ToEnglish(ctx context.Context, text, srcLang string) Result {
	src := NormalizeLanguage(srcLang)
	res := Result{Text: text, Source: src, Engine: EngineNone, Original: text}
	if strings.TrimSpace(text) == "" || src == English {
		res.Skipped = true
		return res
	}

	key := cacheKey(src, text)
	if t.cache != nil {
		cached, engine, ok, err := t.cache.GetTranslation(ctx, key)
		if err != nil {
			t.log.Warn("translation cache read failed", "error", err)
		} else if ok {
			res.Text = cached
			res.Engine = EngineCache
			if engine != "" {
				res.Engine = engine
			}
			return res
		}
	}

	chunks := splitChunks(text, t.chunkSize)
	out := make([]string, 0, len(chunks))
	merged := make([]string, 0, len(chunks))
	res.Engine = EngineFailed
	for _, chunk := range chunks {
		translated, engine, ok := t.translateChunk(ctx, chunk, src)
		if !ok {
			res.Failed = true
			out = append(out, FailedSentinel)
			merged = append(merged, chunk)
			continue
		}
		res.Engine = engine
		out = append(out, translated)
		merged = append(merged, translated)
	}
	res.Chunks = len(chunks)
	res.Text = strings.Join(out, " ")
	if res.Failed && res.Engine != EngineFailed {
		res.Merged = strings.Join(merged, " ")
	}

	if !res.Failed && t.cache != nil {
		if err := t.cache.PutTranslation(ctx, key, res.Text, res.Engine); err != nil {
			t.log.Warn("translation cache write failed", "error", err)
		}
	}
	return res
}

// Batch translates texts, calling the engines once per distinct text.
// Results are returned in input order.
func (t *Translator) Batch(ctx context.Context, texts []string, srcLang string) []Result {
	memo := make(map[string]Result, len(texts))
	results := make([]Result, len(texts))
	for i, text := range texts {
		r, ok := memo[text]
		if !ok {
			r = t.ToEnglish(ctx, text, srcLang)
			memo[text] = r
		}
		results[i] = r
	}
	t.log.Debug("batch translated", "texts", len(texts), "unique", len(memo))
	return results
}

func (t *Translator) translateChunk(ctx context.Context, chunk, src string) (string, string, bool) {
	if t.primary != nil && t.breaker.Allow() {
		var out string
		err := retry.WithRetry(ctx, retry.Once, func(ctx context.Context) error {
			var err error
			out, err = t.primary.Translate(ctx, chunk, src, English)
			return err
		})
		if err == nil {
			t.breaker.RecordSuccess()
			metrics.Global.IncrementTranslation("primary")
			return SanitizeAIText(out), t.primary.Name(), true
		}
		t.breaker.RecordFailure()
		t.log.Warn("primary translation failed, breaker open", "engine", t.primary.Name(), "lang", src, "error", err)
	}

	if t.secondary != nil {
		out, err := t.secondary.Translate(ctx, chunk, src, English)
		if err == nil {
			metrics.Global.IncrementTranslation("secondary")
			return SanitizeAIText(out), t.secondary.Name(), true
		}
		t.log.Warn("secondary translation failed", "engine", t.secondary.Name(), "lang", src, "error", err)
	}

	metrics.Global.IncrementTranslation("failed")
	return "", "", false
}

func cacheKey(lang, text string) string {
	sum := sha256.Sum256([]byte(lang + "|" + text))
	return hex.EncodeToString(sum[:])
}

// splitChunks cuts text into pieces of at most size runes, preferring
// sentence ends and then spaces as cut points.
func splitChunks(text string, size int) []string {
	runes := []rune(strings.TrimSpace(text))
	if size <= 0 || len(runes) <= size {
		return []string{string(runes)}
	}

	var chunks []string
	for len(runes) > size {
		cut := lastBoundary(runes[:size])
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

func lastBoundary(window []rune) int {
	for i := len(window) - 1; i > len(window)/2; i-- {
		switch window[i] {
		case '.', '!', '?', '।', '。':
			return i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return len(window)
}
