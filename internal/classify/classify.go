// Package classify labels ingested items with a category and sub-category
// using keyword rules, a known-entity boost and an optional zero-shot model.
package classify

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/deusflow/geonews/internal/cache"
	"github.com/deusflow/geonews/internal/logger"
)

const (
	Unknown = "unknown"

	MinConfidence     = 0.15
	generalConfidence = 0.2
	weakConfidence    = 0.4
	entityBonus       = 0.25
	maxBoosted        = 0.85
	zeroShotMinScore  = 0.55
	zeroShotMaxRunes  = 512
	zeroShotMemoSize  = 1024
)

const (
	MethodRules    = "rules"
	MethodEntity   = "entity"
	MethodZeroShot = "zero_shot"
	MethodNone     = "none"
)

// Result is always usable; with no signal it is unknown/0.
type Result struct {
	Category      string  `json:"category"`
	SubCategory   string  `json:"sub_category,omitempty"`
	Confidence    float64 `json:"confidence"`
	SubConfidence float64 `json:"sub_confidence"`
	Method        string  `json:"method"`
}

// ZeroShot picks the best of labels for text, returning the label and its
// score in [0,1].
type ZeroShot interface {
	ClassifyZeroShot(ctx context.Context, text string, labels []string) (string, float64, error)
}

type zeroShotAnswer struct {
	sub   string
	score float64
}

type Classifier struct {
	zeroShot ZeroShot
	memo     *cache.Cache[zeroShotAnswer]
	log      *slog.Logger
}

// New creates a Classifier. zs may be nil to disable the model fallback.
func New(zs ZeroShot) *Classifier {
	return &Classifier{
		zeroShot: zs,
		memo:     cache.New[zeroShotAnswer](zeroShotMemoSize, 0),
		log:      logger.With("classify"),
	}
}

type compiledRule struct {
	name    string
	phrases []*regexp.Regexp
	signals []*regexp.Regexp
}

type compiledBoost struct {
	entity *regexp.Regexp
	sub    string
}

var (
	compiledCategories = compileRules(categories)
	compiledSubRules   = func() map[string][]compiledRule {
		out := make(map[string][]compiledRule, len(subRules))
		for cat, rules := range subRules {
			out[cat] = compileRules(rules)
		}
		return out
	}()
	compiledBoosts = func() map[string][]compiledBoost {
		out := make(map[string][]compiledBoost, len(entityBoost))
		for cat, list := range entityBoost {
			for _, b := range list {
				out[cat] = append(out[cat], compiledBoost{wordPattern(b.entity), b.sub})
			}
		}
		return out
	}()
)

func wordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

func compileRules(rules []categoryRule) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{name: r.name}
		for _, p := range r.phrases {
			cr.phrases = append(cr.phrases, wordPattern(p))
		}
		for _, s := range r.signals {
			cr.signals = append(cr.signals, wordPattern(s))
		}
		out = append(out, cr)
	}
	return out
}

func (r compiledRule) score(text string) int {
	score := 0
	for _, p := range r.phrases {
		if p.MatchString(text) {
			score += 3
		}
	}
	for _, s := range r.signals {
		if s.MatchString(text) {
			score++
		}
	}
	return score
}

// Classify labels text, usually an item's title and snippet.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return unknown()
	}

	category, conf := categorize(text)
	if category == Unknown {
		return unknown()
	}

	res := Result{Category: category, Confidence: conf, Method: MethodRules}
	res.SubCategory, res.SubConfidence = subCategorize(text, category)

	if sub, ok := boost(text, category, res.SubCategory); ok {
		res.SubCategory = sub
		res.SubConfidence = round2(math.Min(res.SubConfidence+entityBonus, maxBoosted))
		res.Method = MethodEntity
	}

	if res.SubConfidence < weakConfidence && c.zeroShot != nil {
		if ans, ok := c.predict(ctx, text, category); ok {
			res.SubCategory = ans.sub
			res.SubConfidence = ans.score
			res.Method = MethodZeroShot
		}
	}

	if res.SubConfidence < weakConfidence {
		res.SubCategory = category + "_general"
	}
	return res
}

func unknown() Result {
	return Result{Category: Unknown, Method: MethodNone}
}

// categorize runs the rule pass. Confidence is the winner's share of all
// category hits.
func categorize(text string) (string, float64) {
	best, bestScore, total := "", 0, 0
	for _, r := range compiledCategories {
		s := r.score(text)
		total += s
		if s > bestScore {
			best, bestScore = r.name, s
		}
	}
	if bestScore == 0 {
		return Unknown, 0
	}
	conf := round2(float64(bestScore) / float64(total))
	if conf < MinConfidence {
		return Unknown, 0
	}
	return best, conf
}

func subCategorize(text, category string) (string, float64) {
	best, bestScore := "", 0
	for _, r := range compiledSubRules[category] {
		if s := r.score(text); s > bestScore {
			best, bestScore = r.name, s
		}
	}
	if bestScore == 0 {
		return category + "_general", generalConfidence
	}
	return best, round2(math.Min(1, float64(bestScore)/6))
}

func boost(text, category, sub string) (string, bool) {
	if !strings.HasSuffix(sub, "_general") {
		return "", false
	}
	for _, b := range compiledBoosts[category] {
		if b.entity.MatchString(text) {
			return b.sub, true
		}
	}
	return "", false
}

// predict asks the zero-shot model, memoizing per (text, category). Scores
// below the acceptance threshold are remembered as misses.
func (c *Classifier) predict(ctx context.Context, text, category string) (zeroShotAnswer, bool) {
	cands, ok := zeroShotLabels[category]
	if !ok {
		return zeroShotAnswer{}, false
	}
	if r := []rune(text); len(r) > zeroShotMaxRunes {
		text = string(r[:zeroShotMaxRunes])
	}

	key := cache.GenerateKey(text, category)
	if ans, ok := c.memo.Get(key); ok {
		return ans, ans.sub != ""
	}

	labels := make([]string, len(cands))
	for i, cd := range cands {
		labels[i] = cd.label
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	label, score, err := c.zeroShot.ClassifyZeroShot(ctx, text, labels)
	if err != nil {
		// Errors are not memoized.
		c.log.Warn("zero-shot classification failed", "category", category, "error", err)
		return zeroShotAnswer{}, false
	}

	var ans zeroShotAnswer
	if score >= zeroShotMinScore {
		for _, cd := range cands {
			if cd.label == label {
				ans = zeroShotAnswer{sub: cd.sub, score: round2(math.Min(score, maxBoosted))}
				break
			}
		}
	}
	c.memo.Set(key, ans, 0)

	if ans.sub != "" {
		c.log.Debug("zero-shot sub-category", "category", category, "sub", ans.sub, "score", ans.score)
	}
	return ans, ans.sub != ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
