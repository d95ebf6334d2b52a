package nlp

import (
	"context"
	"sort"
	"strings"
)

// minSummaryWords is the length below which text is its own summary.
const minSummaryWords = 40

// Extractive picks the highest scoring sentences by normalized word
// frequency and returns them in their original order.
type Extractive struct{}

func NewExtractive() *Extractive { return &Extractive{} }

func (Extractive) Summarize(_ context.Context, text string, count int) (string, error) {
	text = strings.TrimSpace(text)
	if count <= 0 || len(strings.Fields(text)) < minSummaryWords {
		return text, nil
	}

	sents := sentences(text)
	if len(sents) <= count {
		return strings.Join(sents, " "), nil
	}

	freq := make(map[string]float64)
	top := 0.0
	for _, w := range words(text) {
		if isStopword(w) || len([]rune(w)) < 3 {
			continue
		}
		freq[w]++
		top = max(top, freq[w])
	}
	if top == 0 {
		return strings.Join(sents[:count], " "), nil
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sents))
	for i, s := range sents {
		tokens := words(s)
		var score float64
		for _, w := range tokens {
			score += freq[w] / top
		}
		if len(tokens) > 0 {
			// Damp very long sentences without favouring fragments.
			score /= float64(len(tokens)+10) / 10
		}
		ranked[i] = scored{idx: i, score: score}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	picked := ranked[:count]
	sort.Slice(picked, func(a, b int) bool { return picked[a].idx < picked[b].idx })

	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = sents[p.idx]
	}
	return strings.Join(out, " "), nil
}
