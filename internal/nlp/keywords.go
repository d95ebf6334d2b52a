package nlp

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Rake ranks candidate phrases with the RAKE degree/frequency score.
// Phrases are runs of content words between stopwords and punctuation.
type Rake struct{}

func NewRake() *Rake { return &Rake{} }

func (Rake) Keywords(_ context.Context, text string, topN int) ([]string, error) {
	phrases := candidatePhrases(text)
	if len(phrases) == 0 {
		return []string{}, nil
	}

	freq := make(map[string]float64)
	degree := make(map[string]float64)
	for _, p := range phrases {
		for _, w := range p {
			freq[w]++
			degree[w] += float64(len(p) - 1)
		}
	}

	type scored struct {
		phrase string
		score  float64
		first  int
	}
	byPhrase := make(map[string]*scored)
	var order []*scored
	for i, p := range phrases {
		key := strings.Join(p, " ")
		if _, ok := byPhrase[key]; ok {
			continue
		}
		var score float64
		for _, w := range p {
			score += (degree[w] + freq[w]) / freq[w]
		}
		s := &scored{phrase: key, score: score, first: i}
		byPhrase[key] = s
		order = append(order, s)
	}

	sort.SliceStable(order, func(a, b int) bool {
		if order[a].score != order[b].score {
			return order[a].score > order[b].score
		}
		return order[a].first < order[b].first
	})

	if topN <= 0 || topN > len(order) {
		topN = len(order)
	}
	out := make([]string, topN)
	for i := range out {
		out[i] = order[i].phrase
	}
	return out, nil
}

func candidatePhrases(text string) [][]string {
	var phrases [][]string
	var current []string
	flush := func() {
		if len(current) > 0 {
			phrases = append(phrases, current)
			current = nil
		}
	}

	// Split on punctuation first so phrases never cross clause boundaries.
	clauses := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) && r != '\'' && r != '’' && r != '-'
	})
	for _, clause := range clauses {
		for _, w := range words(clause) {
			if isStopword(w) || isNumber(w) {
				flush()
				continue
			}
			current = append(current, w)
		}
		flush()
	}
	return phrases
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
