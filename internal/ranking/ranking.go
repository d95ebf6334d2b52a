// Package ranking scores discovered articles against a request context.
// Scores are pure functions of their inputs.
package ranking

import (
	"sort"
	"time"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
)

var tierWeight = map[models.Tier]int{
	models.ScopeCity:      100,
	models.ScopeState:     80,
	models.ScopeCountry:   60,
	models.ScopeContinent: 40,
	models.ScopeGlobal:    20,
}

// Order is the total order of a discovery page. The id tie-break keeps
// pages stable across requests.
var Order = pagination.New(pagination.DefaultMaxLimit,
	pagination.SortField{Name: "score", Desc: true, Kind: pagination.KindInt},
	pagination.SortField{Name: "created_at", Desc: true, Kind: pagination.KindTime},
	pagination.SortField{Name: "id", Desc: true, Kind: pagination.KindString},
)

// Ranked is an article found in a tier, with its score.
type Ranked struct {
	Article models.Article
	Tier    models.Tier
	Score   int
}

// Key returns the sort-key values of r under Order.
func (r Ranked) Key() map[string]any {
	return map[string]any{
		"score":      int64(r.Score),
		"created_at": r.Article.CreatedAt,
		"id":         r.Article.ID,
	}
}

// Score computes the relevance of a found in tier for c at time now.
func Score(a *models.Article, c models.Context, tier models.Tier, now time.Time) int {
	score := tierWeight[tier]

	switch {
	case c.City != "" && a.City == c.City:
		score += 30
	case c.State != "" && a.State == c.State:
		score += 20
	case c.Country != "" && a.Country == c.Country:
		score += 10
	}

	if c.HasLanguage(a.Language) {
		score += 15
	} else {
		score += 5
	}

	if c.Category != "" && (a.Category == c.Category || a.InferredCategory == c.Category) {
		score += 15
	}

	if ts := a.Timestamp(); !ts.IsZero() {
		hours := int(now.Sub(ts).Hours())
		if hours < 0 {
			hours = 0
		}
		if bonus := 20 - hours; bonus > 0 {
			score += bonus
		}
	}
	return score
}

// Sort orders items by score, then creation time, then id, all descending.
func Sort(items []Ranked) {
	sort.Slice(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

func Less(a, b Ranked) bool {
	return Order.Compare(a.Key(), b.Key()) < 0
}
