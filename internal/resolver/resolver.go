// Package resolver turns raw request hints into a discovery context.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/storage"
)

const (
	MetricCalls    = "resolver_calls_total"
	MetricFallback = "resolver_fallback_used"
)

// Hints are the raw, unvalidated request values. Any of "", "unknown",
// "null", "none" means absent.
type Hints struct {
	City      string
	State     string
	Country   string
	Continent string
	Language  string // comma separated
	Category  string
	Source    string
	Analyzed  *bool
	Cursor    string
	Limit     int
}

// LanguageLookup answers "which languages are spoken at this place".
type LanguageLookup interface {
	Languages(ctx context.Context, level models.Scope, name string) ([]string, error)
}

// ContinentLookup is optionally implemented by a LanguageLookup that can
// place a country on a continent.
type ContinentLookup interface {
	ContinentOf(country string) string
}

type Resolver struct {
	lookup   LanguageLookup
	counters storage.CounterStore
	log      *slog.Logger
}

// New creates a Resolver. Both collaborators may be nil.
func New(lookup LanguageLookup, counters storage.CounterStore) *Resolver {
	return &Resolver{lookup: lookup, counters: counters, log: logger.With("resolver")}
}

// Resolve never fails: lookup and counter errors are logged and ignored.
func (r *Resolver) Resolve(ctx context.Context, h Hints) models.Context {
	r.count(ctx, MetricCalls)

	c := models.Context{
		City:      models.NormalizeHint(h.City),
		State:     models.NormalizeHint(h.State),
		Country:   models.NormalizeHint(h.Country),
		Continent: models.NormalizeHint(h.Continent),
		Category:  models.NormalizeHint(h.Category),
		Source:    strings.TrimSpace(h.Source),
		Analyzed:  h.Analyzed,
		Cursor:    h.Cursor,
		Limit:     h.Limit,
	}
	c.Scope = scopeOf(c)

	if c.Continent == "" && c.Country != "" {
		if cl, ok := r.lookup.(ContinentLookup); ok {
			c.Continent = cl.ContinentOf(c.Country)
		}
	}

	if langs := splitLanguages(h.Language); len(langs) > 0 {
		c.Languages = langs
		c.Provenance = models.ProvenanceUserProvided
	} else {
		c.Languages = r.infer(ctx, c)
		if len(c.Languages) > 0 {
			c.Provenance = models.ProvenanceInferred
		} else {
			c.Provenance = models.ProvenanceNone
			r.count(ctx, MetricFallback)
		}
	}

	r.log.Debug("context resolved",
		"scope", c.Scope,
		"city", c.City,
		"state", c.State,
		"country", c.Country,
		"continent", c.Continent,
		"languages", c.Languages,
		"provenance", c.Provenance,
		"category", c.Category,
	)
	return c
}

func scopeOf(c models.Context) models.Scope {
	switch {
	case c.City != "":
		return models.ScopeCity
	case c.State != "":
		return models.ScopeState
	case c.Country != "":
		return models.ScopeCountry
	case c.Continent != "":
		return models.ScopeContinent
	}
	return models.ScopeGlobal
}

func splitLanguages(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if l := models.NormalizeHint(part); l != "" {
			out = appendUnique(out, l)
		}
	}
	return out
}

// infer unions the languages of every known level, most specific first.
func (r *Resolver) infer(ctx context.Context, c models.Context) []string {
	langs := []string{}
	if r.lookup == nil {
		return langs
	}

	levels := []struct {
		scope models.Scope
		name  string
	}{
		{models.ScopeCity, c.City},
		{models.ScopeState, c.State},
		{models.ScopeCountry, c.Country},
		{models.ScopeContinent, c.Continent},
	}
	for _, lv := range levels {
		if lv.name == "" {
			continue
		}
		found, err := r.lookup.Languages(ctx, lv.scope, lv.name)
		if err != nil {
			r.log.Warn("language lookup failed", "level", lv.scope, "name", lv.name, "error", err)
			continue
		}
		for _, l := range found {
			langs = appendUnique(langs, strings.ToLower(l))
		}
	}
	return langs
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func (r *Resolver) count(ctx context.Context, metric string) {
	if r.counters == nil {
		return
	}
	if err := r.counters.Increment(ctx, metric); err != nil {
		r.log.Warn("failed to record resolver metric", "metric", metric, "error", err)
	}
}
