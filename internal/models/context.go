package models

import "strings"

// Scope is the most specific geographic level present in a request.
type Scope string

const (
	ScopeCity      Scope = "city"
	ScopeState     Scope = "state"
	ScopeCountry   Scope = "country"
	ScopeContinent Scope = "continent"
	ScopeGlobal    Scope = "global"
)

// Tier is the discovery level an article was found in. Tiers share names
// with scopes.
type Tier = Scope

// Provenance records where a context's language list came from.
type Provenance string

const (
	ProvenanceUserProvided Provenance = "user_provided"
	ProvenanceInferred     Provenance = "inferred"
	ProvenanceNone         Provenance = "none"
)

// Context is the per-request discovery scope. It is never persisted.
// Empty strings mean "unknown".
type Context struct {
	Scope      Scope      `json:"scope"`
	City       string     `json:"city,omitempty"`
	State      string     `json:"state,omitempty"`
	Country    string     `json:"country,omitempty"`
	Continent  string     `json:"continent,omitempty"`
	Languages  []string   `json:"language"`
	Provenance Provenance `json:"language_provenance"`
	Category   string     `json:"category,omitempty"`
	Source     string     `json:"source,omitempty"`
	Analyzed   *bool      `json:"analyzed,omitempty"`
	Cursor     string     `json:"-"`
	Limit      int        `json:"-"`
}

// HasLanguage reports whether lang is in the context's language list.
func (c Context) HasLanguage(lang string) bool {
	for _, l := range c.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// NormalizeHint lower-cases a raw hint and maps the absent sentinels to "".
func NormalizeHint(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "unknown", "null", "none", "undefined":
		return ""
	}
	return v
}
