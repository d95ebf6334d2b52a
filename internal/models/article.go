// Package models holds the records shared by the ingestion, discovery and
// analysis layers.
package models

import (
	"strings"
	"time"
)

// Article is a single ingested feed item.
type Article struct {
	ID          string     `json:"id"`
	URL         string     `json:"original_url"`
	Title       string     `json:"title"`
	Snippet     string     `json:"rss_summary"`
	Source      string     `json:"source"`
	Language    string     `json:"language"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	Country     string     `json:"country"`
	Continent   string     `json:"continent"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url"`
	PublishedAt *time.Time `json:"published_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	InferredCategory   string  `json:"inferred_category,omitempty"`
	SubCategory        string  `json:"sub_category,omitempty"`
	CategoryConfidence float64 `json:"category_confidence"`

	// Written only by on-demand analysis.
	Analyzed   bool       `json:"analyzed"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
	RawText    string     `json:"raw_text,omitempty"`
	Summary    string     `json:"summary,omitempty"`
}

// Timestamp is the moment used for recency: the publish date when the feed
// supplied one, otherwise the ingestion time.
func (a *Article) Timestamp() time.Time {
	if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
		return *a.PublishedAt
	}
	return a.CreatedAt
}

// DisplaySummary prefers the analysis summary once the article was analyzed.
func (a *Article) DisplaySummary() string {
	if a.Analyzed && strings.TrimSpace(a.Summary) != "" {
		return a.Summary
	}
	return a.Snippet
}

// InsertResult reports what happened to an insert attempt.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyKnown
)

func (r InsertResult) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "already_known"
}

// ArticleAnalysis is the part of an article written when analysis completes.
type ArticleAnalysis struct {
	ArticleID  string
	Summary    string
	AnalyzedAt time.Time
}
