package models

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

type SentimentResult struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

type EventResult struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

type Location struct {
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	Country    string  `json:"country,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Empty reports whether no place was recognised at all.
func (l *Location) Empty() bool {
	return l == nil || (l.City == "" && l.State == "" && l.Country == "")
}

type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Document is a processed unit of text. A nil pointer or nil slice means the
// stage producing that field has not run yet.
type Document struct {
	ID        string `json:"id"`
	ArticleID string `json:"article_id,omitempty"`

	RawText     string `json:"raw_text"`
	CleanText   string `json:"cleaned_text,omitempty"`
	Language    string `json:"language,omitempty"`
	ContentHash string `json:"text_hash,omitempty"`

	TranslatedText    string `json:"translated_text,omitempty"`
	TranslationEngine string `json:"translation_engine,omitempty"`

	Sentiment *SentimentResult `json:"sentiment,omitempty"`
	Event     *EventResult     `json:"event,omitempty"`
	Location  *Location        `json:"location,omitempty"`
	Summary   *string          `json:"summary,omitempty"`
	Keywords  []string         `json:"keywords,omitempty"`
	Entities  []Entity         `json:"entities,omitempty"`

	PipelineMetrics map[string]float64 `json:"pipeline_metrics,omitempty"`
	SourceCategory  string             `json:"source_category,omitempty"`
	Status          DocumentStatus     `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// AnalysisText is the text semantic stages consume: the English translation
// when one exists, otherwise the cleaned text.
func (d *Document) AnalysisText() string {
	if d.TranslatedText != "" {
		return d.TranslatedText
	}
	if d.CleanText != "" {
		return d.CleanText
	}
	return d.RawText
}

// DocumentUpdate carries every field touched by one pipeline call. Set* flags
// mark fields to write; untouched fields keep their stored values.
type DocumentUpdate struct {
	SetPreprocessing bool
	CleanText        string
	Language         string
	ContentHash      string

	SetTranslation    bool
	TranslatedText    string
	TranslationEngine string

	SetSentiment bool
	Sentiment    *SentimentResult

	SetEvent bool
	Event    *EventResult

	SetLocation bool
	Location    *Location

	SetSummary bool
	Summary    *string

	SetKeywords bool
	Keywords    []string

	SetEntities bool
	Entities    []Entity

	PipelineMetrics map[string]float64
	Status          DocumentStatus
	ProcessedAt     time.Time
}

// Apply writes the update onto d in memory.
func (u *DocumentUpdate) Apply(d *Document) {
	if u.SetPreprocessing {
		d.CleanText = u.CleanText
		d.Language = u.Language
		d.ContentHash = u.ContentHash
	}
	if u.SetTranslation {
		d.TranslatedText = u.TranslatedText
		d.TranslationEngine = u.TranslationEngine
	}
	if u.SetSentiment {
		d.Sentiment = u.Sentiment
	}
	if u.SetEvent {
		d.Event = u.Event
	}
	if u.SetLocation {
		d.Location = u.Location
	}
	if u.SetSummary {
		d.Summary = u.Summary
	}
	if u.SetKeywords {
		d.Keywords = u.Keywords
	}
	if u.SetEntities {
		d.Entities = u.Entities
	}
	if u.PipelineMetrics != nil {
		d.PipelineMetrics = u.PipelineMetrics
	}
	if u.Status != "" {
		d.Status = u.Status
	}
	if !u.ProcessedAt.IsZero() {
		t := u.ProcessedAt
		d.ProcessedAt = &t
		d.UpdatedAt = t
	}
}
