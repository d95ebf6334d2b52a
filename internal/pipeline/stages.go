package pipeline

import (
	"fmt"
	"strings"

	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/nlp"
	"github.com/deusflow/geonews/internal/translate"
)

type Stage string

const (
	StagePreprocessing Stage = "preprocessing"
	StageTranslation   Stage = "translation"
	StageEvent         Stage = "event"
	StageLocation      Stage = "location"
	StageSummary       Stage = "summary"
	StageSentiment     Stage = "sentiment"
	StageKeywords      Stage = "keywords"
	StageEntities      Stage = "entities"
)

// AllStages is the execution order.
var AllStages = []Stage{
	StagePreprocessing,
	StageTranslation,
	StageEvent,
	StageLocation,
	StageSummary,
	StageSentiment,
	StageKeywords,
	StageEntities,
}

// dependents are re-run whenever the text they read changes.
var dependents = []Stage{StageSentiment, StageEvent, StageSummary, StageKeywords, StageEntities}

// ParseStages validates stage names from a request. Empty input means all
// stages.
func ParseStages(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]Stage, 0, len(names))
	for _, n := range names {
		s := Stage(strings.ToLower(strings.TrimSpace(n)))
		if !s.valid() {
			return nil, fmt.Errorf("unknown stage %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func (s Stage) valid() bool {
	for _, known := range AllStages {
		if s == known {
			return true
		}
	}
	return false
}

// Expand applies the dependency rule and returns the stages in execution
// order. A nil request means every stage.
func Expand(requested []Stage) []Stage {
	if requested == nil {
		return append([]Stage(nil), AllStages...)
	}

	want := make(map[Stage]bool, len(AllStages))
	for _, s := range requested {
		want[s] = true
	}
	if want[StagePreprocessing] || want[StageTranslation] {
		for _, s := range dependents {
			want[s] = true
		}
	}

	out := make([]Stage, 0, len(want))
	for _, s := range AllStages {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}

// MissingStages lists the stages whose output d does not have yet, after
// the dependency rule. Translation only counts as missing for text that
// is not already English.
func MissingStages(d *models.Document) []Stage {
	var missing []Stage
	if d.CleanText == "" {
		missing = append(missing, StagePreprocessing)
	}
	lang := d.Language
	if lang != "" && lang != nlp.UnknownLanguage && !translate.IsEnglish(lang) && d.TranslatedText == "" {
		missing = append(missing, StageTranslation)
	}
	if d.Event == nil {
		missing = append(missing, StageEvent)
	}
	if d.Location == nil {
		missing = append(missing, StageLocation)
	}
	if d.Summary == nil {
		missing = append(missing, StageSummary)
	}
	if d.Sentiment == nil {
		missing = append(missing, StageSentiment)
	}
	if d.Keywords == nil {
		missing = append(missing, StageKeywords)
	}
	if d.Entities == nil {
		missing = append(missing, StageEntities)
	}
	if len(missing) == 0 {
		return []Stage{}
	}
	return Expand(missing)
}
