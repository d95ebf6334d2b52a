package pipeline

import (
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/nlp"
)

// minEventConfidence is the floor below which an event label is dropped.
const minEventConfidence = 0.6

// implausibleEvents lists event types a source category cannot report.
var implausibleEvents = map[string]map[string]bool{
	"sports": {
		"terror_attack": true, "crime": true, "war": true, "natural_disaster": true,
		"flood": true, "fire": true, "earthquake": true, "landslide": true,
	},
	"entertainment": {
		"terror_attack": true, "war": true,
	},
}

func applyGuardrail(ev *models.EventResult, sourceCategory string) *models.EventResult {
	other := &models.EventResult{Type: nlp.EventOther, Confidence: 0}
	if ev == nil || ev.Confidence < minEventConfidence {
		return other
	}
	if implausibleEvents[sourceCategory][ev.Type] {
		return other
	}
	return ev
}
