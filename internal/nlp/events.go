package nlp

import (
	"context"
	"strings"

	"github.com/deusflow/geonews/internal/models"
)

const EventOther = "other"

type eventRule struct {
	event    string
	keywords [][]string
}

func eventKeywords(event string, keywords ...string) eventRule {
	r := eventRule{event: event}
	for _, k := range keywords {
		r.keywords = append(r.keywords, words(k))
	}
	return r
}

// Rules are tried in order; on a tie the earlier event wins.
var eventRules = []eventRule{
	eventKeywords("flood",
		"flood", "flooding", "flooded", "water", "rain", "rainfall", "heavy rain",
		"monsoon", "overflow", "river", "dam", "inundation", "waterlogging",
		"submerged", "drowned", "drowning", "rescue", "evacuation", "shelter",
		"बाढ़", "पानी", "बारिश"),
	eventKeywords("fire",
		"fire", "burning", "burnt", "flame", "smoke", "blaze", "wildfire",
		"forest fire", "arson", "explosion", "burn", "inferno", "firefighter",
		"extinguish", "ignite", "combustion"),
	eventKeywords("earthquake",
		"earthquake", "quake", "tremor", "seismic", "magnitude", "richter",
		"epicenter", "aftershock", "tsunami", "shaking", "ground", "collapse",
		"building collapse", "rubble", "भूकंप"),
	eventKeywords("landslide",
		"landslide", "mudslide", "avalanche", "debris", "slope", "hill",
		"mountain", "rock fall", "soil", "erosion", "collapse", "buried",
		"भूस्खलन"),
	eventKeywords("terror_attack",
		"attack", "terror", "terrorist", "bombing", "blast", "shooting",
		"shooter", "gunfire", "explosion", "violence", "victim", "casualties",
		"injured", "killed", "death", "assault", "hostage", "militant"),
	eventKeywords("war",
		"war", "military", "troops", "missile", "airstrike", "air strike",
		"shelling", "invasion", "ceasefire", "frontline", "artillery", "drone strike"),
	eventKeywords("crime",
		"murder", "robbery", "theft", "arrested", "fraud", "kidnapping",
		"smuggling", "burglary", "stabbing", "police said", "charged with"),
}

// Events classifies disaster and conflict events by keyword hits. Each hit
// adds 0.2 confidence, so three hits reach 0.6.
type Events struct{}

func NewEvents() *Events { return &Events{} }

func (Events) Classify(_ context.Context, text string) (*models.EventResult, error) {
	if strings.TrimSpace(text) == "" {
		return &models.EventResult{Type: EventOther}, nil
	}
	tokens := words(text)

	best, bestScore := EventOther, 0
	for _, rule := range eventRules {
		score := 0
		for _, kw := range rule.keywords {
			score += countPhrase(tokens, kw)
		}
		if score > bestScore {
			best, bestScore = rule.event, score
		}
	}
	if bestScore == 0 {
		return &models.EventResult{Type: EventOther}, nil
	}
	return &models.EventResult{Type: best, Confidence: round3(min(1, 0.2*float64(bestScore)))}, nil
}
