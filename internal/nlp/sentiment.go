package nlp

import (
	"context"
	"math"

	"github.com/deusflow/geonews/internal/models"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"

	MethodLexicon = "lexicon"
	MethodNone    = "none"
)

// valence is a small news-oriented polarity lexicon on a -4..4 scale.
var valence = map[string]float64{
	"good": 1.9, "great": 3.1, "excellent": 3.2, "success": 2.7, "successful": 2.8,
	"win": 2.8, "wins": 2.7, "won": 2.7, "victory": 2.9, "celebrate": 2.7,
	"celebrates": 2.7, "hope": 1.9, "hopeful": 2.3, "improve": 1.9, "improved": 2.1,
	"growth": 1.6, "gain": 1.9, "gains": 1.8, "rescue": 1.7, "rescued": 2.0,
	"safe": 1.9, "relief": 2.1, "peace": 2.5, "agreement": 1.6, "boost": 1.9,
	"record": 1.2, "praise": 2.6, "praised": 2.4, "support": 1.7, "benefit": 2.0,
	"happy": 2.7, "love": 3.2, "recovery": 1.8, "recovered": 1.8, "strong": 2.3,
	"award": 2.5, "honoured": 2.2, "honored": 2.2, "launch": 0.9, "stable": 1.2,
	"bad": -2.5, "terrible": -3.1, "crisis": -3.1, "disaster": -3.1, "flood": -1.9,
	"floods": -1.9, "fire": -1.4, "earthquake": -2.4, "killed": -3.5, "kill": -3.7,
	"dead": -3.3, "death": -2.9, "deaths": -2.9, "died": -2.6, "injured": -2.4,
	"attack": -2.1, "attacks": -2.1, "bomb": -2.2, "blast": -2.2, "war": -2.9,
	"violence": -3.1, "crash": -2.1, "collapse": -2.1, "collapsed": -2.1, "loss": -1.3,
	"losses": -1.5, "fall": -1.1, "falls": -1.1, "decline": -1.5, "fear": -2.2,
	"fears": -2.2, "worry": -1.9, "concern": -1.3, "concerns": -1.3, "protest": -1.0,
	"arrested": -2.1, "fraud": -2.8, "corruption": -2.9, "victim": -2.5, "victims": -2.5,
	"damage": -2.2, "damaged": -2.1, "destroyed": -2.8, "threat": -2.4, "warning": -1.4,
	"fail": -2.5, "failed": -2.3, "failure": -2.6, "shortage": -1.6, "poor": -2.1,
	"angry": -2.3, "sad": -2.1, "tragedy": -3.4, "tragic": -3.2, "missing": -1.2,
	"evacuated": -1.3, "hostage": -2.8, "terror": -3.0, "lose": -1.6, "lost": -1.3,
}

var negations = toSet("not", "no", "never", "without", "none", "nobody", "nothing", "neither", "nor", "cannot", "cant", "dont", "doesnt", "didnt", "isnt", "wasnt", "wont")

var intensifiers = map[string]float64{
	"very": 0.293, "extremely": 0.293, "highly": 0.293, "severely": 0.293,
	"deeply": 0.293, "hugely": 0.293, "slightly": -0.293, "somewhat": -0.293,
}

// Sentiment scores text with a lexicon, negation and intensifiers, in the
// manner of VADER.
type Sentiment struct{}

func NewSentiment() *Sentiment { return &Sentiment{} }

func (Sentiment) Analyze(_ context.Context, text string) (*models.SentimentResult, error) {
	tokens := words(text)
	if len(tokens) == 0 {
		return &models.SentimentResult{Label: SentimentNeutral, Method: MethodNone, Scores: map[string]float64{}}, nil
	}

	var sum, pos, neg float64
	neutral := 0
	for i, t := range tokens {
		v, ok := valence[t]
		if !ok {
			neutral++
			continue
		}
		if i > 0 {
			if boost, ok := intensifiers[tokens[i-1]]; ok {
				if v > 0 {
					v += boost
				} else {
					v -= boost
				}
			}
		}
		for j := max(0, i-3); j < i; j++ {
			if _, ok := negations[tokens[j]]; ok {
				v *= -0.74
				break
			}
		}
		sum += v
		if v > 0 {
			pos += v + 1
		} else {
			neg += -v + 1
		}
	}

	compound := sum / math.Sqrt(sum*sum+15)
	total := pos + neg + float64(neutral)

	label := SentimentNeutral
	switch {
	case compound >= 0.05:
		label = SentimentPositive
	case compound <= -0.05:
		label = SentimentNegative
	}

	return &models.SentimentResult{
		Label:      label,
		Confidence: round3(math.Abs(compound)),
		Method:     MethodLexicon,
		Scores: map[string]float64{
			"negative": round3(neg / total),
			"neutral":  round3(float64(neutral) / total),
			"positive": round3(pos / total),
			"compound": round3(compound),
		},
	}, nil
}
