package nlp

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
)

const geocodeTimeout = 5 * time.Second

// maxGeocodeCandidates bounds the lookups per text.
const maxGeocodeCandidates = 3

// Geocoder resolves a free-form place name.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*models.Location, error)
}

// Locator extracts the place a text is about. Known places come from the
// gazetteer; otherwise capitalised names after "in", "at", "near" or "from"
// are geocoded.
type Locator struct {
	gazetteer *Gazetteer
	geocoder  Geocoder
	log       *slog.Logger
}

// NewLocator creates a Locator. geocoder may be nil.
func NewLocator(geocoder Geocoder) *Locator {
	return &Locator{gazetteer: NewGazetteer(), geocoder: geocoder, log: logger.With("locations")}
}

// Extract returns the location of text, or nil when none is found.
// Geocoding failures are logged and treated as misses.
func (l *Locator) Extract(ctx context.Context, text string) (*models.Location, error) {
	if loc := l.gazetteer.Find(text); loc != nil {
		return loc, nil
	}
	if l.geocoder == nil {
		return nil, nil
	}

	for _, candidate := range placeCandidates(text, maxGeocodeCandidates) {
		gctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		loc, err := l.geocoder.Geocode(gctx, candidate)
		cancel()
		if err != nil {
			l.log.Warn("geocode failed", "place", candidate, "error", err)
			continue
		}
		if loc != nil {
			return loc, nil
		}
	}
	return nil, nil
}

var placePrepositions = toSet("in", "at", "near", "from")

// placeCandidates returns capitalised word runs that follow a place
// preposition, in order of appearance.
func placeCandidates(text string, limit int) []string {
	fields := strings.Fields(text)
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < len(fields)-1 && len(out) < limit; i++ {
		if _, ok := placePrepositions[strings.ToLower(fields[i])]; !ok {
			continue
		}
		var parts []string
		for j := i + 1; j < len(fields) && len(parts) < maxPlaceWords; j++ {
			w := strings.TrimFunc(fields[j], func(r rune) bool { return !unicode.IsLetter(r) })
			if w == "" || !unicode.IsUpper([]rune(w)[0]) {
				break
			}
			parts = append(parts, w)
			if last := fields[j]; strings.IndexFunc(last, unicode.IsPunct) >= 0 {
				break
			}
		}
		if len(parts) == 0 {
			continue
		}
		name := strings.Join(parts, " ")
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
