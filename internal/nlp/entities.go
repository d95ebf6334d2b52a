package nlp

import (
	"context"
	"strings"
	"unicode"

	"github.com/deusflow/geonews/internal/models"
)

// Entity labels follow the OntoNotes names.
const (
	LabelPerson = "PERSON"
	LabelOrg    = "ORG"
	LabelGPE    = "GPE"
	LabelDate   = "DATE"
	LabelMisc   = "MISC"
)

var orgSuffixes = toSet(
	"inc", "ltd", "limited", "corp", "corporation", "company", "group", "bank",
	"university", "ministry", "department", "police", "party", "council",
	"association", "agency", "commission", "court", "army", "force", "institute",
	"federation", "club", "authority", "board", "organisation", "organization",
)

var personTitles = toSet(
	"mr", "mrs", "ms", "dr", "prof", "president", "minister", "chief", "governor",
	"senator", "judge", "mayor", "general", "captain", "coach", "ceo", "king", "queen",
	"prime",
)

var dateWords = toSet(
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december", "monday", "tuesday",
	"wednesday", "thursday", "friday", "saturday", "sunday",
)

// Entities tags runs of capitalised words with a coarse label.
type Entities struct{}

func NewEntities() *Entities { return &Entities{} }

func (Entities) Extract(_ context.Context, text string) ([]models.Entity, error) {
	out := []models.Entity{}
	seen := make(map[string]bool)

	for _, sentence := range sentences(text) {
		fields := strings.Fields(sentence)
		for i := 0; i < len(fields); i++ {
			w := trimWord(fields[i])
			if !capitalised(w) {
				continue
			}
			// A lone capitalised stopword at sentence start is not a name.
			if i == 0 && isStopword(strings.ToLower(w)) {
				continue
			}

			run := []string{w}
			j := i + 1
			for ; j < len(fields); j++ {
				if endsClause(fields[j-1]) {
					break
				}
				next := trimWord(fields[j])
				if !capitalised(next) {
					break
				}
				run = append(run, next)
			}

			prev := ""
			if i > 0 {
				prev = strings.ToLower(trimWord(fields[i-1]))
			}
			name := strings.Join(run, " ")
			i = j - 1

			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, models.Entity{Text: name, Label: entityLabel(run, prev)})
		}
	}
	return out, nil
}

func entityLabel(run []string, prev string) string {
	lower := strings.ToLower(strings.Join(run, " "))
	last := strings.ToLower(run[len(run)-1])
	first := strings.ToLower(run[0])

	switch {
	case gazetteerCities[lower] != (cityInfo{}) || gazetteerStates[lower] != "" || gazetteerCountries[lower] != "":
		return LabelGPE
	case isDateWord(first):
		return LabelDate
	case isOrgSuffix(last):
		return LabelOrg
	case isTitle(first) && len(run) > 1, isTitle(prev):
		return LabelPerson
	case len(run) >= 2 && len(run) <= 3:
		return LabelPerson
	}
	return LabelMisc
}

func isDateWord(w string) bool {
	_, ok := dateWords[w]
	return ok
}

func isOrgSuffix(w string) bool {
	_, ok := orgSuffixes[w]
	return ok
}

func isTitle(w string) bool {
	_, ok := personTitles[strings.TrimSuffix(w, ".")]
	return ok
}

func trimWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func capitalised(w string) bool {
	if w == "" {
		return false
	}
	r := []rune(w)[0]
	return unicode.IsUpper(r)
}

func endsClause(field string) bool {
	return strings.ContainsAny(field[len(field)-1:], ",;:")
}
