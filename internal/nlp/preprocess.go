package nlp

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// UnknownLanguage is reported when no language can be detected.
const UnknownLanguage = "unknown"

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Preprocessed is the output of the preprocessing stage.
type Preprocessed struct {
	CleanText string
	Language  string
	Hash      string
}

// Preprocess cleans raw text, detects its language and hashes it for
// duplicate detection.
func Preprocess(raw string) Preprocessed {
	clean := Clean(raw)
	return Preprocessed{
		CleanText: clean,
		Language:  DetectLanguage(clean),
		Hash:      ContentHash(clean),
	}
}

// Clean applies NFKC normalization and strips URLs, HTML tags, emoji and
// redundant whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF,
		r >= 0x1F1E0 && r <= 0x1F1FF,
		r >= 0x2600 && r <= 0x27BF,
		r == 0xFE0F, r == 0x200D:
		return true
	}
	return false
}

// ContentHash is the md5 of the lower-cased, whitespace-collapsed text.
func ContentHash(text string) string {
	if text == "" {
		return ""
	}
	normalized := strings.TrimSpace(spacePattern.ReplaceAllString(strings.ToLower(text), " "))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type scriptRule struct {
	table *unicode.RangeTable
	lang  string
}

var scripts = []scriptRule{
	{unicode.Devanagari, "hi"},
	{unicode.Bengali, "bn"},
	{unicode.Tamil, "ta"},
	{unicode.Telugu, "te"},
	{unicode.Gujarati, "gu"},
	{unicode.Gurmukhi, "pa"},
	{unicode.Kannada, "kn"},
	{unicode.Malayalam, "ml"},
	{unicode.Arabic, "ar"},
	{unicode.Hebrew, "he"},
	{unicode.Thai, "th"},
	{unicode.Hangul, "ko"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh-CN"},
	{unicode.Cyrillic, "ru"},
	{unicode.Greek, "el"},
	{unicode.Latin, "latin"},
}

// Function words that tell Latin-script languages apart.
var latinMarkers = map[string][]string{
	"en": {"the", "and", "of", "to", "is", "in", "that", "for", "with", "was"},
	"es": {"el", "la", "los", "las", "de", "que", "y", "en", "por", "del"},
	"fr": {"le", "la", "les", "des", "et", "est", "une", "dans", "pour", "du"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "mit", "ein", "eine", "den"},
	"pt": {"o", "os", "da", "do", "que", "não", "uma", "em", "para", "com"},
	"it": {"il", "gli", "della", "che", "di", "è", "una", "per", "sono", "nel"},
	"nl": {"het", "de", "een", "van", "en", "niet", "voor", "zijn", "met", "op"},
	"id": {"yang", "dan", "di", "ini", "itu", "dengan", "untuk", "tidak", "dari", "akan"},
	"da": {"og", "det", "er", "ikke", "af", "på", "til", "med", "som", "har"},
}

var latinOrder = []string{"en", "es", "fr", "de", "pt", "it", "nl", "id", "da"}

// Marathi shares Devanagari with Hindi; these words are common in Marathi
// and rare in Hindi.
var marathiMarkers = toSet("आहे", "आणि", "नाही", "केले", "त्यांनी", "मध्ये")

// DetectLanguage guesses the ISO 639-1 code of text from its dominant
// script and, for Latin script, from function-word frequencies.
func DetectLanguage(text string) string {
	counts := make(map[string]int)
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[s.lang]++
				break
			}
		}
	}
	if letters == 0 {
		return UnknownLanguage
	}

	best, bestCount := "", 0
	for _, s := range scripts {
		if c := counts[s.lang]; c > bestCount {
			best, bestCount = s.lang, c
		}
	}
	// Kana alongside Han means Japanese.
	if best == "zh-CN" && counts["ja"] > 0 {
		best = "ja"
	}

	switch best {
	case "":
		return UnknownLanguage
	case "latin":
		return detectLatin(words(text))
	case "hi":
		for _, w := range words(text) {
			if _, ok := marathiMarkers[w]; ok {
				return "mr"
			}
		}
	case "ar":
		if strings.ContainsAny(text, "ےںٹڈڑ") {
			return "ur"
		}
	case "ru":
		if strings.ContainsAny(text, "іїєґІЇЄҐ") {
			return "uk"
		}
	}
	return best
}

func detectLatin(tokens []string) string {
	scores := make(map[string]int)
	for _, lang := range latinOrder {
		markers := toSet(latinMarkers[lang]...)
		for _, t := range tokens {
			if _, ok := markers[t]; ok {
				scores[lang]++
			}
		}
	}
	best, bestScore := "en", 0
	for _, lang := range latinOrder {
		if scores[lang] > bestScore {
			best, bestScore = lang, scores[lang]
		}
	}
	return best
}
