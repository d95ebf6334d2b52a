package translate

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// English is the pivot language every text is translated into.
const English = "en"

// supported lists the source languages accepted by the service.
var supported = map[string]string{
	"en":    "English",
	"hi":    "Hindi",
	"es":    "Spanish",
	"fr":    "French",
	"ar":    "Arabic",
	"zh-CN": "Chinese (Simplified)",
	"ja":    "Japanese",
	"ko":    "Korean",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"de":    "German",
	"it":    "Italian",
	"tr":    "Turkish",
	"vi":    "Vietnamese",
	"id":    "Indonesian",
	"th":    "Thai",
	"pl":    "Polish",
	"nl":    "Dutch",
	"bn":    "Bengali",
	"ur":    "Urdu",
	"ta":    "Tamil",
	"te":    "Telugu",
	"mr":    "Marathi",
	"he":    "Hebrew",
	"jv":    "Javanese",
	"uk":    "Ukrainian",
	"da":    "Danish",
	"sv":    "Swedish",
	"no":    "Norwegian",
}

// aliases maps legacy codes, regional variants and plain names to a
// supported code.
var aliases = map[string]string{
	"zh":         "zh-CN",
	"zh-cn":      "zh-CN",
	"zh-hans":    "zh-CN",
	"iw":         "he",
	"jw":         "jv",
	"in":         "id",
	"nb":         "no",
	"english":    "en",
	"hindi":      "hi",
	"spanish":    "es",
	"french":     "fr",
	"arabic":     "ar",
	"chinese":    "zh-CN",
	"japanese":   "ja",
	"korean":     "ko",
	"portuguese": "pt",
	"russian":    "ru",
	"german":     "de",
	"marathi":    "mr",
	"bengali":    "bn",
	"tamil":      "ta",
	"telugu":     "te",
	"urdu":       "ur",
}

// NormalizeLanguage maps code to a supported language code. Codes that
// cannot be resolved fall back to English.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == "unknown" || code == "auto" {
		return English
	}
	if alias, ok := aliases[code]; ok {
		return alias
	}
	if _, ok := supported[code]; ok {
		return code
	}

	tag, err := language.Parse(code)
	if err != nil {
		return English
	}
	base, _ := tag.Base()
	if alias, ok := aliases[base.String()]; ok {
		return alias
	}
	if _, ok := supported[base.String()]; ok {
		return base.String()
	}
	return English
}

// IsEnglish reports whether code resolves to English.
func IsEnglish(code string) bool {
	return NormalizeLanguage(code) == English
}

// SupportedLanguages returns the accepted codes with their display names.
func SupportedLanguages() map[string]string {
	out := make(map[string]string, len(supported))
	for k, v := range supported {
		out[k] = v
	}
	return out
}

// englishName returns the English display name of code, or "".
func englishName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}
