package translate

import (
	"regexp"
	"strings"
)

var (
	parenNote   = regexp.MustCompile(`(?i)\(\s*note:[^)]*\)`)
	bracketNote = regexp.MustCompile(`(?i)\[\s*note:[^\]]*\]`)
	lineNote    = regexp.MustCompile(`(?i)^\s*(note|translator's note|disclaimer):`)
	spaceRun    = regexp.MustCompile(`[ \t]{2,}`)
)

// SanitizeAIText removes machine-translation disclaimers that some engines
// and language models add to their output.
func SanitizeAIText(s string) string {
	s = parenNote.ReplaceAllString(s, "")
	s = bracketNote.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if lineNote.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
