package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxPromptChars = 6000
	// minKeptChars keeps truncation from cutting back to a tiny fragment.
	minKeptChars = 1200
	truncatedTag = "[TRUNCATED]"
)

// prepareContent collapses whitespace and caps content at maxChars runes,
// ending on a sentence boundary when one is close enough.
func prepareContent(content string, maxChars int) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}

	runes := []rune(content)
	trimmed := string(runes[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > minKeptChars {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "\n" + truncatedTag
}

func summaryPrompt(text string, sentences int) string {
	return fmt.Sprintf(`Summarize the news text below in at most %d sentences of plain English.

Rules:
- Keep names of people, brands and organisations as written.
- No introductions such as "This article is about".
- No notes, disclaimers or commentary.

Answer strictly in this format:

SUMMARY: <summary>

TEXT:
%s
`, sentences, prepareContent(text, maxPromptChars))
}

func zeroShotPrompt(text string, labels []string) string {
	return fmt.Sprintf(`Classify the news text below into exactly one of these labels:
%s

Answer strictly in this format, with a score between 0 and 1 for how well the label fits:

LABEL: <one label from the list>
SCORE: <number>

TEXT:
%s
`, "- "+strings.Join(labels, "\n- "), prepareContent(text, maxPromptChars))
}

var sectionPatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"summary", regexp.MustCompile(`(?i)^\**(SUMMARY|SUMMARISED|SUMMARIZED)\**\s*:\**\s*`)},
	{"label", regexp.MustCompile(`(?i)^\**(LABEL|CATEGORY)\**\s*:\**\s*`)},
	{"score", regexp.MustCompile(`(?i)^\**(SCORE|CONFIDENCE)\**\s*:\**\s*`)},
}

// parseSections splits a labelled model answer into its sections.
// Unlabelled lines continue the section above them.
func parseSections(response string) map[string]string {
	builders := make(map[string]*strings.Builder)
	current := ""

	appendText := func(section, text string) {
		if text == "" {
			return
		}
		b, ok := builders[section]
		if !ok {
			b = &strings.Builder{}
			builders[section] = b
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		matched := false
		for _, sp := range sectionPatterns {
			if sp.regex.MatchString(line) {
				current = sp.name
				appendText(current, strings.TrimSpace(sp.regex.ReplaceAllString(line, "")))
				matched = true
				break
			}
		}
		if !matched && current != "" {
			appendText(current, line)
		}
	}

	out := make(map[string]string, len(builders))
	for name, b := range builders {
		out[name] = strings.TrimSpace(b.String())
	}
	return out
}

// parseSummary extracts the summary. Models that ignore the format get
// their whole answer used as the summary.
func parseSummary(response string) (string, error) {
	if s := parseSections(response)["summary"]; s != "" {
		return s, nil
	}
	if s := strings.Join(strings.Fields(response), " "); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("empty summary in model response")
}

var scoreNumber = regexp.MustCompile(`[0-9]*\.?[0-9]+`)

// parseZeroShot matches the answered label against labels
// case-insensitively and clamps the score to [0,1].
func parseZeroShot(response string, labels []string) (string, float64, error) {
	sections := parseSections(response)
	answer := strings.Trim(sections["label"], " .\"'`*")
	if answer == "" {
		return "", 0, fmt.Errorf("no label in model response")
	}

	label := ""
	for _, l := range labels {
		if strings.EqualFold(l, answer) {
			label = l
			break
		}
	}
	if label == "" {
		return "", 0, fmt.Errorf("model answered unknown label %q", answer)
	}

	score := 0.0
	if m := scoreNumber.FindString(sections["score"]); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			score = v
		}
	}
	if score > 1 {
		// Some models answer in percent.
		score /= 100
	}
	return label, min(max(score, 0), 1), nil
}
