package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeAIText_RemovesInlineParenthesizedDisclaimer(t *testing.T) {
	in := "Міністерство закордонних справ звернулося до громадян\n(Note: This translation is a machine translation and may contain errors.) У Марракеші тривають демонстрації."
	out := SanitizeAIText(in)
	assert.NotEmpty(t, out)
	assert.NotContains(t, strings.ToLower(out), "note:")
	assert.Contains(t, out, "У Марракеші")
}

func TestSanitizeAIText_RemovesFullLineNote(t *testing.T) {
	in := "Note: This translation is a machine translation and may contain errors.\nУ Марракеші тривають демонстрації."
	out := SanitizeAIText(in)
	assert.NotContains(t, strings.ToLower(out), "note:")
	assert.Equal(t, "У Марракеші тривають демонстрації.", out)
}

func TestSanitizeAIText_RemovesBracketedDisclaimer(t *testing.T) {
	out := SanitizeAIText("[Note: Machine translation] Це тестовий рядок.")
	assert.NotContains(t, strings.ToLower(out), "note")
	assert.Equal(t, "Це тестовий рядок.", out)
}
