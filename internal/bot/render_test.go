package bot

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/wtm-app/decoder-bot/internal/models"
)

func TestRenderResult(t *testing.T) {
	result := models.AnalysisResult{
		WhatWasSaid:     "Your boss wants the report soon.",
		WhatIsExpected:  []string{"Send the report today"},
		HiddenRules:     []string{"'No rush' often still means 'soon'"},
		ClarityScore:    models.ClarityScore{Score: 4, Explanation: "Corporate speak."},
		ConfidenceLevel: models.ConfidenceHigh,
		Responses: []models.ResponseOption{
			{Type: "Direct", Wording: "I'll have it by 3pm.", SocialImpact: "Signals reliability", RiskLevel: 1},
		},
	}

	text := renderResult(result)

	assert.Contains(t, text, "What was said")
	assert.Contains(t, text, "Send the report today")
	assert.Contains(t, text, "4/5")
	assert.Contains(t, text, "High")
	assert.Contains(t, text, "risk 1/5")
	// Skipped sections are omitted entirely.
	assert.NotContains(t, text, "Optional")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\.b\*c\_d`, escapeMarkdown("a.b*c_d"))
	assert.Equal(t, `\\n`, escapeMarkdown(`\n`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "longertext"+"…", truncate("longertextthatkeepsgoing", 10))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// Byte-index slicing at 2 would land inside the two-byte "é".
	got := truncate("héllo wörld", 2)
	assert.Equal(t, "hé…", got)
	assert.True(t, utf8.ValidString(got))

	// Multi-byte text below the limit is untouched.
	assert.Equal(t, "héllo", truncate("héllo", 5))
}
