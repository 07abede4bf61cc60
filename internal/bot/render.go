package bot

import (
	"fmt"
	"strings"

	"github.com/wtm-app/decoder-bot/internal/models"
)

// renderResult formats a breakdown as a MarkdownV2 message.
func renderResult(result models.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*What was said:* %s\n\n", escapeMarkdown(result.WhatWasSaid)))
	writeSection(&sb, "What's expected", result.WhatIsExpected)
	writeSection(&sb, "Optional", result.WhatIsOptional)
	writeSection(&sb, "Carries risk", result.WhatCarriesRisk)
	writeSection(&sb, "NOT being asked for", result.WhatIsNotAskingFor)
	writeSection(&sb, "Hidden rules", result.HiddenRules)

	sb.WriteString(fmt.Sprintf("*Clarity:* %d/5 \\- %s\n",
		result.ClarityScore.Score, escapeMarkdown(result.ClarityScore.Explanation)))
	sb.WriteString(fmt.Sprintf("*Confidence:* %s\n", escapeMarkdown(string(result.ConfidenceLevel))))

	if len(result.Responses) > 0 {
		sb.WriteString("\n*You could say:*\n")
		for _, option := range result.Responses {
			sb.WriteString(fmt.Sprintf("\n_%s_ \\(risk %d/5\\):\n%s\n",
				escapeMarkdown(option.Type),
				option.RiskLevel,
				escapeMarkdown(option.Wording)))
			if option.SocialImpact != "" {
				sb.WriteString(fmt.Sprintf("↳ %s\n", escapeMarkdown(option.SocialImpact)))
			}
		}
	}

	return sb.String()
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("*%s:*\n", escapeMarkdown(title)))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("• %s\n", escapeMarkdown(item)))
	}
	sb.WriteString("\n")
}

// escapeMarkdown escapes the characters MarkdownV2 treats as markup.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
