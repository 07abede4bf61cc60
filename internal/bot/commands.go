package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/models"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "mode":
		b.handleMode(message)
	case "detail":
		b.handleDetail(message)
	case "history":
		b.handleHistory(message)
	case "clear":
		b.handleClear(message)
	case "status":
		b.handleStatus(message)
	case "rules":
		b.handleRules(message)
	case "upgrade":
		b.handleUpgrade(message)
	case "coach":
		b.handleCoach(message)
	case "done":
		b.handleDone(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to What They Meant! 🦉
I break confusing messages down into what was literally said, what's expected of you, what carries risk, and how you could respond.

Send me a message, a screenshot, or a voice note and I'll decode it.
Pick a context with /mode work, /mode school or /mode social.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/mode work|school|social - Set the context for analyses
/detail concise|standard|detailed - Set analysis verbosity
/history - Show your recent analyses
/clear - Clear your analysis history
/status - Show plan, usage and queue state
/rules - Hidden social rules discovered so far
/upgrade plus|pro - Upgrade your plan
/coach - Talk to the communication coach (/done to leave)

You can send:
- Text messages
- Screenshots (with or without a caption)
- Voice notes

I'll decode the hidden expectations and suggest responses.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleMode(message *tgbotapi.Message) {
	arg := strings.TrimSpace(message.CommandArguments())
	mode := models.Mode(strings.ToUpper(arg))
	if !mode.Valid() {
		b.sendMessage(message.Chat.ID, "Usage: /mode work, /mode school or /mode social")
		return
	}

	s := b.session(message.Chat.ID)
	b.mu.Lock()
	s.mode = mode
	b.mu.Unlock()

	b.sendMessage(message.Chat.ID, fmt.Sprintf("Context set to %s.", mode))
}

func (b *Bot) handleDetail(message *tgbotapi.Message) {
	var level models.DetailLevel
	switch strings.ToUpper(strings.TrimSpace(message.CommandArguments())) {
	case "CONCISE":
		level = models.DetailConcise
	case "STANDARD":
		level = models.DetailStandard
	case "DETAILED":
		level = models.DetailDetailed
	default:
		b.sendMessage(message.Chat.ID, "Usage: /detail concise, /detail standard or /detail detailed")
		return
	}

	if err := b.orch.SetAnalysisDetail(level); err != nil {
		b.logger.Error("Failed to update detail level", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save that setting. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Analysis detail set to %s.", level))
}

func (b *Bot) handleHistory(message *tgbotapi.Message) {
	history := b.orch.History()
	if len(history) == 0 {
		b.sendMessage(message.Chat.ID, "No history yet. Send me something to decode!")
		return
	}

	const maxShown = 5
	if len(history) > maxShown {
		history = history[:maxShown]
	}

	var sb strings.Builder
	sb.WriteString("*Your recent analyses:*\n\n")
	for _, result := range history {
		sb.WriteString(fmt.Sprintf("_%s_ \\(%s, clarity %d/5\\)\n",
			escapeMarkdown(truncate(result.OriginalMessage, 60)),
			escapeMarkdown(string(result.Mode)),
			result.ClarityScore.Score))
		sb.WriteString(escapeMarkdown(truncate(result.WhatWasSaid, 120)))
		sb.WriteString("\n\n")
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send history message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleClear(message *tgbotapi.Message) {
	if err := b.orch.ClearHistory(); err != nil {
		b.logger.Error("Failed to clear history", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't clear your history. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, "Decoding history cleared.")
}

func (b *Bot) handleStatus(message *tgbotapi.Message) {
	settings := b.orch.Settings()
	connection := "online"
	if !b.orch.Online() {
		connection = "offline"
	}

	b.sendMessage(message.Chat.ID, fmt.Sprintf(
		"Plan: %s\nAnalyses used: %d\nQueued analyses: %d\nConnection: %s",
		settings.Tier, settings.AnalysesCount, b.orch.QueueLen(), connection))
}

func (b *Bot) handleRules(message *tgbotapi.Message) {
	rules := b.orch.DiscoveredRules()
	if len(rules) == 0 {
		b.sendMessage(message.Chat.ID, "No hidden rules discovered yet. They show up as you decode messages.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Hidden rules discovered so far:\n\n")
	for _, rule := range rules {
		sb.WriteString(fmt.Sprintf("• %s (%s)\n", rule.Rule, rule.Mode))
	}
	b.sendMessage(message.Chat.ID, sb.String())
}

func (b *Bot) handleUpgrade(message *tgbotapi.Message) {
	var tier models.Tier
	switch strings.ToUpper(strings.TrimSpace(message.CommandArguments())) {
	case "PLUS":
		tier = models.TierPlus
	case "PRO":
		tier = models.TierPro
	default:
		b.sendMessage(message.Chat.ID, "Usage: /upgrade plus or /upgrade pro")
		return
	}

	if err := b.orch.SetTier(tier); err != nil {
		b.logger.Error("Failed to upgrade tier", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, the upgrade didn't stick. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("You're on %s now - unlimited analyses. 🎉", tier))
}

func (b *Bot) handleCoach(message *tgbotapi.Message) {
	s := b.session(message.Chat.ID)
	b.mu.Lock()
	s.coaching = true
	s.transcript = nil
	b.mu.Unlock()

	b.sendMessage(message.Chat.ID, "Coach mode: tell me about a situation and I'll help you figure out what to say. Use /done when you're finished.")
}

func (b *Bot) handleDone(message *tgbotapi.Message) {
	s := b.session(message.Chat.ID)
	b.mu.Lock()
	wasCoaching := s.coaching
	s.coaching = false
	s.transcript = nil
	b.mu.Unlock()

	if wasCoaching {
		b.sendMessage(message.Chat.ID, "Left coach mode. Send me a message to decode.")
	} else {
		b.sendMessage(message.Chat.ID, "You weren't in coach mode. Send me a message to decode!")
	}
}

// truncate shortens s to max runes. History entries carry arbitrary user
// text, so cutting on bytes could split a multi-byte rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
