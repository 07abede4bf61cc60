package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/analysis"
	"github.com/wtm-app/decoder-bot/internal/coach"
	"github.com/wtm-app/decoder-bot/internal/models"
	"github.com/wtm-app/decoder-bot/internal/quota"
)

// session is the per-chat UI state: which mode is selected and whether the
// chat is currently talking to the coach instead of the decoder.
type session struct {
	mode       models.Mode
	coaching   bool
	transcript []coach.Turn
}

type Bot struct {
	api    *tgbotapi.BotAPI
	orch   *analysis.Orchestrator
	coach  *coach.Coach
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*session
	// Queued item id -> chat to deliver the breakdown to once drained.
	// Not persisted; after a restart drained results only land in history.
	pending map[string]int64
}

func New(token string, orch *analysis.Orchestrator, coachSvc *coach.Coach, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		api:      api,
		orch:     orch,
		coach:    coachSvc,
		logger:   logger,
		sessions: make(map[int64]*session),
		pending:  make(map[string]int64),
	}
	orch.SetDrainHandler(b.deliverDrained)
	return b, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{mode: b.orch.Settings().DefaultMode}
		b.sessions[chatID] = s
	}
	return s
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	s := b.session(message.Chat.ID)

	b.mu.Lock()
	coaching := s.coaching
	mode := s.mode
	b.mu.Unlock()

	if coaching {
		b.handleCoachMessage(ctx, message, s)
		return
	}

	input, err := b.buildInput(message, mode)
	if err != nil {
		b.logger.Error("Failed to read message media",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't read that attachment. Please try again.")
		return
	}

	outcome := b.orch.Submit(ctx, input)
	switch outcome.Kind {
	case analysis.OutcomeInvalid:
		b.sendMessage(message.Chat.ID, "Send me a message, a screenshot, or a voice note to decode.")
	case analysis.OutcomeQuotaExceeded:
		b.sendMessage(message.Chat.ID, fmt.Sprintf(
			"You've used all %d free analyses. Use /upgrade to unlock unlimited decoding.", quota.FreeTierLimit))
	case analysis.OutcomeQueued:
		b.mu.Lock()
		b.pending[outcome.Queued.ID] = message.Chat.ID
		b.mu.Unlock()
		b.sendMessage(message.Chat.ID, "Offline - Added to queue. Will analyze when online.")
	case analysis.OutcomeCompleted:
		b.sendResult(message.Chat.ID, message.MessageID, *outcome.Result)
	case analysis.OutcomeFailed:
		b.logger.Error("Analysis failed",
			zap.Error(outcome.Err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Could not analyze message. Please try again.")
	}
}

func (b *Bot) buildInput(message *tgbotapi.Message, mode models.Mode) (analysis.RawInput, error) {
	input := analysis.RawInput{
		Text: message.Text,
		Mode: mode,
	}
	if message.Caption != "" {
		input.Text = message.Caption
	}

	if len(message.Photo) > 0 {
		// The last PhotoSize is the largest rendition.
		photo := message.Photo[len(message.Photo)-1]
		payload, err := b.downloadMedia(photo.FileID, "image/jpeg")
		if err != nil {
			return analysis.RawInput{}, err
		}
		input.Image = payload
	}
	if message.Voice != nil {
		mimeType := message.Voice.MimeType
		if mimeType == "" {
			mimeType = "audio/ogg"
		}
		payload, err := b.downloadMedia(message.Voice.FileID, mimeType)
		if err != nil {
			return analysis.RawInput{}, err
		}
		input.Audio = payload
	}
	return input, nil
}

func (b *Bot) handleCoachMessage(ctx context.Context, message *tgbotapi.Message, s *session) {
	question := strings.TrimSpace(message.Text)
	if question == "" {
		b.sendMessage(message.Chat.ID, "Tell me about the situation you'd like help with.")
		return
	}

	b.mu.Lock()
	transcript := make([]coach.Turn, len(s.transcript))
	copy(transcript, s.transcript)
	b.mu.Unlock()

	answer := b.coach.Ask(ctx, question, transcript)

	b.mu.Lock()
	s.transcript = append(s.transcript,
		coach.Turn{FromUser: true, Text: question},
		coach.Turn{FromUser: false, Text: answer})
	// Keep the rolling context small; stale turns matter less.
	if len(s.transcript) > 20 {
		s.transcript = s.transcript[len(s.transcript)-20:]
	}
	b.mu.Unlock()

	b.sendMessage(message.Chat.ID, answer)
}

// deliverDrained sends a queued analysis breakdown to the chat that queued
// it, if we still know which chat that was.
func (b *Bot) deliverDrained(item models.QueuedAnalysis, result models.AnalysisResult) {
	b.mu.Lock()
	chatID, ok := b.pending[item.ID]
	delete(b.pending, item.ID)
	b.mu.Unlock()
	if !ok {
		return
	}

	b.sendMessage(chatID, "Back online!")
	b.sendResult(chatID, 0, result)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendResult(chatID int64, replyToID int, result models.AnalysisResult) {
	msg := tgbotapi.NewMessage(chatID, renderResult(result))
	msg.ParseMode = "MarkdownV2"
	if replyToID != 0 {
		msg.ReplyToMessageID = replyToID
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send analysis result",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("result_id", result.ID))
	}
}
