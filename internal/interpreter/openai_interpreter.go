package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/wtm-app/decoder-bot/internal/models"
)

// OpenAIInterpreter implements Interpreter on top of the OpenAI chat
// completions API, with text plus optional inlined image and audio parts.
type OpenAIInterpreter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

func NewOpenAIInterpreter(apiKey, model string, maxTokens int, temperature float64, timeout time.Duration, logger *zap.Logger) *OpenAIInterpreter {
	return &OpenAIInterpreter{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

func (c *OpenAIInterpreter) Interpret(ctx context.Context, request models.AnalysisRequest) (models.AnalysisResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: InstructionProfile(request.Mode),
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: buildParts(request),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return models.AnalysisResult{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return models.AnalysisResult{}, &MalformedResponseError{Reason: "response contained no choices"}
	}

	result, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("Rejected interpreter response",
			zap.Error(err),
			zap.String("model", c.model))
		return models.AnalysisResult{}, err
	}

	// id, timestamp and originalMessage are never supplied by the service.
	result.ID = uuid.New().String()
	result.Timestamp = time.Now()
	result.Mode = request.Mode
	result.OriginalMessage = originalMessage(request)
	return result, nil
}

func buildParts(request models.AnalysisRequest) []openai.ChatMessagePart {
	prompt := fmt.Sprintf(`Analyze this message in the context of %s.
Verbosity level: %s.`, request.Mode, request.DetailLevel)
	if request.Image != nil {
		prompt += "\nThe input includes an image. Analyze any text found or the social situation depicted."
	}
	if request.Audio != nil {
		prompt += "\nThe input includes an audio recording. Please transcribe and analyze the spoken message and its social subtext."
	}
	prompt += fmt.Sprintf("\nInput Message Text: %q", request.Text)

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	if request.Image != nil {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", request.Image.MimeType, request.Image.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	if request.Audio != nil {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeInputAudio,
			InputAudio: &openai.ChatMessageInputAudio{
				Data:   request.Audio.Data,
				Format: audioFormat(request.Audio.MimeType),
			},
		})
	}
	return parts
}

func audioFormat(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mp3"), strings.Contains(mimeType, "mpeg"):
		return "mp3"
	default:
		return "wav"
	}
}

// originalMessage is what the history shows as the analyzed input: the text,
// or a placeholder when only media was supplied.
func originalMessage(request models.AnalysisRequest) string {
	if request.Text != "" {
		return request.Text
	}
	if request.Audio != nil {
		return "Audio message"
	}
	return "Image analysis"
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return &NetworkError{Err: err}
}
