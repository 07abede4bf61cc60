package coach

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemInstruction = `
You are a compassionate communication coach helping neurodivergent individuals navigate social and communication challenges.

YOUR ROLE:
- Help users navigate work, school, and social situations
- Explain hidden social rules and expectations clearly
- Provide specific response scripts and exact wording they can use
- Validate their concerns while offering practical solutions
- Teach the "why" behind social norms, not just the "what"

TONE & STYLE:
- Supportive and encouraging, never judgmental
- Practical and actionable with concrete examples
- Clear and specific - avoid vague advice like "just be yourself"
- Keep responses focused (3-5 short paragraphs max)
- No idioms, metaphors, or abstract language
`

const fallbackReply = "I'm having trouble connecting right now. Please try again in a moment."

// Turn is one exchange in a coaching conversation.
type Turn struct {
	FromUser bool
	Text     string
}

// Coach answers free-form "how do I say this" questions, separate from the
// structured analysis flow. Failures degrade to a friendly fallback line;
// coaching is never load-bearing.
type Coach struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

func New(apiKey, model string, maxTokens int, temperature float64, timeout time.Duration, logger *zap.Logger) *Coach {
	return &Coach{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Ask sends the user's question with the rolling transcript as context.
func (c *Coach) Ask(ctx context.Context, question string, transcript []Turn) string {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var prompt strings.Builder
	for _, turn := range transcript {
		if turn.FromUser {
			prompt.WriteString("User: ")
		} else {
			prompt.WriteString("Coach: ")
		}
		prompt.WriteString(turn.Text)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("User: ")
	prompt.WriteString(question)
	prompt.WriteString("\n\nCoach:")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		MaxTokens:   c.maxTokens,
		Temperature: float32(c.temperature),
	})
	if err != nil {
		c.logger.Error("Coach request failed", zap.Error(err))
		return fallbackReply
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "I'm here to help! Could you tell me more about your situation?"
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
