package interpreter

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtm-app/decoder-bot/internal/models"
)

func TestBuildPartsTextOnly(t *testing.T) {
	parts := buildParts(models.AnalysisRequest{
		Text:        "see you at 5",
		Mode:        models.ModeWork,
		DetailLevel: models.DetailStandard,
	})

	require.Len(t, parts, 1)
	assert.Equal(t, openai.ChatMessagePartTypeText, parts[0].Type)
	assert.Contains(t, parts[0].Text, `"see you at 5"`)
	assert.Contains(t, parts[0].Text, "WORK")
	assert.Contains(t, parts[0].Text, "STANDARD")
}

func TestBuildPartsAttachesInlineMedia(t *testing.T) {
	parts := buildParts(models.AnalysisRequest{
		Text:        "what does this mean",
		Mode:        models.ModeSocial,
		DetailLevel: models.DetailConcise,
		Image:       &models.MediaPayload{Data: "aW1n", MimeType: "image/png"},
		Audio:       &models.MediaPayload{Data: "YXVk", MimeType: "audio/mpeg"},
	})

	require.Len(t, parts, 3)

	assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,aW1n", parts[1].ImageURL.URL)

	assert.Equal(t, openai.ChatMessagePartTypeInputAudio, parts[2].Type)
	require.NotNil(t, parts[2].InputAudio)
	assert.Equal(t, "YXVk", parts[2].InputAudio.Data)
	assert.Equal(t, "mp3", parts[2].InputAudio.Format)
}
