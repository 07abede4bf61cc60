package bot

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wtm-app/decoder-bot/internal/models"
)

// Telegram caps bot-downloadable files at 20MB; anything near that would be
// rejected by the interpreter anyway.
const maxMediaBytes = 16 << 20

// downloadMedia fetches a Telegram file and inlines it as a base64 payload
// for the interpreter.
func (b *Bot) downloadMedia(fileID, mimeType string) (*models.MediaPayload, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	resp, err := http.Get(file.Link(b.api.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file %s: status %d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxMediaBytes)
	}

	return &models.MediaPayload{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}, nil
}
