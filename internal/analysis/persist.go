package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/wtm-app/decoder-bot/internal/storage"
)

func persistJSON(store storage.Store, key string, value any) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.Set(key, doc); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func loadJSON(store storage.Store, key string, out any) error {
	doc, ok, err := store.Get(key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
