package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/wtm-app/decoder-bot/internal/models"
	"github.com/wtm-app/decoder-bot/internal/storage"
)

// AddLibraryItem stores a user-saved resource, assigning it an id and
// creation time, newest first.
func (o *Orchestrator) AddLibraryItem(item models.CustomLibraryItem) (models.CustomLibraryItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	item.ID = uuid.New().String()
	item.CreatedAt = time.Now()

	library := make([]models.CustomLibraryItem, 0, len(o.library)+1)
	library = append(library, item)
	library = append(library, o.library...)

	if err := persistJSON(o.store, storage.KeyCustomLibrary, library); err != nil {
		return models.CustomLibraryItem{}, err
	}
	o.library = library
	o.notifyLocked()
	return item, nil
}

// DeleteLibraryItem removes a saved resource by id. Unknown ids are a no-op.
func (o *Orchestrator) DeleteLibraryItem(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	library := make([]models.CustomLibraryItem, 0, len(o.library))
	for _, item := range o.library {
		if item.ID != id {
			library = append(library, item)
		}
	}
	if len(library) == len(o.library) {
		return nil
	}

	if err := persistJSON(o.store, storage.KeyCustomLibrary, library); err != nil {
		return err
	}
	o.library = library
	o.notifyLocked()
	return nil
}

// LibraryItems returns the saved resources, newest first.
func (o *Orchestrator) LibraryItems() []models.CustomLibraryItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.CustomLibraryItem, len(o.library))
	copy(out, o.library)
	return out
}

// DiscoveredRules collects the hidden social rules surfaced across the
// history, de-duplicated, tagged with the message that surfaced them.
func (o *Orchestrator) DiscoveredRules() []models.DiscoveredRule {
	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[string]struct{})
	var rules []models.DiscoveredRule
	for _, result := range o.history {
		for _, rule := range result.HiddenRules {
			if _, ok := seen[rule]; ok {
				continue
			}
			seen[rule] = struct{}{}
			rules = append(rules, models.DiscoveredRule{
				Rule:   rule,
				Source: result.OriginalMessage,
				Mode:   result.Mode,
			})
		}
	}
	return rules
}
