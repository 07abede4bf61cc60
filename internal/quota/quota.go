package quota

import "github.com/wtm-app/decoder-bot/internal/models"

// FreeTierLimit is the number of analyses a FREE user gets before the
// paywall kicks in.
const FreeTierLimit = 5

// CanAnalyze reports whether a new analysis is permitted for the given tier
// and the number of analyses already performed. PLUS and PRO are unlimited.
func CanAnalyze(tier models.Tier, count int) bool {
	if tier == models.TierFree && count >= FreeTierLimit {
		return false
	}
	return true
}
