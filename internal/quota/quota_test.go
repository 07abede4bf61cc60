package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wtm-app/decoder-bot/internal/models"
)

func TestCanAnalyze(t *testing.T) {
	tests := []struct {
		name  string
		tier  models.Tier
		count int
		want  bool
	}{
		{"free below limit", models.TierFree, 0, true},
		{"free just below limit", models.TierFree, 4, true},
		{"free at limit", models.TierFree, 5, false},
		{"free above limit", models.TierFree, 100, false},
		{"plus at limit", models.TierPlus, 5, true},
		{"plus far above limit", models.TierPlus, 10000, true},
		{"pro at limit", models.TierPro, 5, true},
		{"pro far above limit", models.TierPro, 10000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAnalyze(tt.tier, tt.count))
		})
	}
}
