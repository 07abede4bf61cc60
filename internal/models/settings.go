package models

// UserSettings holds the user's preferences plus the quota state. The quota
// fields are mutated only by the orchestrator after a successful analysis or
// by an explicit reset/upgrade action.
type UserSettings struct {
	AnalysisDetail DetailLevel `json:"analysisDetail"`
	DefaultMode    Mode        `json:"defaultMode"`
	Tier           Tier        `json:"tier"`
	AnalysesCount  int         `json:"analysesCount"`
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() UserSettings {
	return UserSettings{
		AnalysisDetail: DetailStandard,
		DefaultMode:    ModeWork,
		Tier:           TierFree,
		AnalysesCount:  0,
	}
}
