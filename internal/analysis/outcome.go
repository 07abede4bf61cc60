package analysis

import "github.com/wtm-app/decoder-bot/internal/models"

// OutcomeKind says what happened to a submitted input.
type OutcomeKind int

const (
	// OutcomeInvalid: no mode or no content at all. Not an error, just a
	// guard against empty submissions.
	OutcomeInvalid OutcomeKind = iota
	// OutcomeQuotaExceeded: the free tier is used up; nothing was mutated.
	OutcomeQuotaExceeded
	// OutcomeQueued: offline, so the request was durably queued.
	OutcomeQueued
	// OutcomeCompleted: analyzed synchronously; Result is set.
	OutcomeCompleted
	// OutcomeFailed: the direct submission failed; Err is set and nothing
	// was mutated, so the user can simply resubmit.
	OutcomeFailed
)

// Outcome is the result of Orchestrator.Submit.
type Outcome struct {
	Kind   OutcomeKind
	Result *models.AnalysisResult // set for OutcomeCompleted
	Queued *models.QueuedAnalysis // set for OutcomeQueued
	Err    error                  // set for OutcomeFailed
}
