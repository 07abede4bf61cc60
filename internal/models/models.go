package models

import "time"

// Mode is the interpersonal context a message is analyzed in. It selects
// which instruction profile the remote interpreter uses.
type Mode string

const (
	ModeWork   Mode = "WORK"
	ModeSchool Mode = "SCHOOL"
	ModeSocial Mode = "SOCIAL"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeWork, ModeSchool, ModeSocial:
		return true
	}
	return false
}

// DetailLevel controls how verbose the analysis should be.
type DetailLevel string

const (
	DetailDetailed DetailLevel = "DETAILED"
	DetailStandard DetailLevel = "STANDARD"
	DetailConcise  DetailLevel = "CONCISE"
)

// Tier is the subscription level controlling the analysis quota.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPlus Tier = "PLUS"
	TierPro  Tier = "PRO"
)

// ConfidenceLevel is the interpreter's own confidence in its reading.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// MediaPayload is an inlined binary attachment (image or audio).
type MediaPayload struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mimeType"`
}

// AnalysisRequest is an in-flight request to the remote interpreter. It is
// never persisted directly; offline requests are wrapped in a QueuedAnalysis.
type AnalysisRequest struct {
	Text        string        `json:"text"`
	Mode        Mode          `json:"mode"`
	DetailLevel DetailLevel   `json:"detailLevel"`
	Image       *MediaPayload `json:"image,omitempty"`
	Audio       *MediaPayload `json:"audio,omitempty"`
}

// Empty reports whether the request carries no content at all.
func (r AnalysisRequest) Empty() bool {
	return r.Text == "" && r.Image == nil && r.Audio == nil
}

// QueuedAnalysis is a durable, not-yet-submitted analysis request.
// Insertion order defines submission order.
type QueuedAnalysis struct {
	ID         string          `json:"id"`
	Request    AnalysisRequest `json:"request"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// ClarityScore rates how ambiguous the analyzed message was, 1 (crystal
// clear) to 5 (very confusing).
type ClarityScore struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// ResponseOption is one suggested reply the user could send.
type ResponseOption struct {
	Type            string `json:"type"`
	Wording         string `json:"wording"`
	ToneDescription string `json:"toneDescription"`
	SocialImpact    string `json:"socialImpact"`
	RiskLevel       int    `json:"riskLevel"` // 1..5
}

// AnalysisResult is the structured breakdown of one analyzed message.
// Immutable once created; appended to the history, newest first.
type AnalysisResult struct {
	ID                 string           `json:"id"`
	Timestamp          time.Time        `json:"timestamp"`
	Mode               Mode             `json:"mode"`
	OriginalMessage    string           `json:"originalMessage"`
	WhatWasSaid        string           `json:"whatWasSaid"`
	WhatIsExpected     []string         `json:"whatIsExpected"`
	WhatIsOptional     []string         `json:"whatIsOptional"`
	WhatCarriesRisk    []string         `json:"whatCarriesRisk"`
	WhatIsNotAskingFor []string         `json:"whatIsNotAskingFor"`
	HiddenRules        []string         `json:"hiddenRules"`
	ClarityScore       ClarityScore     `json:"clarityScore"`
	ConfidenceLevel    ConfidenceLevel  `json:"confidenceLevel"`
	Responses          []ResponseOption `json:"responses"`
}
