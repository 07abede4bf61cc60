package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wtm-app/decoder-bot/internal/models"
)

// rawResult mirrors the wire shape of the service response. Pointer fields
// distinguish "absent" from "zero" so required fields can be enforced.
type rawResult struct {
	WhatWasSaid        *string              `json:"whatWasSaid"`
	WhatIsExpected     []string             `json:"whatIsExpected"`
	WhatIsOptional     []string             `json:"whatIsOptional"`
	WhatCarriesRisk    []string             `json:"whatCarriesRisk"`
	WhatIsNotAskingFor []string             `json:"whatIsNotAskingFor"`
	HiddenRules        []string             `json:"hiddenRules"`
	ClarityScore       *models.ClarityScore `json:"clarityScore"`
	ConfidenceLevel    *string              `json:"confidenceLevel"`
	Responses          []rawResponseOption  `json:"responses"`
}

type rawResponseOption struct {
	Type            string  `json:"type"`
	Wording         *string `json:"wording"`
	ToneDescription string  `json:"toneDescription"`
	SocialImpact    string  `json:"socialImpact"`
	RiskLevel       *int    `json:"riskLevel"`
}

// stripFences removes a markdown code fence the model sometimes wraps its
// JSON in, despite the response-format hint.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// parseResult validates the service payload and converts it into the domain
// result, minus the fields the client attaches itself (id, timestamp,
// originalMessage, mode). Every violation is a *MalformedResponseError.
func parseResult(payload string) (models.AnalysisResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(stripFences(payload)), &raw); err != nil {
		return models.AnalysisResult{}, &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if raw.WhatWasSaid == nil {
		return models.AnalysisResult{}, &MalformedResponseError{Reason: "missing whatWasSaid"}
	}
	if raw.ClarityScore == nil {
		return models.AnalysisResult{}, &MalformedResponseError{Reason: "missing clarityScore"}
	}
	if raw.ClarityScore.Score < 1 || raw.ClarityScore.Score > 5 {
		return models.AnalysisResult{}, &MalformedResponseError{
			Reason: fmt.Sprintf("clarityScore.score %d out of range 1..5", raw.ClarityScore.Score),
		}
	}
	if raw.ConfidenceLevel == nil {
		return models.AnalysisResult{}, &MalformedResponseError{Reason: "missing confidenceLevel"}
	}
	confidence := models.ConfidenceLevel(*raw.ConfidenceLevel)
	switch confidence {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		return models.AnalysisResult{}, &MalformedResponseError{
			Reason: fmt.Sprintf("unknown confidenceLevel %q", *raw.ConfidenceLevel),
		}
	}

	responses := make([]models.ResponseOption, 0, len(raw.Responses))
	for i, r := range raw.Responses {
		if r.Wording == nil {
			return models.AnalysisResult{}, &MalformedResponseError{
				Reason: fmt.Sprintf("responses[%d] missing wording", i),
			}
		}
		if r.RiskLevel == nil {
			return models.AnalysisResult{}, &MalformedResponseError{
				Reason: fmt.Sprintf("responses[%d] missing riskLevel", i),
			}
		}
		if *r.RiskLevel < 1 || *r.RiskLevel > 5 {
			return models.AnalysisResult{}, &MalformedResponseError{
				Reason: fmt.Sprintf("responses[%d].riskLevel %d out of range 1..5", i, *r.RiskLevel),
			}
		}
		responses = append(responses, models.ResponseOption{
			Type:            r.Type,
			Wording:         *r.Wording,
			ToneDescription: r.ToneDescription,
			SocialImpact:    r.SocialImpact,
			RiskLevel:       *r.RiskLevel,
		})
	}

	return models.AnalysisResult{
		WhatWasSaid:        *raw.WhatWasSaid,
		WhatIsExpected:     coerceList(raw.WhatIsExpected),
		WhatIsOptional:     coerceList(raw.WhatIsOptional),
		WhatCarriesRisk:    coerceList(raw.WhatCarriesRisk),
		WhatIsNotAskingFor: coerceList(raw.WhatIsNotAskingFor),
		HiddenRules:        coerceList(raw.HiddenRules),
		ClarityScore:       *raw.ClarityScore,
		ConfidenceLevel:    confidence,
		Responses:          responses,
	}, nil
}

func coerceList(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
