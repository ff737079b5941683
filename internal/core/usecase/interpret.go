package usecase

import (
	"encoding/json"
	"strings"

	"github.com/driveon/idverify/internal/core/domain"
	"github.com/driveon/idverify/internal/core/namematch"
)

// rawVerification mirrors the model's schema-constrained output. Validity,
// flag ordering, and split names are derived here, never reported by the
// model.
type rawVerification struct {
	Confidence         int                           `json:"confidence"`
	Fields             domain.ExtractedFields        `json:"fields"`
	SecurityFeatures   domain.SecurityFeatures       `json:"security_features"`
	PhotoQuality       domain.PhotoQuality           `json:"photo_quality"`
	Jurisdiction       domain.JurisdictionAssessment `json:"jurisdiction"`
	IsExpired          bool                          `json:"is_expired"`
	IsAuthentic        bool                          `json:"is_authentic"`
	CriticalFlags      []string                      `json:"critical_flags"`
	InformationalFlags []string                      `json:"informational_flags"`
	Summary            string                        `json:"summary"`
}

// interpretAnalysis maps raw model output onto the verification contract.
// Absent or unparseable output becomes a structured failure result rather
// than an error; the caller's policy layer decides what to do with it.
func interpretAnalysis(raw domain.RawAnalysis, path domain.VerificationPath) *domain.VerificationResult {
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		return failureResult("vision model response contained no text content", path, raw.Model)
	}

	var parsed rawVerification
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return failureResult("vision model output was not parseable as a verification object", path, raw.Model)
	}

	result := &domain.VerificationResult{
		Success:            true,
		Confidence:         parsed.Confidence,
		Fields:             parsed.Fields,
		SecurityFeatures:   parsed.SecurityFeatures,
		PhotoQuality:       parsed.PhotoQuality,
		Jurisdiction:       parsed.Jurisdiction,
		IsExpired:          parsed.IsExpired,
		IsAuthentic:        parsed.IsAuthentic,
		CriticalFlags:      parsed.CriticalFlags,
		InformationalFlags: parsed.InformationalFlags,
		Path:               path,
		Model:              raw.Model,
		Summary:            parsed.Summary,
	}

	result.RedFlags = concatFlags(result.CriticalFlags, result.InformationalFlags)
	result.IsValid = result.IsAuthentic && !result.IsExpired &&
		result.Confidence >= domain.ValidityConfidenceThreshold

	first, _, last := namematch.Parse(parsed.Fields.FullName.Value)
	result.FirstName = first
	result.LastName = last

	return result
}

func failureResult(flag string, path domain.VerificationPath, model string) *domain.VerificationResult {
	return &domain.VerificationResult{
		Success:       false,
		Confidence:    0,
		CriticalFlags: []string{flag},
		RedFlags:      []string{flag},
		Path:          path,
		Model:         model,
	}
}

// concatFlags preserves order and duplicates: critical first, then
// informational. Consumers that predate the severity split read this list.
func concatFlags(critical, informational []string) []string {
	out := make([]string, 0, len(critical)+len(informational))
	out = append(out, critical...)
	out = append(out, informational...)
	return out
}

// extractJSONObject locates the outermost JSON object inside free-form text.
// The escalated pass is not schema-constrained, so the model may wrap its
// object in prose. Best effort: first "{" to last "}".
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
