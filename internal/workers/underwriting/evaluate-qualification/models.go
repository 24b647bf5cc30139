// internal/workers/underwriting/evaluate-qualification/models.go
package evaluatequalification

import "underwriting-workers/internal/engine"

type Input struct {
	ApplicationID string                `json:"applicationId"`
	Application   engine.RawApplication `json:"application"`
}

type Output struct {
	ApplicationID       string                   `json:"applicationId"`
	QualificationStatus string                   `json:"qualificationStatus"` // "approved", "declined"
	ApprovalTier        string                   `json:"approvalTier,omitempty"`
	TotalScore          float64                  `json:"totalScore"`
	Grade               string                   `json:"grade"`
	QualificationResult *engine.EvaluationResult `json:"qualificationResult"`
}
