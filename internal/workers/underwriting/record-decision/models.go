// internal/workers/underwriting/record-decision/models.go
package recorddecision

import "underwriting-workers/internal/engine"

type Input struct {
	ApplicationID       string                   `json:"applicationId"`
	QualificationResult *engine.EvaluationResult `json:"qualificationResult"`
}

type Output struct {
	DecisionID string `json:"decisionId"`
	RecordedAt string `json:"recordedAt"` // ISO 8601
}
