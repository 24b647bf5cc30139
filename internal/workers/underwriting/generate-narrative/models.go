// internal/workers/underwriting/generate-narrative/models.go
package generatenarrative

import "underwriting-workers/internal/engine"

type Input struct {
	ApplicationID       string                   `json:"applicationId"`
	BusinessName        string                   `json:"businessName,omitempty"`
	QualificationResult *engine.EvaluationResult `json:"qualificationResult"`
}

type Output struct {
	ApplicationID   string `json:"applicationId"`
	Narrative       string `json:"narrative"`
	NarrativeSource string `json:"narrativeSource"` // "generated" or "template"
	GeneratedAt     string `json:"generatedAt"`     // ISO 8601
}

// Narrative sources
const (
	SourceGenerated = "generated"
	SourceTemplate  = "template"
)
