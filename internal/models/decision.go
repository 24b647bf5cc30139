// internal/models/decision.go
package models

// DecisionAudit is the persisted record of a completed qualification
// evaluation. One row per application per evaluation; the full engine
// result is stored verbatim in ResultPayload for replay and audit.
type DecisionAudit struct {
	ID              string  `json:"id"`
	ApplicationID   string  `json:"applicationId"`
	Status          string  `json:"status"`
	TotalScore      float64 `json:"totalScore"`
	Grade           string  `json:"grade"`
	ApprovalTier    string  `json:"approvalTier,omitempty"`
	ConfidenceLevel string  `json:"confidenceLevel"`
	AdvanceAmount   float64 `json:"advanceAmount,omitempty"`
	FactorRate      float64 `json:"factorRate,omitempty"`
	TermMonths      int     `json:"termMonths,omitempty"`
	EngineVersion   string  `json:"engineVersion"`
	ResultPayload   string  `json:"resultPayload"`
	CreatedAt       string  `json:"createdAt"`
}
