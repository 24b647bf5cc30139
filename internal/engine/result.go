// Package engine implements the deterministic underwriting pipeline:
// validate -> score -> decide -> price -> explain. Every evaluation is a
// pure function of the applicant profile and the criteria tables; there is
// no cross-request state, so concurrent evaluations over the same criteria
// are safe.
package engine

// EngineVersion is attached to every result for audit purposes.
const EngineVersion = "1.0"

// Status is the terminal outcome of a decision.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// FactorScore is one weighted sub-score with its matched tier and the
// reasoning shown to compliance reviewers.
type FactorScore struct {
	Score     float64 `json:"score"`
	MaxPoints float64 `json:"max_points"`
	Tier      string  `json:"tier"`
	Reasoning string  `json:"reasoning"`
}

// ScoringResult is the composite 0-100 score with its per-factor breakdown.
type ScoringResult struct {
	Revenue        FactorScore `json:"revenue"`
	Credit         FactorScore `json:"credit"`
	TimeInBusiness FactorScore `json:"time_in_business"`
	Industry       FactorScore `json:"industry"`
	TotalScore     float64     `json:"total_score"`
	MaxScore       float64     `json:"max_score"`
	Grade          string      `json:"grade"`
}

// DecisionRecord is the graded decision with its explanatory lists. Reasons
// never cite a check that did not actually fail or pass.
type DecisionRecord struct {
	Status          Status   `json:"status"`
	ApprovalTier    string   `json:"approval_tier,omitempty"`
	ConfidenceLevel string   `json:"confidence_level"`
	Reasons         []string `json:"reasons"`
	Conditions      []string `json:"conditions,omitempty"`
	RedFlags        []string `json:"red_flags,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// CalculationBreakdown discloses the inputs behind a priced offer.
type CalculationBreakdown struct {
	BaseAdvancePct     float64 `json:"base_advance_percentage"`
	TenureMultiplier   float64 `json:"time_in_business_multiplier"`
	BaseFactorRate     float64 `json:"base_factor_rate"`
	CreditAdjustment   float64 `json:"credit_adjustment"`
	IndustryAdjustment float64 `json:"industry_adjustment"`
	HardCapApplied     bool    `json:"hard_cap_applied"`
}

// Offer is the priced advance, present only on approvals.
type Offer struct {
	AdvanceAmount   float64              `json:"advance_amount"`
	FactorRate      float64              `json:"factor_rate"`
	TotalRepayment  float64              `json:"total_repayment"`
	TermMonths      int                  `json:"term_months"`
	PeriodicPayment float64              `json:"periodic_payment"`
	EffectiveAPR    float64              `json:"effective_apr"`
	Breakdown       CalculationBreakdown `json:"calculation_breakdown"`
}

// EvaluationResult is the full output of one evaluation, serializable to a
// flat JSON structure. Narrative is decorative enrichment attached after the
// decision is final; it never influences the decision or the offer.
type EvaluationResult struct {
	Profile       Profile        `json:"business_profile"`
	Scoring       ScoringResult  `json:"qualification_score"`
	Decision      DecisionRecord `json:"decision"`
	Offer         *Offer         `json:"offer_details,omitempty"`
	Narrative     string         `json:"narrative,omitempty"`
	EngineVersion string         `json:"engine_version"`
}
