package engine

import (
	"errors"

	"underwriting-workers/internal/engine/criteria"
)

// Evaluate runs the full pipeline over one application. It returns a
// *ValidationError when the raw attributes are malformed; computation
// failures never propagate — they fail closed into a declined decision so a
// malformed offer is never emitted.
func Evaluate(raw RawApplication, c *criteria.Criteria) (*EvaluationResult, error) {
	profile, err := NewProfile(raw)
	if err != nil {
		return nil, err
	}

	scoring, err := Score(profile, c)
	if err != nil {
		return failClosed(profile, scoring, err), nil
	}

	decision := Decide(profile, scoring, c)

	result := &EvaluationResult{
		Profile:       profile,
		Scoring:       scoring,
		Decision:      decision,
		EngineVersion: EngineVersion,
	}

	if decision.Status != StatusApproved {
		return result, nil
	}

	tier, ok := c.RateTierFor(scoring.TotalScore)
	if !ok {
		return failClosed(profile, scoring, errors.New("approval tier lookup failed after approval")), nil
	}
	offer, err := Price(profile, scoring, tier, c)
	if err != nil {
		return failClosed(profile, scoring, err), nil
	}
	result.Offer = offer
	return result, nil
}

// failClosed converts a mid-pipeline computation failure into a safe
// decline. The numeric scoring output is still reported for transparency.
func failClosed(p Profile, scoring ScoringResult, err error) *EvaluationResult {
	return &EvaluationResult{
		Profile: p,
		Scoring: scoring,
		Decision: DecisionRecord{
			Status:          StatusDeclined,
			ConfidenceLevel: "Low",
			Reasons:         []string{internalErrorReason(err.Error())},
			RedFlags:        redFlags(p),
		},
		EngineVersion: EngineVersion,
	}
}
