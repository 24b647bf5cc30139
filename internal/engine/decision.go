package engine

import (
	"fmt"
	"math"

	"underwriting-workers/internal/engine/criteria"
)

// confidenceBoundaryMargin is how close the composite score may sit to a
// tier boundary before confidence drops to Medium.
const confidenceBoundaryMargin = 5.0

// highDebtRatioThreshold flags applicants carrying more than half a year of
// revenue in existing debt.
const highDebtRatioThreshold = 0.5

// Decide applies the two gates in order: hard minimums first, then the score
// threshold. The scoring output is always computed and reported for
// transparency, but it cannot override a hard-gate decline. Both decline
// paths are terminal.
func Decide(p Profile, scoring ScoringResult, c *criteria.Criteria) DecisionRecord {
	flags := redFlags(p)

	if failures := failedMinimums(p, c); len(failures) > 0 {
		return DecisionRecord{
			Status:          StatusDeclined,
			ConfidenceLevel: confidenceFor(scoring.TotalScore, c),
			Reasons:         failures,
			RedFlags:        flags,
			Recommendations: gateRecommendations(p, c),
		}
	}

	if scoring.TotalScore >= c.ApprovalThreshold {
		tier, ok := c.RateTierFor(scoring.TotalScore)
		if !ok {
			// Tables were validated to cover the threshold; reaching this
			// means the criteria are inconsistent. Fail closed.
			return DecisionRecord{
				Status:          StatusDeclined,
				ConfidenceLevel: "Low",
				Reasons:         []string{internalErrorReason("no approval tier covers the qualifying score")},
				RedFlags:        flags,
			}
		}
		return DecisionRecord{
			Status:          StatusApproved,
			ApprovalTier:    tier.Label,
			ConfidenceLevel: confidenceFor(scoring.TotalScore, c),
			Reasons:         approvalReasons(scoring),
			Conditions:      approvalConditions(p, scoring, tier, c),
			RedFlags:        flags,
		}
	}

	return DecisionRecord{
		Status:          StatusDeclined,
		ConfidenceLevel: confidenceFor(scoring.TotalScore, c),
		Reasons: append(
			[]string{fmt.Sprintf("Qualification score %.1f/100 (Grade %s) below approval threshold %.0f",
				scoring.TotalScore, scoring.Grade, c.ApprovalThreshold)},
			weakFactorReasons(scoring)...,
		),
		RedFlags:        flags,
		Recommendations: improvementRecommendations(p, scoring, c),
	}
}

// failedMinimums lists every hard minimum the applicant misses.
func failedMinimums(p Profile, c *criteria.Criteria) []string {
	var failures []string
	if p.AnnualRevenue < c.Minimums.AnnualRevenue {
		failures = append(failures, fmt.Sprintf("Annual revenue $%.0f below minimum $%.0f",
			p.AnnualRevenue, c.Minimums.AnnualRevenue))
	}
	if p.CreditScore < c.Minimums.CreditScore {
		failures = append(failures, fmt.Sprintf("Credit score %d below minimum %d",
			p.CreditScore, c.Minimums.CreditScore))
	}
	if p.TimeInBusinessMonths < c.Minimums.TimeInBusinessMonths {
		failures = append(failures, fmt.Sprintf("Time in business %d months below minimum %d months",
			p.TimeInBusinessMonths, c.Minimums.TimeInBusinessMonths))
	}
	return failures
}

// confidenceFor grades how decisively the score lands: scores within
// confidenceBoundaryMargin of any tier boundary are borderline.
func confidenceFor(total float64, c *criteria.Criteria) string {
	nearest := math.Abs(total - c.ApprovalThreshold)
	for _, t := range c.BaseFactorRates {
		if d := math.Abs(total - t.MinScore); d < nearest {
			nearest = d
		}
	}
	if nearest < confidenceBoundaryMargin {
		return "Medium"
	}
	if total >= c.ApprovalThreshold {
		return "High"
	}
	return "Low"
}

func redFlags(p Profile) []string {
	var flags []string
	if p.ZeroRevenue {
		flags = append(flags, "No reported revenue: debt-to-revenue ratio cannot be assessed")
	}
	if p.DebtToRevenueRatio > highDebtRatioThreshold {
		flags = append(flags, fmt.Sprintf("Existing debt is %.0f%% of annual revenue",
			p.DebtToRevenueRatio*100))
	}
	return flags
}

func internalErrorReason(detail string) string {
	return "Internal evaluation error, application declined as a precaution: " + detail
}
