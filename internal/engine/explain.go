package engine

import (
	"fmt"

	"underwriting-workers/internal/engine/criteria"
)

// strongFactorShare is the fraction of a factor's maximum that makes it
// worth citing as an approval reason.
const strongFactorShare = 0.8

// approvalReasons cites the strongest scoring factors, between one and four
// entries. A factor qualifies when it earns at least 80% of its maximum.
func approvalReasons(scoring ScoringResult) []string {
	var reasons []string
	if isStrong(scoring.Revenue) {
		reasons = append(reasons, "Strong revenue: "+scoring.Revenue.Reasoning)
	}
	if isStrong(scoring.Credit) {
		reasons = append(reasons, "Solid credit profile: "+scoring.Credit.Reasoning)
	}
	if isStrong(scoring.TimeInBusiness) {
		reasons = append(reasons, "Established operating history: "+scoring.TimeInBusiness.Reasoning)
	}
	if isStrong(scoring.Industry) {
		reasons = append(reasons, "Favorable industry profile: "+scoring.Industry.Reasoning)
	}
	if len(reasons) > 4 {
		reasons = reasons[:4]
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Meets all minimum qualification requirements")
	}
	return reasons
}

func isStrong(f FactorScore) bool {
	return f.MaxPoints > 0 && f.Score >= f.MaxPoints*strongFactorShare
}

// approvalConditions lists documentation or guarantee requirements for
// borderline approvals. The lowest approval tier always carries at least one
// condition; clean approvals carry none.
func approvalConditions(p Profile, scoring ScoringResult, tier criteria.RateTier, c *criteria.Criteria) []string {
	var conditions []string
	if isLowestTier(tier, c) {
		conditions = append(conditions, "Subject to bank statement review for final approval")
	}
	if p.CreditScore < 620 {
		conditions = append(conditions, "May require personal guarantee")
	}
	if p.TimeInBusinessMonths < 12 {
		conditions = append(conditions, "Additional documentation required (tax returns, bank statements)")
	}
	return conditions
}

func isLowestTier(tier criteria.RateTier, c *criteria.Criteria) bool {
	for _, t := range c.BaseFactorRates {
		if t.MinScore < tier.MinScore {
			return false
		}
	}
	return true
}

// weakFactorReasons names the factors dragging a below-threshold score down.
func weakFactorReasons(scoring ScoringResult) []string {
	var reasons []string
	if isWeak(scoring.Revenue) {
		reasons = append(reasons, "Low revenue factor: "+scoring.Revenue.Reasoning)
	}
	if isWeak(scoring.Credit) {
		reasons = append(reasons, "Weak credit factor: "+scoring.Credit.Reasoning)
	}
	if isWeak(scoring.TimeInBusiness) {
		reasons = append(reasons, "Limited operating history: "+scoring.TimeInBusiness.Reasoning)
	}
	if isWeak(scoring.Industry) {
		reasons = append(reasons, "Industry risk: "+scoring.Industry.Reasoning)
	}
	return reasons
}

func isWeak(f FactorScore) bool {
	return f.MaxPoints > 0 && f.Score < f.MaxPoints*strongFactorShare
}

// gateRecommendations tells a hard-gate declined applicant exactly what to
// change, using the configured minimums as targets.
func gateRecommendations(p Profile, c *criteria.Criteria) []string {
	var recs []string
	if p.AnnualRevenue < c.Minimums.AnnualRevenue {
		recs = append(recs, fmt.Sprintf("Increase annual revenue to at least $%.0f ($%.0f/month) before reapplying",
			c.Minimums.AnnualRevenue, c.Minimums.AnnualRevenue/12))
	}
	if p.CreditScore < c.Minimums.CreditScore {
		recs = append(recs, fmt.Sprintf("Improve credit score to at least %d through timely payments and lower utilization",
			c.Minimums.CreditScore))
	}
	if p.TimeInBusinessMonths < c.Minimums.TimeInBusinessMonths {
		recs = append(recs, fmt.Sprintf("Reapply after %d+ months in business with consistent revenue",
			c.Minimums.TimeInBusinessMonths))
	}
	recs = append(recs, "Consider alternative financing options (business credit cards, SBA loans, equipment financing)")
	return recs
}

// improvementRecommendations compares each weak factor's tier to the next
// one up and states the delta needed. Targets always come from the criteria
// tables, never guesses.
func improvementRecommendations(p Profile, scoring ScoringResult, c *criteria.Criteria) []string {
	var recs []string

	if isWeak(scoring.Revenue) {
		if tier, ok := c.RevenueTierFor(p.MonthlyRevenue); ok {
			if next, ok := c.NextRevenueTier(tier); ok {
				recs = append(recs, fmt.Sprintf("Increase monthly revenue to $%.0f to reach %s",
					next.Min, next.Label))
			}
		}
	}
	if isWeak(scoring.Credit) {
		if tier, ok := c.CreditTierFor(p.CreditScore); ok {
			if next, ok := c.NextCreditTier(tier); ok {
				recs = append(recs, fmt.Sprintf("Improve credit score to %d to reach %s",
					next.Min, next.Label))
			}
		}
	}
	if isWeak(scoring.TimeInBusiness) {
		if tier, ok := c.TimeTierFor(p.TimeInBusinessMonths); ok {
			if next, ok := c.NextTimeTier(tier); ok {
				recs = append(recs, fmt.Sprintf("Build operating history to %d months to reach %s",
					next.MinMonths, next.Label))
			}
		}
	}

	recs = append(recs, "Reapply in 3-6 months with improved financials")
	return recs
}
