package engine

import (
	"fmt"

	"underwriting-workers/internal/engine/criteria"
)

// Grade cutoffs for the composite score.
const (
	gradeACutoff = 85.0
	gradeBCutoff = 70.0
	gradeCCutoff = 50.0
	gradeDCutoff = 30.0
)

// Score computes the four weighted sub-scores and the composite total. Tier
// points are absolute, not interpolated: coarse banding keeps the model
// auditable. Identical profile and criteria always produce an identical
// result.
func Score(p Profile, c *criteria.Criteria) (ScoringResult, error) {
	revenue, err := scoreRevenue(p, c)
	if err != nil {
		return ScoringResult{}, err
	}
	credit, err := scoreCredit(p, c)
	if err != nil {
		return ScoringResult{}, err
	}
	tenure, err := scoreTimeInBusiness(p, c)
	if err != nil {
		return ScoringResult{}, err
	}
	industry := scoreIndustry(p, c)

	total := revenue.Score + credit.Score + tenure.Score + industry.Score

	return ScoringResult{
		Revenue:        revenue,
		Credit:         credit,
		TimeInBusiness: tenure,
		Industry:       industry,
		TotalScore:     total,
		MaxScore:       criteria.TotalFactorPoints,
		Grade:          gradeFor(total),
	}, nil
}

func scoreRevenue(p Profile, c *criteria.Criteria) (FactorScore, error) {
	tier, ok := c.RevenueTierFor(p.MonthlyRevenue)
	if !ok {
		return FactorScore{}, fmt.Errorf("%w: no revenue tier covers $%.2f/month",
			ErrComputation, p.MonthlyRevenue)
	}
	return FactorScore{
		Score:     tier.Points,
		MaxPoints: c.MaxRevenuePoints(),
		Tier:      tier.Label,
		Reasoning: fmt.Sprintf("Monthly revenue of $%.0f falls in %s", p.MonthlyRevenue, tier.Label),
	}, nil
}

func scoreCredit(p Profile, c *criteria.Criteria) (FactorScore, error) {
	tier, ok := c.CreditTierFor(p.CreditScore)
	if !ok {
		return FactorScore{}, fmt.Errorf("%w: no credit tier covers score %d",
			ErrComputation, p.CreditScore)
	}
	return FactorScore{
		Score:     tier.Points,
		MaxPoints: c.MaxCreditPoints(),
		Tier:      tier.Label,
		Reasoning: fmt.Sprintf("Credit score of %d is %s", p.CreditScore, tier.Label),
	}, nil
}

func scoreTimeInBusiness(p Profile, c *criteria.Criteria) (FactorScore, error) {
	tier, ok := c.TimeTierFor(p.TimeInBusinessMonths)
	if !ok {
		return FactorScore{}, fmt.Errorf("%w: no time-in-business tier covers %d months",
			ErrComputation, p.TimeInBusinessMonths)
	}
	return FactorScore{
		Score:     tier.Points,
		MaxPoints: c.MaxTimePoints(),
		Tier:      tier.Label,
		Reasoning: fmt.Sprintf("%d months in business (%s)", p.TimeInBusinessMonths, tier.Label),
	}, nil
}

func scoreIndustry(p Profile, c *criteria.Criteria) FactorScore {
	band := c.IndustryBandFor(p.Industry)
	name := p.Industry
	if name == "" {
		name = "Unspecified industry"
	}
	return FactorScore{
		Score:     band.Points,
		MaxPoints: c.MaxIndustryPoints(),
		Tier:      band.RiskLevel,
		Reasoning: fmt.Sprintf("%s: %s", name, band.Description),
	}
}

func gradeFor(total float64) string {
	switch {
	case total >= gradeACutoff:
		return "A"
	case total >= gradeBCutoff:
		return "B"
	case total >= gradeCCutoff:
		return "C"
	case total >= gradeDCutoff:
		return "D"
	default:
		return "F"
	}
}
