package engine

import (
	"errors"
	"fmt"
	"math"

	"underwriting-workers/internal/engine/criteria"
)

// ErrComputation marks a mid-pipeline invariant violation. It is caught at
// the pipeline boundary and converted into a safe decline; a partially
// computed offer is never emitted.
var ErrComputation = errors.New("COMPUTATION_FAILED")

// Price derives the advance offer for an approved application. Everything is
// computed from the matched tiers and the pricing policy; no new inputs.
//
// The effective APR is a disclosed approximation of the factor-rate cost
// annualized over the term, not an amortized APR. Downstream consumers rely
// on this exact formula.
func Price(p Profile, scoring ScoringResult, tier criteria.RateTier, c *criteria.Criteria) (*Offer, error) {
	revTier, ok := c.RevenueTierFor(p.MonthlyRevenue)
	if !ok {
		return nil, fmt.Errorf("%w: no revenue tier for $%.2f/month", ErrComputation, p.MonthlyRevenue)
	}
	timeTier, ok := c.TimeTierFor(p.TimeInBusinessMonths)
	if !ok {
		return nil, fmt.Errorf("%w: no time tier for %d months", ErrComputation, p.TimeInBusinessMonths)
	}
	creditTier, ok := c.CreditTierFor(p.CreditScore)
	if !ok {
		return nil, fmt.Errorf("%w: no credit tier for score %d", ErrComputation, p.CreditScore)
	}
	industry := c.IndustryBandFor(p.Industry)

	base := p.AnnualRevenue * revTier.MaxAdvancePct / 100
	capped := math.Min(base, c.Pricing.AdvanceHardCap)

	multiplier := math.Min(timeTier.AdvanceMultiplier, c.Pricing.MultiplierCeiling)
	advance := capped * multiplier

	rate := tier.FactorRate + industry.RateAdjustment + creditTier.RateAdjustment
	rate = math.Max(c.Pricing.FactorRateFloor, math.Min(c.Pricing.FactorRateCeiling, rate))

	apr := ((rate - 1.0) / float64(tier.TermMonths)) * 12 * 100

	for _, v := range []float64{advance, rate, apr} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite pricing intermediate", ErrComputation)
		}
	}
	if advance <= 0 {
		return nil, fmt.Errorf("%w: advance amount $%.2f is not positive", ErrComputation, advance)
	}

	// The disclosed repayment and periodic payment derive from the already
	// rounded advance and rate, so the offer fields reconcile with each other.
	advanceOut := roundCents(advance)
	rateOut := roundTo(rate, 3)
	repayment := roundCents(advanceOut * rateOut)
	periodic := roundCents(repayment / (float64(tier.TermMonths) * c.Pricing.PeriodsPerMonth))
	if math.IsNaN(periodic) || math.IsInf(periodic, 0) {
		return nil, fmt.Errorf("%w: non-finite periodic payment", ErrComputation)
	}

	return &Offer{
		AdvanceAmount:   advanceOut,
		FactorRate:      rateOut,
		TotalRepayment:  repayment,
		TermMonths:      tier.TermMonths,
		PeriodicPayment: periodic,
		EffectiveAPR:    roundTo(apr, 2),
		Breakdown: CalculationBreakdown{
			BaseAdvancePct:     revTier.MaxAdvancePct,
			TenureMultiplier:   multiplier,
			BaseFactorRate:     roundTo(tier.FactorRate, 3),
			CreditAdjustment:   roundTo(creditTier.RateAdjustment, 3),
			IndustryAdjustment: roundTo(industry.RateAdjustment, 3),
			HardCapApplied:     base > c.Pricing.AdvanceHardCap,
		},
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
