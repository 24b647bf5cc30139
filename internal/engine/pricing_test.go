package engine

import (
	"testing"

	"underwriting-workers/internal/engine/criteria"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priceFor(t *testing.T, p Profile, c *criteria.Criteria) *Offer {
	t.Helper()
	scoring, err := Score(p, c)
	require.NoError(t, err)
	tier, ok := c.RateTierFor(scoring.TotalScore)
	require.True(t, ok, "score %.1f should match a rate tier", scoring.TotalScore)
	offer, err := Price(p, scoring, tier, c)
	require.NoError(t, err)
	return offer
}

func TestPrice_FactorRateClampedToFloor(t *testing.T) {
	c := criteria.Default()
	// Premium base 1.15, excellent credit -0.05, low-risk industry -0.02:
	// raw 1.08 sits below the 1.10 floor.
	offer := priceFor(t, profileFor(100000, 48, 740, "Technology"), c)

	assert.Equal(t, 1.10, offer.FactorRate)
	assert.Equal(t, 1.15, offer.Breakdown.BaseFactorRate)
	assert.Equal(t, -0.05, offer.Breakdown.CreditAdjustment)
	assert.Equal(t, -0.02, offer.Breakdown.IndustryAdjustment)
}

func TestPrice_FactorRateClampedToCeiling(t *testing.T) {
	c := criteria.Default()
	// Subprime base 1.35, very poor credit +0.15, high-risk industry +0.05:
	// raw 1.55 exceeds the 1.50 ceiling.
	offer := priceFor(t, profileFor(15000, 13, 510, "Restaurant"), c)

	assert.Equal(t, 1.50, offer.FactorRate)
}

func TestPrice_AdvanceHardCap(t *testing.T) {
	c := criteria.Default()
	// $12M annual at 25% would be $3M before the $2M cap.
	offer := priceFor(t, profileFor(1000000, 48, 740, "Technology"), c)

	assert.True(t, offer.Breakdown.HardCapApplied)
	assert.Equal(t, 2000000*1.2, offer.AdvanceAmount)
}

func TestPrice_EffectiveAPRFormula(t *testing.T) {
	c := criteria.Default()
	offer := priceFor(t, profileFor(100000, 48, 740, "Technology"), c)

	// ((1.10 - 1) / 6 months) * 12 * 100
	assert.Equal(t, 20.0, offer.EffectiveAPR)
	assert.Equal(t, 6, offer.TermMonths)
}

func TestPrice_TotalRepaymentIsAdvanceTimesRate(t *testing.T) {
	c := criteria.Default()
	offer := priceFor(t, profileFor(30000, 30, 690, "Retail"), c)

	assert.InDelta(t, offer.AdvanceAmount*offer.FactorRate, offer.TotalRepayment, 0.01)
	assert.Greater(t, offer.PeriodicPayment, 0.0)
}

func TestPrice_TenureMultiplierBoundedByCeiling(t *testing.T) {
	c := criteria.Default()
	c.TimeTiers[len(c.TimeTiers)-1].AdvanceMultiplier = 2.0

	offer := priceFor(t, profileFor(100000, 48, 740, "Technology"), c)
	assert.Equal(t, c.Pricing.MultiplierCeiling, offer.Breakdown.TenureMultiplier)
}

func TestPrice_PeriodicPaymentDerivesFromRoundedRepayment(t *testing.T) {
	c := criteria.Default()
	offer := priceFor(t, profileFor(30000, 30, 690, "Retail"), c)

	// The disclosed repayment is rounded to cents before the periodic payment
	// is derived, so the two stay consistent to within the cent rounding of
	// the periodic amount itself.
	assert.Equal(t, roundCents(offer.AdvanceAmount*offer.FactorRate), offer.TotalRepayment)

	periods := float64(offer.TermMonths) * c.Pricing.PeriodsPerMonth
	assert.Equal(t, roundCents(offer.TotalRepayment/periods), offer.PeriodicPayment)
	assert.InDelta(t, offer.TotalRepayment, offer.PeriodicPayment*periods, 0.005*periods)
}
