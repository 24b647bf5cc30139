package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"underwriting-workers/internal/engine/criteria"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

func testApplication(monthly float64, months, credit int, industry string) RawApplication {
	return RawApplication{
		MonthlyRevenue:       f64(monthly),
		TimeInBusinessMonths: i(months),
		CreditScore:          i(credit),
		Industry:             industry,
	}
}

func TestEvaluate_PremiumApproval(t *testing.T) {
	// $1.2M/yr, strong credit, 4 years, low-risk industry.
	result, err := Evaluate(testApplication(100000, 48, 740, "Technology"), criteria.Default())
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, result.Decision.Status)
	assert.Equal(t, "Premium", result.Decision.ApprovalTier)
	assert.Equal(t, "A", result.Scoring.Grade)
	assert.Equal(t, 100.0, result.Scoring.TotalScore)
	assert.Equal(t, "High", result.Decision.ConfidenceLevel)

	require.NotNil(t, result.Offer)
	// Base rate 1.15 adjusted by -0.02 industry and -0.05 credit, clamped to
	// the policy floor.
	assert.Equal(t, 1.10, result.Offer.FactorRate)
	assert.Equal(t, 360000.0, result.Offer.AdvanceAmount)
	assert.Equal(t, 6, result.Offer.TermMonths)
	assert.Equal(t, 20.0, result.Offer.EffectiveAPR)
	assert.Empty(t, result.Decision.Conditions)
}

func TestEvaluate_RevenueBelowMinimum(t *testing.T) {
	// $96k/yr sits below the $100k minimum; strong credit and tenure cannot
	// override a hard gate.
	result, err := Evaluate(testApplication(8000, 24, 680, "Retail"), criteria.Default())
	require.NoError(t, err)

	assert.Equal(t, StatusDeclined, result.Decision.Status)
	assert.Empty(t, result.Decision.ApprovalTier)
	assert.Nil(t, result.Offer)
	require.NotEmpty(t, result.Decision.Reasons)
	assert.Contains(t, result.Decision.Reasons[0], "Annual revenue $96000 below minimum $100000")

	// Scoring is still reported for transparency.
	assert.Greater(t, result.Scoring.TotalScore, 0.0)
}

func TestEvaluate_CreditBelowMinimum(t *testing.T) {
	result, err := Evaluate(testApplication(50000, 36, 420, "Healthcare"), criteria.Default())
	require.NoError(t, err)

	assert.Equal(t, StatusDeclined, result.Decision.Status)
	assert.Contains(t, result.Decision.Reasons, "Credit score 420 below minimum 500")
}

func TestEvaluate_SubprimeApprovalWithConditions(t *testing.T) {
	// $360k/yr, weak credit, 10 months, high-risk industry.
	result, err := Evaluate(testApplication(30000, 10, 580, "Restaurant"), criteria.Default())
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, result.Decision.Status)
	assert.Equal(t, "Subprime", result.Decision.ApprovalTier)
	assert.Equal(t, 62.0, result.Scoring.TotalScore)
	assert.Equal(t, "C", result.Scoring.Grade)

	require.NotNil(t, result.Offer)
	// 1.35 base + 0.05 industry + 0.08 credit: the high end of the band.
	assert.Equal(t, 1.48, result.Offer.FactorRate)
	assert.Equal(t, 43200.0, result.Offer.AdvanceAmount)
	assert.Equal(t, 12, result.Offer.TermMonths)
	assert.NotEmpty(t, result.Decision.Conditions, "Subprime approvals always carry conditions")
}

func TestEvaluate_ScoreBelowThreshold(t *testing.T) {
	// Passes every hard gate but scores under 50: revenue 28 + credit 10 +
	// time 10 + default industry 11.25 = 59.25... use a weaker mix.
	result, err := Evaluate(testApplication(10000, 7, 505, "Restaurant"), criteria.Default())
	require.NoError(t, err)

	// 20 + 10 + 10 + 9 = 49, just under the threshold.
	assert.Equal(t, 49.0, result.Scoring.TotalScore)
	assert.Equal(t, StatusDeclined, result.Decision.Status)
	assert.Contains(t, result.Decision.Reasons[0], "below approval threshold")
	assert.NotEmpty(t, result.Decision.Recommendations)
	assert.Nil(t, result.Offer)
}

func TestEvaluate_ValidationFailureListsEveryViolation(t *testing.T) {
	raw := RawApplication{
		MonthlyRevenue: f64(-5),
		CreditScore:    i(200),
		ExistingDebt:   f64(-1),
	}
	_, err := Evaluate(raw, criteria.Default())
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["monthly_revenue"])
	assert.True(t, fields["credit_score"])
	assert.True(t, fields["existing_debt"])
	assert.True(t, fields["time_in_business_months"], "missing required field must be reported")
}

func TestEvaluate_Idempotent(t *testing.T) {
	crit := criteria.Default()
	raw := testApplication(42000, 30, 655, "Construction")

	first, err := Evaluate(raw, crit)
	require.NoError(t, err)
	second, err := Evaluate(raw, crit)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical input and criteria must yield byte-identical results")
}

func TestEvaluate_TotalScoreIsSumOfFactors(t *testing.T) {
	crit := criteria.Default()
	profiles := []RawApplication{
		testApplication(5000, 2, 300, ""),
		testApplication(12000, 8, 510, "Salon/Spa"),
		testApplication(30000, 18, 640, "E-commerce"),
		testApplication(75000, 30, 700, "Manufacturing"),
		testApplication(250000, 120, 850, "Healthcare"),
	}
	for _, raw := range profiles {
		result, err := Evaluate(raw, crit)
		require.NoError(t, err)
		s := result.Scoring
		sum := s.Revenue.Score + s.Credit.Score + s.TimeInBusiness.Score + s.Industry.Score
		assert.Equal(t, sum, s.TotalScore)
		assert.GreaterOrEqual(t, s.TotalScore, 0.0)
		assert.LessOrEqual(t, s.TotalScore, 100.0)
	}
}

func TestEvaluate_RevenueMonotonicity(t *testing.T) {
	crit := criteria.Default()
	var prev float64 = -1
	for _, monthly := range []float64{9000, 10000, 24999, 25000, 49999, 50000, 99999, 100000, 500000} {
		result, err := Evaluate(testApplication(monthly, 24, 680, "Retail"), crit)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Scoring.TotalScore, prev,
			"raising revenue to $%.0f/month must not lower the score", monthly)
		prev = result.Scoring.TotalScore
	}
}

func TestEvaluate_ApprovedOffersStayInPolicyBand(t *testing.T) {
	crit := criteria.Default()
	for _, raw := range []RawApplication{
		testApplication(100000, 48, 740, "Technology"),
		testApplication(30000, 10, 580, "Restaurant"),
		testApplication(60000, 36, 720, "Hospitality"),
		testApplication(15000, 14, 620, "Construction"),
	} {
		result, err := Evaluate(raw, crit)
		require.NoError(t, err)
		if result.Decision.Status != StatusApproved {
			continue
		}
		require.NotNil(t, result.Offer)
		assert.GreaterOrEqual(t, result.Offer.FactorRate, crit.Pricing.FactorRateFloor)
		assert.LessOrEqual(t, result.Offer.FactorRate, crit.Pricing.FactorRateCeiling)
		assert.InDelta(t, result.Offer.AdvanceAmount*result.Offer.FactorRate, result.Offer.TotalRepayment, 0.01)
	}
}

func TestEvaluate_ZeroRevenueFailsGateWithRedFlag(t *testing.T) {
	result, err := Evaluate(testApplication(0, 24, 700, "Education"), criteria.Default())
	require.NoError(t, err)

	assert.Equal(t, StatusDeclined, result.Decision.Status)
	assert.True(t, result.Profile.ZeroRevenue)
	assert.Equal(t, 0.0, result.Profile.DebtToRevenueRatio)
	assert.NotEmpty(t, result.Decision.RedFlags)
}
