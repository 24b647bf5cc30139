package criteria

// Default returns the built-in underwriting criteria, used when no criteria
// document is configured. Values track the standard MCA policy: factor
// weights 40/25/20/15, approval threshold 50, factor rates bounded to
// [1.10, 1.50].
func Default() *Criteria {
	return &Criteria{
		Minimums: Minimums{
			AnnualRevenue:        100000,
			TimeInBusinessMonths: 6,
			CreditScore:          500,
		},
		RevenueTiers: []RevenueTier{
			{Min: 0, Max: 10000, Points: 0, MaxAdvancePct: 0, Label: "Below minimum"},
			{Min: 10000, Max: 25000, Points: 20, MaxAdvancePct: 10, Label: "Minimum revenue ($10k-25k/month)"},
			{Min: 25000, Max: 50000, Points: 28, MaxAdvancePct: 15, Label: "Good revenue ($25k-50k/month)"},
			{Min: 50000, Max: 100000, Points: 34, MaxAdvancePct: 20, Label: "Strong revenue ($50k-100k/month)"},
			{Min: 100000, Max: 0, Points: 40, MaxAdvancePct: 25, Label: "High revenue ($100k+/month)"},
		},
		CreditTiers: []CreditTier{
			{Min: 300, Max: 500, Points: 0, RateAdjustment: 0.20, Label: "Below minimum"},
			{Min: 500, Max: 550, Points: 10, RateAdjustment: 0.15, Label: "Very poor credit"},
			{Min: 550, Max: 620, Points: 15, RateAdjustment: 0.08, Label: "Poor credit"},
			{Min: 620, Max: 680, Points: 18.75, RateAdjustment: 0.03, Label: "Fair credit"},
			{Min: 680, Max: 720, Points: 22.5, RateAdjustment: 0.0, Label: "Good credit"},
			{Min: 720, Max: 0, Points: 25, RateAdjustment: -0.05, Label: "Excellent credit"},
		},
		TimeTiers: []TimeTier{
			{MinMonths: 0, MaxMonths: 6, Points: 0, AdvanceMultiplier: 0.8, Label: "Too new"},
			{MinMonths: 6, MaxMonths: 12, Points: 10, AdvanceMultiplier: 0.8, Label: "6-12 months in business"},
			{MinMonths: 12, MaxMonths: 24, Points: 14, AdvanceMultiplier: 1.0, Label: "1-2 years in business"},
			{MinMonths: 24, MaxMonths: 36, Points: 17, AdvanceMultiplier: 1.1, Label: "2-3 years in business"},
			{MinMonths: 36, MaxMonths: 0, Points: 20, AdvanceMultiplier: 1.2, Label: "3+ years in business"},
		},
		IndustryRisk: []IndustryBand{
			{
				RiskLevel:      "low_risk",
				Industries:     []string{"Healthcare", "Professional Services", "Technology", "Education"},
				Points:         15,
				RateAdjustment: -0.02,
				Description:    "Stable, low-risk industries",
			},
			{
				RiskLevel:      "medium_risk",
				Industries:     []string{"Retail", "E-commerce", "Construction", "Manufacturing"},
				Points:         12,
				RateAdjustment: 0.0,
				Description:    "Moderate-risk industries",
			},
			{
				RiskLevel:      "high_risk",
				Industries:     []string{"Restaurant", "Hospitality", "Auto Repair", "Salon/Spa"},
				Points:         9,
				RateAdjustment: 0.05,
				Description:    "Higher-risk industries with volatility",
			},
		},
		DefaultIndustryRisk: IndustryBand{
			RiskLevel:      "unknown",
			Industries:     []string{},
			Points:         11.25,
			RateAdjustment: 0.0,
			Description:    "Risk level unknown, treated as medium risk",
		},
		BaseFactorRates: []RateTier{
			{MinScore: 50, FactorRate: 1.35, TermMonths: 12, Label: "Subprime"},
			{MinScore: 70, FactorRate: 1.25, TermMonths: 9, Label: "Standard"},
			{MinScore: 85, FactorRate: 1.15, TermMonths: 6, Label: "Premium"},
		},
		ApprovalThreshold: 50,
		Pricing: PricingPolicy{
			FactorRateFloor:   1.10,
			FactorRateCeiling: 1.50,
			AdvanceHardCap:    2000000,
			MultiplierCeiling: 1.2,
			// Daily repayment, roughly 22 business days per month.
			PeriodsPerMonth: 21.7,
		},
	}
}
