// Package criteria holds the underwriting criteria tables: minimum
// requirements, weighted factor tiers, industry risk bands and pricing
// policy. Tables are loaded once at startup, validated, and treated as
// immutable for the lifetime of the process.
package criteria

import (
	"fmt"
	"sort"
	"strings"
)

// TotalFactorPoints is the declared maximum of the composite score. The four
// factor tables must have maxima that sum to exactly this value.
const TotalFactorPoints = 100.0

// Minimums are the absolute gates checked before any score-based decision.
type Minimums struct {
	AnnualRevenue        float64 `json:"annual_revenue"`
	TimeInBusinessMonths int     `json:"time_in_business_months"`
	CreditScore          int     `json:"credit_score"`
}

// RevenueTier is a monthly-revenue band. Max <= 0 means unbounded.
type RevenueTier struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Points        float64 `json:"points"`
	MaxAdvancePct float64 `json:"max_advance_percentage"`
	Label         string  `json:"label"`
}

// CreditTier is a credit-score band. Max <= 0 means unbounded.
type CreditTier struct {
	Min            int     `json:"min"`
	Max            int     `json:"max"`
	Points         float64 `json:"points"`
	RateAdjustment float64 `json:"factor_rate_adjustment"`
	Label          string  `json:"label"`
}

// TimeTier is a time-in-business band. MaxMonths <= 0 means unbounded.
// AdvanceMultiplier scales the advance amount to reward tenure.
type TimeTier struct {
	MinMonths         int     `json:"min_months"`
	MaxMonths         int     `json:"max_months"`
	Points            float64 `json:"points"`
	AdvanceMultiplier float64 `json:"advance_multiplier"`
	Label             string  `json:"label"`
}

// IndustryBand groups industries sharing a risk profile.
type IndustryBand struct {
	RiskLevel      string   `json:"risk_level"`
	Industries     []string `json:"industries"`
	Points         float64  `json:"points"`
	RateAdjustment float64  `json:"factor_rate_adjustment"`
	Description    string   `json:"description"`
}

// RateTier maps a minimum composite score to an approval tier with its base
// factor rate and repayment term.
type RateTier struct {
	MinScore   float64 `json:"min_score"`
	FactorRate float64 `json:"factor_rate"`
	TermMonths int     `json:"term_months"`
	Label      string  `json:"label"`
}

// PricingPolicy bounds the pricing engine so no combination of adjustments
// produces an out-of-policy offer.
type PricingPolicy struct {
	FactorRateFloor   float64 `json:"factor_rate_floor"`
	FactorRateCeiling float64 `json:"factor_rate_ceiling"`
	AdvanceHardCap    float64 `json:"advance_hard_cap"`
	MultiplierCeiling float64 `json:"multiplier_ceiling"`
	PeriodsPerMonth   float64 `json:"periods_per_month"`
}

// Criteria is the full underwriting configuration.
type Criteria struct {
	Minimums            Minimums       `json:"minimum_requirements"`
	RevenueTiers        []RevenueTier  `json:"revenue_tiers"`
	CreditTiers         []CreditTier   `json:"credit_tiers"`
	TimeTiers           []TimeTier     `json:"time_in_business_tiers"`
	IndustryRisk        []IndustryBand `json:"industry_risk_table"`
	DefaultIndustryRisk IndustryBand   `json:"default_industry_risk"`
	BaseFactorRates     []RateTier     `json:"base_factor_rates"`
	ApprovalThreshold   float64        `json:"approval_threshold"`
	Pricing             PricingPolicy  `json:"pricing"`
}

// RevenueTierFor returns the band containing the monthly revenue. Bands are
// inclusive-low, exclusive-high, checked in ascending order of Min.
func (c *Criteria) RevenueTierFor(monthlyRevenue float64) (RevenueTier, bool) {
	for _, t := range c.RevenueTiers {
		if monthlyRevenue >= t.Min && (t.Max <= 0 || monthlyRevenue < t.Max) {
			return t, true
		}
	}
	return RevenueTier{}, false
}

// CreditTierFor returns the band containing the credit score.
func (c *Criteria) CreditTierFor(score int) (CreditTier, bool) {
	for _, t := range c.CreditTiers {
		if score >= t.Min && (t.Max <= 0 || score < t.Max) {
			return t, true
		}
	}
	return CreditTier{}, false
}

// TimeTierFor returns the band containing the months in business.
func (c *Criteria) TimeTierFor(months int) (TimeTier, bool) {
	for _, t := range c.TimeTiers {
		if months >= t.MinMonths && (t.MaxMonths <= 0 || months < t.MaxMonths) {
			return t, true
		}
	}
	return TimeTier{}, false
}

// NextRevenueTier returns the band directly above the given one, if any.
func (c *Criteria) NextRevenueTier(current RevenueTier) (RevenueTier, bool) {
	for _, t := range c.RevenueTiers {
		if t.Min > current.Min {
			return t, true
		}
	}
	return RevenueTier{}, false
}

// NextCreditTier returns the band directly above the given one, if any.
func (c *Criteria) NextCreditTier(current CreditTier) (CreditTier, bool) {
	for _, t := range c.CreditTiers {
		if t.Min > current.Min {
			return t, true
		}
	}
	return CreditTier{}, false
}

// NextTimeTier returns the band directly above the given one, if any.
func (c *Criteria) NextTimeTier(current TimeTier) (TimeTier, bool) {
	for _, t := range c.TimeTiers {
		if t.MinMonths > current.MinMonths {
			return t, true
		}
	}
	return TimeTier{}, false
}

// IndustryBandFor looks up the risk band for an industry name. Matching is
// case-insensitive and tolerant of partial names ("auto repair shop" matches
// "Auto Repair"). Unknown industries fall back to the default band.
func (c *Criteria) IndustryBandFor(industry string) IndustryBand {
	needle := strings.ToLower(strings.TrimSpace(industry))
	if needle == "" {
		return c.DefaultIndustryRisk
	}
	for _, band := range c.IndustryRisk {
		for _, name := range band.Industries {
			known := strings.ToLower(name)
			if strings.Contains(needle, known) || strings.Contains(known, needle) {
				return band
			}
		}
	}
	return c.DefaultIndustryRisk
}

// RateTierFor returns the highest approval tier whose MinScore is at or
// below the composite score.
func (c *Criteria) RateTierFor(totalScore float64) (RateTier, bool) {
	var (
		best  RateTier
		found bool
	)
	for _, t := range c.BaseFactorRates {
		if totalScore >= t.MinScore && (!found || t.MinScore > best.MinScore) {
			best = t
			found = true
		}
	}
	return best, found
}

// MaxRevenuePoints is the highest awardable revenue factor score.
func (c *Criteria) MaxRevenuePoints() float64 { return maxRevenue(c.RevenueTiers) }

// MaxCreditPoints is the highest awardable credit factor score.
func (c *Criteria) MaxCreditPoints() float64 { return maxCredit(c.CreditTiers) }

// MaxTimePoints is the highest awardable time-in-business factor score.
func (c *Criteria) MaxTimePoints() float64 { return maxTime(c.TimeTiers) }

// MaxIndustryPoints is the highest awardable industry factor score.
func (c *Criteria) MaxIndustryPoints() float64 {
	max := c.DefaultIndustryRisk.Points
	for _, b := range c.IndustryRisk {
		if b.Points > max {
			max = b.Points
		}
	}
	return max
}

func maxRevenue(tiers []RevenueTier) float64 {
	var max float64
	for _, t := range tiers {
		if t.Points > max {
			max = t.Points
		}
	}
	return max
}

func maxCredit(tiers []CreditTier) float64 {
	var max float64
	for _, t := range tiers {
		if t.Points > max {
			max = t.Points
		}
	}
	return max
}

func maxTime(tiers []TimeTier) float64 {
	var max float64
	for _, t := range tiers {
		if t.Points > max {
			max = t.Points
		}
	}
	return max
}

// Validate checks the structural invariants of the criteria tables. A
// violation here is a startup failure, never a per-request error.
func (c *Criteria) Validate() error {
	if c.Minimums.AnnualRevenue <= 0 {
		return fmt.Errorf("%w: minimum_requirements.annual_revenue must be positive", ErrInvalidCriteria)
	}
	if c.Minimums.CreditScore < 300 || c.Minimums.CreditScore > 850 {
		return fmt.Errorf("%w: minimum_requirements.credit_score must be within 300-850", ErrInvalidCriteria)
	}
	if c.Minimums.TimeInBusinessMonths < 0 {
		return fmt.Errorf("%w: minimum_requirements.time_in_business_months must not be negative", ErrInvalidCriteria)
	}

	if err := c.validateRevenueTiers(); err != nil {
		return err
	}
	if err := c.validateCreditTiers(); err != nil {
		return err
	}
	if err := c.validateTimeTiers(); err != nil {
		return err
	}
	if err := c.validateIndustry(); err != nil {
		return err
	}
	if err := c.validateRateTiers(); err != nil {
		return err
	}
	if err := c.validatePricing(); err != nil {
		return err
	}

	if c.ApprovalThreshold < 0 || c.ApprovalThreshold > TotalFactorPoints {
		return fmt.Errorf("%w: approval_threshold %.1f outside [0, %.0f]",
			ErrInvalidCriteria, c.ApprovalThreshold, TotalFactorPoints)
	}

	sum := c.MaxRevenuePoints() + c.MaxCreditPoints() + c.MaxTimePoints() + c.MaxIndustryPoints()
	if sum != TotalFactorPoints {
		return fmt.Errorf("%w: factor maxima sum to %.1f, want %.0f",
			ErrInvalidCriteria, sum, TotalFactorPoints)
	}
	return nil
}

func (c *Criteria) validateRevenueTiers() error {
	if len(c.RevenueTiers) == 0 {
		return fmt.Errorf("%w: revenue_tiers is empty", ErrInvalidCriteria)
	}
	tiers := c.RevenueTiers
	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].Min < tiers[j].Min }) {
		return fmt.Errorf("%w: revenue_tiers must be ordered by ascending min", ErrInvalidCriteria)
	}
	if tiers[0].Min != 0 {
		return fmt.Errorf("%w: revenue_tiers must start at 0", ErrInvalidCriteria)
	}
	for i := 0; i < len(tiers)-1; i++ {
		if tiers[i].Max != tiers[i+1].Min {
			return fmt.Errorf("%w: revenue_tiers gap between %q and %q",
				ErrInvalidCriteria, tiers[i].Label, tiers[i+1].Label)
		}
	}
	if last := tiers[len(tiers)-1]; last.Max > 0 {
		return fmt.Errorf("%w: top revenue tier %q must be unbounded", ErrInvalidCriteria, last.Label)
	}
	for _, t := range tiers {
		if t.Points < 0 || t.MaxAdvancePct < 0 {
			return fmt.Errorf("%w: revenue tier %q has negative points or advance percentage",
				ErrInvalidCriteria, t.Label)
		}
	}
	return nil
}

func (c *Criteria) validateCreditTiers() error {
	if len(c.CreditTiers) == 0 {
		return fmt.Errorf("%w: credit_tiers is empty", ErrInvalidCriteria)
	}
	tiers := c.CreditTiers
	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].Min < tiers[j].Min }) {
		return fmt.Errorf("%w: credit_tiers must be ordered by ascending min", ErrInvalidCriteria)
	}
	if tiers[0].Min != 300 {
		return fmt.Errorf("%w: credit_tiers must start at 300", ErrInvalidCriteria)
	}
	for i := 0; i < len(tiers)-1; i++ {
		if tiers[i].Max != tiers[i+1].Min {
			return fmt.Errorf("%w: credit_tiers gap between %q and %q",
				ErrInvalidCriteria, tiers[i].Label, tiers[i+1].Label)
		}
	}
	if last := tiers[len(tiers)-1]; last.Max > 0 && last.Max < 851 {
		return fmt.Errorf("%w: credit_tiers must cover scores up to 850", ErrInvalidCriteria)
	}
	return nil
}

func (c *Criteria) validateTimeTiers() error {
	if len(c.TimeTiers) == 0 {
		return fmt.Errorf("%w: time_in_business_tiers is empty", ErrInvalidCriteria)
	}
	tiers := c.TimeTiers
	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].MinMonths < tiers[j].MinMonths }) {
		return fmt.Errorf("%w: time_in_business_tiers must be ordered by ascending min_months", ErrInvalidCriteria)
	}
	if tiers[0].MinMonths != 0 {
		return fmt.Errorf("%w: time_in_business_tiers must start at 0", ErrInvalidCriteria)
	}
	for i := 0; i < len(tiers)-1; i++ {
		if tiers[i].MaxMonths != tiers[i+1].MinMonths {
			return fmt.Errorf("%w: time_in_business_tiers gap between %q and %q",
				ErrInvalidCriteria, tiers[i].Label, tiers[i+1].Label)
		}
	}
	if last := tiers[len(tiers)-1]; last.MaxMonths > 0 {
		return fmt.Errorf("%w: top time tier %q must be unbounded", ErrInvalidCriteria, last.Label)
	}
	for _, t := range tiers {
		if t.AdvanceMultiplier <= 0 {
			return fmt.Errorf("%w: time tier %q advance_multiplier must be positive",
				ErrInvalidCriteria, t.Label)
		}
	}
	return nil
}

func (c *Criteria) validateIndustry() error {
	if len(c.IndustryRisk) == 0 {
		return fmt.Errorf("%w: industry_risk_table is empty", ErrInvalidCriteria)
	}
	for _, band := range c.IndustryRisk {
		if band.RiskLevel == "" {
			return fmt.Errorf("%w: industry band missing risk_level", ErrInvalidCriteria)
		}
		if len(band.Industries) == 0 {
			return fmt.Errorf("%w: industry band %q lists no industries", ErrInvalidCriteria, band.RiskLevel)
		}
	}
	if c.DefaultIndustryRisk.RiskLevel == "" {
		return fmt.Errorf("%w: default_industry_risk is required", ErrInvalidCriteria)
	}
	return nil
}

func (c *Criteria) validateRateTiers() error {
	if len(c.BaseFactorRates) == 0 {
		return fmt.Errorf("%w: base_factor_rates is empty", ErrInvalidCriteria)
	}
	lowest := c.BaseFactorRates[0].MinScore
	for _, t := range c.BaseFactorRates {
		if t.FactorRate <= 1.0 {
			return fmt.Errorf("%w: rate tier %q factor_rate must exceed 1.0", ErrInvalidCriteria, t.Label)
		}
		if t.TermMonths <= 0 {
			return fmt.Errorf("%w: rate tier %q term_months must be positive", ErrInvalidCriteria, t.Label)
		}
		if t.MinScore < lowest {
			lowest = t.MinScore
		}
	}
	if lowest > c.ApprovalThreshold {
		return fmt.Errorf("%w: no rate tier covers the approval threshold %.1f",
			ErrInvalidCriteria, c.ApprovalThreshold)
	}
	return nil
}

func (c *Criteria) validatePricing() error {
	p := c.Pricing
	if p.FactorRateFloor <= 1.0 || p.FactorRateCeiling < p.FactorRateFloor {
		return fmt.Errorf("%w: factor rate band [%.2f, %.2f] is not a valid policy band",
			ErrInvalidCriteria, p.FactorRateFloor, p.FactorRateCeiling)
	}
	if p.AdvanceHardCap <= 0 {
		return fmt.Errorf("%w: pricing.advance_hard_cap must be positive", ErrInvalidCriteria)
	}
	if p.MultiplierCeiling < 1.0 {
		return fmt.Errorf("%w: pricing.multiplier_ceiling must be at least 1.0", ErrInvalidCriteria)
	}
	if p.PeriodsPerMonth <= 0 {
		return fmt.Errorf("%w: pricing.periods_per_month must be positive", ErrInvalidCriteria)
	}
	return nil
}
