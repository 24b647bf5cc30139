package engine

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RawApplication carries applicant attributes as received from the workflow.
// Pointer fields distinguish absent values from explicit zeros.
type RawApplication struct {
	MonthlyRevenue       *float64 `json:"monthly_revenue"`
	TimeInBusinessMonths *int     `json:"time_in_business_months"`
	CreditScore          *int     `json:"credit_score"`
	Industry             string   `json:"industry"`
	ExistingDebt         *float64 `json:"existing_debt"`
}

// Profile is the normalized, validated applicant profile. AnnualRevenue and
// DebtToRevenueRatio are derived, never supplied.
type Profile struct {
	MonthlyRevenue       float64 `json:"monthly_revenue"`
	AnnualRevenue        float64 `json:"annual_revenue"`
	TimeInBusinessMonths int     `json:"time_in_business_months"`
	CreditScore          int     `json:"credit_score"`
	Industry             string  `json:"industry"`
	ExistingDebt         float64 `json:"existing_debt"`
	DebtToRevenueRatio   float64 `json:"debt_to_revenue_ratio"`
	// ZeroRevenue flags an applicant whose ratio is 0 only because there is
	// no revenue to divide by. Reported as a red flag, not a division fault.
	ZeroRevenue bool `json:"zero_revenue"`
}

// FieldViolation is a single broken constraint on the raw application.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated constraint, not just the first.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "invalid application: " + strings.Join(parts, "; ")
}

func (r RawApplication) validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.MonthlyRevenue,
			validation.NotNil.Error("is required"),
			validation.Min(0.0).Error("must not be negative")),
		validation.Field(&r.TimeInBusinessMonths,
			validation.NotNil.Error("is required"),
			validation.Min(0).Error("must not be negative")),
		validation.Field(&r.CreditScore,
			validation.NotNil.Error("is required"),
			validation.Min(300).Error("must be at least 300"),
			validation.Max(850).Error("must be at most 850")),
		validation.Field(&r.ExistingDebt,
			validation.Min(0.0).Error("must not be negative")),
	)
	if err == nil {
		return nil
	}

	errs, ok := err.(validation.Errors)
	if !ok {
		return &ValidationError{Violations: []FieldViolation{{Field: "application", Message: err.Error()}}}
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	violations := make([]FieldViolation, 0, len(fields))
	for _, field := range fields {
		violations = append(violations, FieldViolation{Field: field, Message: errs[field].Error()})
	}
	return &ValidationError{Violations: violations}
}

// NewProfile normalizes a raw application into a Profile, reporting every
// violated constraint on failure.
func NewProfile(raw RawApplication) (Profile, error) {
	if err := raw.validate(); err != nil {
		return Profile{}, err
	}

	p := Profile{
		MonthlyRevenue:       *raw.MonthlyRevenue,
		TimeInBusinessMonths: *raw.TimeInBusinessMonths,
		CreditScore:          *raw.CreditScore,
		Industry:             strings.TrimSpace(raw.Industry),
	}
	if raw.ExistingDebt != nil {
		p.ExistingDebt = *raw.ExistingDebt
	}

	p.AnnualRevenue = p.MonthlyRevenue * 12
	if p.AnnualRevenue > 0 {
		p.DebtToRevenueRatio = p.ExistingDebt / p.AnnualRevenue
	} else {
		p.DebtToRevenueRatio = 0
		p.ZeroRevenue = true
	}
	return p, nil
}
