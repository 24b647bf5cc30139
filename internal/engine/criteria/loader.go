package criteria

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidCriteria marks a malformed or inconsistent criteria document.
// It is raised at load time and aborts startup; it is never a per-request
// error.
var ErrInvalidCriteria = errors.New("CRITERIA_INVALID")

// documentSchema is the structural contract for external criteria documents.
// Semantic invariants (tier ordering, coverage, weight sums) are enforced by
// Validate after unmarshalling.
const documentSchema = `{
	"type": "object",
	"required": ["minimum_requirements", "revenue_tiers", "credit_tiers",
		"time_in_business_tiers", "industry_risk_table", "base_factor_rates",
		"approval_threshold", "pricing"],
	"properties": {
		"minimum_requirements": {
			"type": "object",
			"required": ["annual_revenue", "time_in_business_months", "credit_score"],
			"properties": {
				"annual_revenue": {"type": "number", "minimum": 0},
				"time_in_business_months": {"type": "integer", "minimum": 0},
				"credit_score": {"type": "integer", "minimum": 300, "maximum": 850}
			}
		},
		"revenue_tiers": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["min", "points", "max_advance_percentage"],
				"properties": {
					"min": {"type": "number", "minimum": 0},
					"max": {"type": "number", "minimum": 0},
					"points": {"type": "number", "minimum": 0},
					"max_advance_percentage": {"type": "number", "minimum": 0},
					"label": {"type": "string"}
				}
			}
		},
		"credit_tiers": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["min", "points"],
				"properties": {
					"min": {"type": "integer"},
					"max": {"type": "integer"},
					"points": {"type": "number", "minimum": 0},
					"factor_rate_adjustment": {"type": "number"},
					"label": {"type": "string"}
				}
			}
		},
		"time_in_business_tiers": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["min_months", "points", "advance_multiplier"],
				"properties": {
					"min_months": {"type": "integer", "minimum": 0},
					"max_months": {"type": "integer", "minimum": 0},
					"points": {"type": "number", "minimum": 0},
					"advance_multiplier": {"type": "number"},
					"label": {"type": "string"}
				}
			}
		},
		"industry_risk_table": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["risk_level", "industries", "points"],
				"properties": {
					"risk_level": {"type": "string"},
					"industries": {"type": "array", "items": {"type": "string"}},
					"points": {"type": "number", "minimum": 0},
					"factor_rate_adjustment": {"type": "number"},
					"description": {"type": "string"}
				}
			}
		},
		"base_factor_rates": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["min_score", "factor_rate", "term_months", "label"],
				"properties": {
					"min_score": {"type": "number", "minimum": 0},
					"factor_rate": {"type": "number"},
					"term_months": {"type": "integer", "minimum": 1},
					"label": {"type": "string"}
				}
			}
		},
		"approval_threshold": {"type": "number", "minimum": 0, "maximum": 100},
		"pricing": {
			"type": "object",
			"required": ["factor_rate_floor", "factor_rate_ceiling", "advance_hard_cap"],
			"properties": {
				"factor_rate_floor": {"type": "number"},
				"factor_rate_ceiling": {"type": "number"},
				"advance_hard_cap": {"type": "number"},
				"multiplier_ceiling": {"type": "number"},
				"periods_per_month": {"type": "number"}
			}
		}
	}
}`

// FromJSON parses, schema-checks and validates a criteria document.
func FromJSON(data []byte) (*Criteria, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: schema check failed: %v", ErrInvalidCriteria, err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidCriteria, strings.Join(issues, "; "))
	}

	var c Criteria
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	applyDocumentDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a criteria document from disk.
func Load(path string) (*Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read criteria document %s: %w", path, err)
	}
	return FromJSON(data)
}

func applyDocumentDefaults(c *Criteria) {
	base := Default()
	if c.Pricing.MultiplierCeiling == 0 {
		c.Pricing.MultiplierCeiling = base.Pricing.MultiplierCeiling
	}
	if c.Pricing.PeriodsPerMonth == 0 {
		c.Pricing.PeriodsPerMonth = base.Pricing.PeriodsPerMonth
	}
	if c.DefaultIndustryRisk.RiskLevel == "" {
		c.DefaultIndustryRisk = base.DefaultIndustryRisk
	}
}
