// internal/workers/underwriting/evaluate-qualification/config.go
package evaluatequalification

import "time"

type Config struct {
	// CriteriaPath locates the criteria JSON document. Empty means the
	// built-in default tables.
	CriteriaPath     string
	CriteriaCacheTTL time.Duration
	Timeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CriteriaCacheTTL: 5 * time.Minute,
		Timeout:          10 * time.Second,
	}
}
