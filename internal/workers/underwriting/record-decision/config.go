// internal/workers/underwriting/record-decision/config.go
package recorddecision

import "time"

type Config struct {
	// DecisionIndex is the Elasticsearch index receiving decision documents.
	DecisionIndex string
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DecisionIndex: "underwriting-decisions",
		Timeout:       10 * time.Second,
	}
}
