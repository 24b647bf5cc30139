// internal/workers/underwriting/generate-narrative/config.go
package generatenarrative

import "time"

type Config struct {
	GenAIBaseURL string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	MaxTokens    int
	Temperature  float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		MaxTokens:   400,
		Temperature: 0.3,
	}
}
