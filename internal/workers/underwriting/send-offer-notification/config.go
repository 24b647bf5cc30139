// internal/workers/underwriting/send-offer-notification/config.go
package sendoffernotification

import "time"

type Config struct {
	EmailEnabled     bool
	SMSEnabled       bool
	FromEmail        string
	AWSRegion        string
	SMSTierThreshold string
	Timeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SMSTierThreshold: "Premium",
		Timeout:          30 * time.Second,
	}
}
