package resilience

import (
	"time"
)

// FromConfig converts config values to a RetryConfig. Non-positive attempts
// keep the default; a negative delay keeps the default.
func FromConfig(maxAttempts int, delaySecs float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delaySecs >= 0 {
		cfg.Delay = time.Duration(delaySecs * float64(time.Second))
	}
	return cfg
}
