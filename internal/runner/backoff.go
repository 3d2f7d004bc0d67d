package runner

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig bounds how often a rate-limited task is reattempted and how
// long the runner waits between attempts. The budget is explicit; there is
// no hidden retry loop anywhere else.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// DefaultRetryConfig returns the default retry behaviour: three attempts
// with exponential backoff and jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  2 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// NextDelay calculates the delay before the given attempt number retries.
// Attempt numbering starts at 1 for the first call.
func (c RetryConfig) NextDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))

	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	if c.Jitter {
		delay += time.Duration(rand.Float64() * float64(delay) * 0.1)
	}

	return delay
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	return c
}
