// Package retry computes backoff delays for repeated failures.
package retry

import (
	"time"

	"git.home.luguber.info/inful/malacounter/internal/config"
	"git.home.luguber.info/inful/malacounter/internal/foundation/errors"
)

// Policy encapsulates backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode    config.RetryBackoffMode // fixed|linear|exponential
	Initial time.Duration           // base delay
	Max     time.Duration           // cap for growth
}

// DefaultPolicy returns exponential backoff from 30s capped at 5m.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 30 * time.Second, Max: 5 * time.Minute}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration) Policy {
	p := DefaultPolicy()
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the resync policy.
func FromConfig(cfg config.ResyncConfig) Policy {
	return NewPolicy(cfg.Backoff, cfg.Interval, cfg.MaxDelay)
}

// Delay returns the backoff delay after the given number of consecutive
// failures (1-based). Non-positive counts yield 0.
func (p Policy) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffLinear:
		d := time.Duration(failures) * p.Initial
		if d > p.Max || d < 0 {
			return p.Max
		}
		return d
	default: // exponential
		if failures > 32 {
			return p.Max
		}
		d := p.Initial * (1 << (failures - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return errors.ValidationError("initial must be >0").Build()
	}
	if p.Max <= 0 {
		return errors.ValidationError("max must be >0").Build()
	}
	return nil
}
