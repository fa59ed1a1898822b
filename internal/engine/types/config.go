package types

import (
	"time"
)

// Reconciler defaults
const (
	// DefaultProgressTolerance is how far (in percentage points) a raw sample
	// may fall below the last accepted one before it is treated as stale.
	DefaultProgressTolerance = 5.0

	// DefaultMinProgressInterval is the minimum spacing between accepted
	// progress updates for one download. Faster samples are dropped.
	DefaultMinProgressInterval = 100 * time.Millisecond

	DefaultPercentWindow = 3
	DefaultSpeedWindow   = 5
)

// Channel buffer sizes
const (
	EventChannelBuffer = 100
)

// Params tunes the reconciler. NewStore normalizes it: zero windows and a
// zero MinProgressInterval take the defaults above. A zero ProgressTolerance
// is kept, so any drop is rejected. A negative MinProgressInterval disables
// throttling.
type Params struct {
	ProgressTolerance   float64
	MinProgressInterval time.Duration
	PercentWindow       int
	SpeedWindow         int
}

// DefaultParams returns the reconciler defaults.
func DefaultParams() Params {
	return Params{
		ProgressTolerance:   DefaultProgressTolerance,
		MinProgressInterval: DefaultMinProgressInterval,
		PercentWindow:       DefaultPercentWindow,
		SpeedWindow:         DefaultSpeedWindow,
	}
}

// Normalize replaces unset or invalid values with defaults. A negative
// MinProgressInterval is kept as the "disabled" marker so that normalizing
// twice gives the same result.
func (p Params) Normalize() Params {
	if p.ProgressTolerance < 0 {
		p.ProgressTolerance = DefaultProgressTolerance
	}
	if p.MinProgressInterval == 0 {
		p.MinProgressInterval = DefaultMinProgressInterval
	}
	if p.PercentWindow <= 0 {
		p.PercentWindow = DefaultPercentWindow
	}
	if p.SpeedWindow <= 0 {
		p.SpeedWindow = DefaultSpeedWindow
	}
	return p
}
