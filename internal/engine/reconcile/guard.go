package reconcile

import "time"

// Verdict is the result of offering a progress sample to a Guard.
type Verdict int

const (
	Accepted Verdict = iota
	Throttled
	Regressed
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Throttled:
		return "throttled"
	case Regressed:
		return "regressed"
	default:
		return "unknown"
	}
}

// Guard filters raw progress for one download. It drops samples that arrive
// sooner than MinInterval after the last accepted one, and rejects samples
// that fall more than Tolerance percentage points below the last accepted value.
type Guard struct {
	Tolerance   float64
	MinInterval time.Duration

	last   float64
	lastAt time.Time
	seen   bool
}

// NewGuard returns a Guard with no accepted samples.
func NewGuard(tolerance float64, minInterval time.Duration) *Guard {
	return &Guard{Tolerance: tolerance, MinInterval: minInterval}
}

// Prime sets the baseline without starting the throttle clock, so the next
// live sample is compared against p but never throttled.
func (g *Guard) Prime(p float64) {
	g.last = p
	g.seen = true
}

// Admit decides whether sample p arriving at now is accepted. Accepted samples
// become the new baseline.
func (g *Guard) Admit(p float64, now time.Time) Verdict {
	if !g.lastAt.IsZero() && g.MinInterval > 0 && now.Sub(g.lastAt) < g.MinInterval {
		return Throttled
	}
	if g.seen && p < g.last-g.Tolerance {
		return Regressed
	}
	g.last = p
	g.lastAt = now
	g.seen = true
	return Accepted
}

// Last returns the last accepted raw value and whether one exists.
func (g *Guard) Last() (float64, bool) {
	return g.last, g.seen
}
