// Package clock provides the server-authoritative time source for the
// engine. Production wiring must route every "now" through a Clock; the
// engine never accepts client-supplied time for window validation.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the host clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a test clock pinned to a settable instant.
type Fixed struct {
	t time.Time
}

// NewFixed creates a Fixed clock at the given instant.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	return f.t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

// Set pins the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.t = t
}
