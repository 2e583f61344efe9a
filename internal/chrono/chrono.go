// Package chrono supplies the time values and clock sources used by the
// timing engine: monotonic instants paired with wall-clock instants, and
// the optional Real Time / Game Time duration pair attached to splits.
package chrono

import "time"

// AtomicDateTime is a wall-clock instant together with a flag telling
// whether the clock was confirmed against an authoritative source when
// the instant was captured.
type AtomicDateTime struct {
	Time   time.Time
	Synced bool
}

// Sub returns the signed duration between two instants.
func (a AtomicDateTime) Sub(other AtomicDateTime) time.Duration {
	return a.Time.Sub(other.Time)
}

// Add shifts the instant by d, keeping the synced flag.
func (a AtomicDateTime) Add(d time.Duration) AtomicDateTime {
	return AtomicDateTime{Time: a.Time.Add(d), Synced: a.Synced}
}

// Equal reports whether both instants denote the same point in time.
func (a AtomicDateTime) Equal(other AtomicDateTime) bool {
	return a.Time.Equal(other.Time)
}

// ISO8601 is the wire format for AtomicDateTime instants.
const ISO8601 = time.RFC3339Nano

// FormatISO renders the instant in ISO-8601 form.
func (a AtomicDateTime) FormatISO() string {
	return a.Time.UTC().Format(ISO8601)
}

// ParseISO parses an ISO-8601 instant produced by FormatISO.
func ParseISO(s string, synced bool) (AtomicDateTime, error) {
	t, err := time.Parse(ISO8601, s)
	if err != nil {
		return AtomicDateTime{}, err
	}
	return AtomicDateTime{Time: t, Synced: synced}, nil
}

// Clock provides the two timestamp families the engine needs. Now must
// come from a monotonic source; NowUTC is wall clock, kept for display
// and serialization. Tests inject a fake implementation.
type Clock interface {
	Now() time.Time
	NowUTC() AtomicDateTime
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NowUTC() AtomicDateTime {
	// The system clock is not verified against any authoritative source.
	return AtomicDateTime{Time: time.Now().UTC(), Synced: false}
}

// SystemClock returns the process-wide real clock.
func SystemClock() Clock { return systemClock{} }

// Time pairs an optional Real Time with an optional Game Time. A nil
// component means the value is absent, never zero.
type Time struct {
	RealTime *time.Duration
	GameTime *time.Duration
}

// Span returns a pointer to d, for building Time values.
func Span(d time.Duration) *time.Duration { return &d }

// Add combines two Times component-wise. A component of the result is
// present only when both operands carry it.
func (t Time) Add(other Time) Time {
	var out Time
	if t.RealTime != nil && other.RealTime != nil {
		out.RealTime = Span(*t.RealTime + *other.RealTime)
	}
	if t.GameTime != nil && other.GameTime != nil {
		out.GameTime = Span(*t.GameTime + *other.GameTime)
	}
	return out
}

// Get returns the component for the given axis: true selects Real Time.
func (t Time) Get(realTime bool) *time.Duration {
	if realTime {
		return t.RealTime
	}
	return t.GameTime
}

// Seconds converts a duration to floating-point seconds.
func Seconds(d time.Duration) float64 { return d.Seconds() }

// FromSeconds converts floating-point seconds back to a duration.
func FromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
