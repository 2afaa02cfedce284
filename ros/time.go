package ros

import "time"

// Time is a wire timestamp: signed seconds and nanoseconds since the epoch.
type Time struct {
	Sec  int64
	NSec uint32
}

// NewTime returns a normalized Time.
func NewTime(sec int64, nsec uint32) Time {
	sec += int64(nsec / 1e9)
	nsec = nsec % 1e9
	return Time{Sec: sec, NSec: nsec}
}

// Now returns the current wall clock time.
func Now() Time {
	return FromTime(time.Now())
}

// FromTime converts a time.Time.
func FromTime(t time.Time) Time {
	return Time{Sec: t.Unix(), NSec: uint32(t.Nanosecond())}
}

// ToTime converts to a time.Time.
func (t Time) ToTime() time.Time {
	return time.Unix(t.Sec, int64(t.NSec))
}

func (t Time) IsZero() bool {
	return t.Sec == 0 && t.NSec == 0
}

// Cmp returns -1, 0 or 1 depending on whether t is before, equal to or after other.
func (t Time) Cmp(other Time) int {
	switch {
	case t.Sec < other.Sec:
		return -1
	case t.Sec > other.Sec:
		return 1
	case t.NSec < other.NSec:
		return -1
	case t.NSec > other.NSec:
		return 1
	default:
		return 0
	}
}

func (t Time) Add(d time.Duration) Time {
	return FromTime(t.ToTime().Add(d))
}

// Diff returns t - other.
func (t Time) Diff(other Time) time.Duration {
	return t.ToTime().Sub(other.ToTime())
}
