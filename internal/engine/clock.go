package engine

import "time"

// Clock supplies wall-clock time for commit timestamps and query timing.
//
// Production uses SystemClock. Tests inject a fixed or stepping clock so
// timestamps and execution times are reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock.
//
// Thread-safety: SystemClock is stateless and safe for concurrent use.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
