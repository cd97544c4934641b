package amm

import "time"

// Clock reports the current time in unix seconds. Deadlines are compared
// against it at the start of each operation.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// SystemClock reads the wall clock.
func SystemClock() Clock {
	return ClockFunc(func() uint64 { return uint64(time.Now().Unix()) })
}

// FixedClock always reports ts.
func FixedClock(ts uint64) Clock {
	return ClockFunc(func() uint64 { return ts })
}
