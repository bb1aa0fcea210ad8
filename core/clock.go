package core

import "sync/atomic"

// clockMS holds the monotonic millisecond counter the timeout supervisor
// (spec.md §4.5) compares against. On TinyGo targets SetHardwareClockFunc
// should be wired to the real hardware tick counter during bring-up;
// the host build (and tests) drive it directly with SetTime.
var (
	clockMS     atomic.Uint32
	hardwareFn  func() uint32
)

// NowMS returns the current monotonic time in milliseconds, wrapping at
// 2^32 as spec.md §4.5 requires. Comparisons against it must use signed
// subtraction (see scheduler.go) to survive the wrap.
func NowMS() uint32 {
	if hardwareFn != nil {
		return hardwareFn()
	}
	return clockMS.Load()
}

// SetTime sets the cached clock value; used by tests and by builds with
// no direct hardware timer.
func SetTime(ms uint32) {
	clockMS.Store(ms)
}

// SetHardwareClockFunc registers a function reading the real hardware
// millisecond counter directly, bypassing the cached value. Call during
// platform bring-up, before the TL4 loop starts.
func SetHardwareClockFunc(f func() uint32) {
	hardwareFn = f
}
