//go:build !tinygo

package core

// State is a placeholder for interrupt state on regular Go (used by
// tests and the host build; TinyGo targets use the real primitive in
// interrupt_tinygo.go to guard the connection record and buffer
// ownership words from the link-layer interrupt context, per spec.md §5).
type State uintptr

// disableInterrupts is a no-op on regular Go (for testing)
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go (for testing)
func restoreInterrupts(state State) {
	// No-op
}
