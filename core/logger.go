package core

// Logger is the platform-agnostic debug sink the TL4 core writes to. It
// mirrors the teacher's DebugWriter/SetDebugWriter split: the core stays
// allocation-light and dependency-free, while the host build wires a
// richer concrete logger (cmd/tl4demo uses charmbracelet/log). Debugf is
// for the noisy per-telegram/per-retry trace; Eventf is for the
// coarser, info-level state-machine milestones (connection
// established, connection torn down) worth keeping even with Debugf
// turned off.
type Logger interface {
	Debugf(format string, args ...interface{})
	Eventf(format string, args ...interface{})
}

// noopLogger discards everything; it is the default so the core never
// needs a nil check.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Eventf(string, ...interface{}) {}

var discard Logger = noopLogger{}
