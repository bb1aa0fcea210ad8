// Package link defines the downward interface TL4 uses to talk to the
// external bus/link layer (spec.md §6). The bit-level UART/timer
// interrupts, CRC and LL_ACK handling are out of scope (spec.md §1) —
// this package only states the contract and provides an in-memory fake
// good enough to drive the core against in tests.
package link

import "tl4bcu/protocol"

// State mirrors the minimal bus states the main loop needs to gate
// transmission (spec.md §6).
type State uint8

const (
	Idle State = iota
	Busy
)

// Bus is the link-layer contract TL4 depends on.
type Bus interface {
	// TelegramReceived reports whether a decoded frame is waiting.
	TelegramReceived() bool
	// Telegram returns the buffered frame awaiting consumption.
	Telegram() []byte
	// DiscardReceivedTelegram clears the buffered frame.
	DiscardReceivedTelegram()

	// SendingTelegram reports whether a transmission is currently in
	// flight (main loop must not start another).
	SendingTelegram() bool
	// SendTelegram enqueues one frame for transmission. The Bus keeps
	// no reference to data after this call returns: TL4 releases or
	// reuses the buffer holding it right away.
	SendTelegram(data []byte) error

	State() State
	OwnAddress() protocol.PhysAddr
}
