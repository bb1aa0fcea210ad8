package core

import "tl4bcu/protocol"

// ApplicationLayer is the upward interface TL4 calls into (spec.md §4.6,
// §6). The application/object-server layer itself is out of scope
// (spec.md §1) — this is the only contact surface.
type ApplicationLayer interface {
	// ProcessGroup handles a T_Data_Group telegram addressed to a group
	// address. apci is the raw APCI field; data is the telegram from the
	// byte after TPCI on (the low APCI byte and any data bytes, see
	// protocol.Payload). Returns whether the telegram was understood.
	ProcessGroup(apci uint16, group protocol.PhysAddr, data []byte) bool

	// ProcessBroadcast handles a T_Data_Broadcast telegram.
	ProcessBroadcast(apci uint16, data []byte) bool

	// ProcessApci handles a connection-oriented APCI command. If it
	// wants to answer, it fills send with the response payload (not
	// including the TPCI byte, which the caller stamps) and returns
	// (response length, true); otherwise (0, false).
	ProcessApci(apci uint16, data []byte, send []byte) (int, bool)

	// OnDisconnect lets the application discard any per-connection
	// state (open memory transfers, etc.) when A5 runs.
	OnDisconnect()
}
