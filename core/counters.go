package core

import "sync/atomic"

// Counters are the read-only observability fields spec.md §9 calls out
// as "part of the public contract for tests even though they do not
// influence protocol behaviour." They never gate any decision in the
// state machine.
type Counters struct {
	TelegramCount                atomic.Uint32
	DisconnectCount              atomic.Uint32
	RepeatedTelegramCount        atomic.Uint32
	RepeatedIgnoredTelegramCount atomic.Uint32
	RepeatedTAckCount            atomic.Uint32
}

// Snapshot is a point-in-time, plain-value copy of Counters, convenient
// for tests and for metrics.Collector to read without touching the
// atomics directly.
type Snapshot struct {
	TelegramCount                uint32
	DisconnectCount              uint32
	RepeatedTelegramCount        uint32
	RepeatedIgnoredTelegramCount uint32
	RepeatedTAckCount            uint32
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TelegramCount:                c.TelegramCount.Load(),
		DisconnectCount:              c.DisconnectCount.Load(),
		RepeatedTelegramCount:        c.RepeatedTelegramCount.Load(),
		RepeatedIgnoredTelegramCount: c.RepeatedIgnoredTelegramCount.Load(),
		RepeatedTAckCount:            c.RepeatedTAckCount.Load(),
	}
}
