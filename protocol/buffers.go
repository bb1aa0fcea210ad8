package protocol

import "sync/atomic"

// Ownership is the lifecycle state of the general send buffer
// (spec.md §3, §4.4).
type Ownership uint32

const (
	Free Ownership = iota
	Acquired
	Sending
)

// SendBuffer is the general-purpose transmit slot: broadcast, group and
// APCI-response telegrams not tied to connection sequencing. The producer
// (main loop) fills it after TryAcquire, hands it to the link layer with
// Send, and releases it with Finish. TL4's sendGeneral calls Finish as
// soon as SendTelegram returns; the buffer is not held until the link
// layer's completion notification.
//
// It is a fixed-size array, never a slice grown at runtime, so the hot
// path allocates nothing (spec.md §5).
type SendBuffer struct {
	data  [MaxTelegramSize]byte
	n     int
	state atomic.Uint32 // Ownership
}

// TryAcquire attempts Free -> Acquired. It does not block: spec.md §4.4
// calls for the caller to "busy-wait (yielding to the main loop)", i.e.
// retry on the next tick, not to spin inside this call.
func (b *SendBuffer) TryAcquire() bool {
	return b.state.CompareAndSwap(uint32(Free), uint32(Acquired))
}

// Fill copies data into the buffer. Only valid while held Acquired by the
// caller that just succeeded TryAcquire.
func (b *SendBuffer) Fill(data []byte) {
	b.n = copy(b.data[:], data)
}

// Bytes returns the filled portion of the buffer.
func (b *SendBuffer) Bytes() []byte {
	return b.data[:b.n]
}

// Send transitions Acquired -> Sending and returns the bytes to hand to
// the link layer. Invariant 4 (spec.md §3): once this returns, no
// main-loop code may touch the buffer again until Finish.
func (b *SendBuffer) Send() []byte {
	b.state.Store(uint32(Sending))
	return b.Bytes()
}

// Finish releases the buffer back to Free; the single atomic store is the
// entire hand-off.
func (b *SendBuffer) Finish() {
	b.state.Store(uint32(Free))
}

// State reports the current ownership, for tests and diagnostics.
func (b *SendBuffer) State() Ownership {
	return Ownership(b.state.Load())
}

// ConnOwnership is the lifecycle state of a connection-oriented send
// buffer (spec.md §3, §4.4).
type ConnOwnership uint32

const (
	ConnFree ConnOwnership = iota
	// ConnWaitAckSent holds a prepared connected response until the
	// T_ACK for the inbound telegram that triggered it has gone out on
	// the general buffer (A2 always acks before it answers).
	ConnWaitAckSent
	// ConnWaitLoop is ready for the main loop to hand off to the link
	// layer on its next tick.
	ConnWaitLoop
	ConnSending
)

// ConnectedBuffer is one of the two connection-oriented send slots
// (spec.md §4.4: "the double buffer exists because Style 3 may hold a
// buffer for up to the ack timeout while simultaneously processing an
// inbound APCI that needs to answer").
type ConnectedBuffer struct {
	data  [MaxTelegramSize]byte
	n     int
	state atomic.Uint32 // ConnOwnership
}

// TryAcquire attempts Free -> ConnWaitAckSent.
func (b *ConnectedBuffer) TryAcquire() bool {
	return b.state.CompareAndSwap(uint32(ConnFree), uint32(ConnWaitAckSent))
}

// Fill copies data into the buffer. Only valid while held.
func (b *ConnectedBuffer) Fill(data []byte) {
	b.n = copy(b.data[:], data)
}

// Bytes returns the filled portion of the buffer.
func (b *ConnectedBuffer) Bytes() []byte {
	return b.data[:b.n]
}

// MarkAckReady transitions ConnWaitAckSent -> ConnWaitLoop once the
// paired T_ACK has left the general buffer.
func (b *ConnectedBuffer) MarkAckReady() bool {
	return b.state.CompareAndSwap(uint32(ConnWaitAckSent), uint32(ConnWaitLoop))
}

// Send transitions ConnWaitLoop -> ConnSending and returns the bytes to
// hand to the link layer. Invariant 3 (spec.md §3) is enforced by the
// caller only ever calling Send on the buffer it is actively tracking as
// the connection's outstanding telegram.
func (b *ConnectedBuffer) Send() []byte {
	b.state.Store(uint32(ConnSending))
	return b.Bytes()
}

// Finish releases the buffer back to Free. TL4 calls it on the main loop
// once the outstanding telegram is resolved (T_ACK, reconnect or close).
func (b *ConnectedBuffer) Finish() {
	b.state.Store(uint32(ConnFree))
}

// BuildDataConnected assembles a complete T_Data_Connected telegram
// directly into the buffer: standard-frame header from ownAddr to dst,
// the numbered TPCI byte carrying seq, and payload (APCI plus any data
// bytes) starting at the first payload offset. It reports false if
// payload does not fit the frame. This is the connection-oriented
// counterpart to Fill+EncodeDataConnected, used whenever the caller
// has a payload rather than an already-framed telegram.
func (b *ConnectedBuffer) BuildDataConnected(ownAddr, dst PhysAddr, seq uint8, payload []byte) bool {
	n := OffsetTPCI + 1 + len(payload)
	if n > len(b.data) {
		return false
	}
	b.data[OffsetControl] = frameStandard | (priorityNormal << 2)
	b.data[OffsetSrcHi] = byte(ownAddr >> 8)
	b.data[OffsetSrcLo] = byte(ownAddr)
	b.data[OffsetDstHi] = byte(dst >> 8)
	b.data[OffsetDstLo] = byte(dst)
	b.data[OffsetAddrType] = byte(routingCountDefault<<4) | byte(len(payload)&0x0F)
	copy(b.data[OffsetTPCI+1:n], payload)
	b.n = n
	EncodeDataConnected(b.data[:n], seq)
	return true
}

// State reports the current ownership.
func (b *ConnectedBuffer) State() ConnOwnership {
	return ConnOwnership(b.state.Load())
}

// Arbiter owns the three send slots described in spec.md §4.4 and hands
// out the free connection-oriented buffer to whichever code path needs
// one next.
type Arbiter struct {
	General      SendBuffer
	Connected    ConnectedBuffer
	Connected2   ConnectedBuffer
}

// AcquireConnected returns the first free connection-oriented buffer, or
// nil if both are in use (which TL4's single-connection, single-outstanding
// -telegram design should never actually hit).
func (a *Arbiter) AcquireConnected() *ConnectedBuffer {
	if a.Connected.TryAcquire() {
		return &a.Connected
	}
	if a.Connected2.TryAcquire() {
		return &a.Connected2
	}
	return nil
}
