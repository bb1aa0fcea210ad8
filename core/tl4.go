// Package core implements the TL4 connection-oriented transport-layer
// state machine (spec.md §4): the CLOSED/OPEN_IDLE/OPEN_WAIT state
// machine, the timeout supervisor, and the buffer arbiter glue that
// ties protocol codecs to a link.Bus and an ApplicationLayer.
package core

import (
	"tl4bcu/link"
	"tl4bcu/protocol"
)

// TL4State is the connection state (spec.md §3, §4.3).
type TL4State uint8

const (
	Closed TL4State = iota
	OpenIdle
	OpenWait
)

func (s TL4State) String() string {
	switch s {
	case OpenIdle:
		return "OPEN_IDLE"
	case OpenWait:
		return "OPEN_WAIT"
	default:
		return "CLOSED"
	}
}

// Connection is the single open-connection record (spec.md §3: "at
// most one"). Its fields are undefined while CLOSED.
type Connection struct {
	Partner        protocol.PhysAddr
	SeqSend        seqSlot
	SeqRecv        seqSlot
	RepeatCount    int
	LastActivityMS uint32
	LastSentMS     uint32
}

// TLayer4 is the transport-layer connection manager. One instance
// serves one device address; it does not itself know how to frame or
// physically transmit telegrams (link.Bus does that) or what any APCI
// command means (ApplicationLayer does that).
type TLayer4 struct {
	Style Style

	bus link.Bus
	app ApplicationLayer
	log Logger

	state TL4State
	conn  Connection

	dup protocol.DupFilter
	arb protocol.Arbiter

	sched     scheduler
	connTimer Timer
	ackTimer  Timer

	// connTimeoutMS/ackTimeoutMS are the deadlines armConnTimeout/
	// armAckTimeout use; they default to protocol.ConnectionTimeoutMS/
	// protocol.AckTimeoutMS and can be overridden per instance via
	// SetTimeouts (config.Device's connection_timeout_ms/ack_timeout_ms).
	connTimeoutMS uint32
	ackTimeoutMS  uint32

	// pendingConnBuf is the connection-oriented buffer currently
	// outstanding: sent but not yet resolved by a T_ACK/T_NACK, an ack
	// timeout, or a link-layer failure report.
	pendingConnBuf *protocol.ConnectedBuffer

	// scratch is the one fixed-size staging area ProcessApci responses
	// are written into before being copied into a connected buffer, so
	// the hot path allocates nothing (spec.md §5).
	scratch [protocol.MaxTelegramSize]byte

	Counters Counters
}

// New builds a TLayer4 for the given bus and application, in CLOSED
// state (spec.md §9: "construction is treated as an implicit A5").
func New(style Style, bus link.Bus, app ApplicationLayer, log Logger) *TLayer4 {
	if log == nil {
		log = discard
	}
	t := &TLayer4{
		Style:         style,
		bus:           bus,
		app:           app,
		log:           log,
		connTimeoutMS: protocol.ConnectionTimeoutMS,
		ackTimeoutMS:  protocol.AckTimeoutMS,
	}
	t.connTimer.Handler = t.onConnTimeout
	t.ackTimer.Handler = t.onAckTimeout
	t.resetConnection()
	return t
}

// SetTimeouts overrides the connection and ack timeout deadlines used by
// armConnTimeout/armAckTimeout; a zero argument leaves the corresponding
// deadline at its protocol default. Call before the connection is
// driven, typically right after New from config.Device's
// ConnectionTimeoutMS/AckTimeoutMS.
func (t *TLayer4) SetTimeouts(connTimeoutMS, ackTimeoutMS uint32) {
	if connTimeoutMS != 0 {
		t.connTimeoutMS = connTimeoutMS
	}
	if ackTimeoutMS != 0 {
		t.ackTimeoutMS = ackTimeoutMS
	}
}

// State returns the current connection state.
func (t *TLayer4) State() TL4State { return t.state }

// ConnectedTo returns the current partner address, or protocol.Zero
// while CLOSED.
func (t *TLayer4) ConnectedTo() protocol.PhysAddr {
	if t.state == Closed {
		return protocol.Zero
	}
	return t.conn.Partner
}

// DirectConnection reports whether addr is the currently connected
// partner.
func (t *TLayer4) DirectConnection(addr protocol.PhysAddr) bool {
	return t.state != Closed && t.conn.Partner == addr
}

// OwnAddress returns the device's own physical address, as reported by
// the underlying bus.
func (t *TLayer4) OwnAddress() protocol.PhysAddr { return t.bus.OwnAddress() }

// Loop drives the timeout supervisor and, if a telegram has arrived,
// processes it (spec.md §4.1, §4.5). Call it on every main-loop tick.
func (t *TLayer4) Loop() {
	now := NowMS()
	func() {
		state := disableInterrupts()
		defer restoreInterrupts(state)
		t.sched.dispatch(now)
	}()

	if t.bus.TelegramReceived() {
		t.ProcessTelegram(t.bus.Telegram())
		t.bus.DiscardReceivedTelegram()
	}
}

// ProcessTelegram decodes and dispatches one received telegram
// (spec.md §4.1). Malformed telegrams are silently dropped, matching
// spec.md §7's "never raise an error for a malformed or spurious
// incoming telegram".
func (t *TLayer4) ProcessTelegram(raw []byte) {
	t.Counters.TelegramCount.Add(1)

	ev, err := protocol.Classify(raw)
	isDup := t.dup.Check(raw)
	if err != nil {
		return
	}

	// The connection record and buffer ownership words are also touched
	// by FinishedSendingTelegram, which a real link driver calls from
	// interrupt context (spec.md §5); guard the dispatch the same way.
	state := disableInterrupts()
	defer restoreInterrupts(state)

	switch ev.Kind {
	case protocol.DataGroup:
		t.processGroupLike(ev, isDup, raw, false)
	case protocol.DataBroadcast:
		t.processGroupLike(ev, isDup, raw, true)
	case protocol.Connect:
		t.processConnect(ev, isDup)
	case protocol.Disconnect:
		t.processDisconnect(ev)
	case protocol.Ack, protocol.Nack:
		t.processAckNack(ev)
	case protocol.DataConnected:
		t.processDataConnected(ev, raw)
	}
}

func (t *TLayer4) processGroupLike(ev protocol.Event, isDup bool, raw []byte, broadcast bool) {
	if isDup {
		t.Counters.RepeatedTelegramCount.Add(1)
		t.Counters.RepeatedIgnoredTelegramCount.Add(1)
		return
	}
	apci := protocol.ExtractAPCI(raw)
	data := protocol.Payload(raw)
	if broadcast {
		t.app.ProcessBroadcast(apci, data)
	} else {
		t.app.ProcessGroup(apci, ev.Dst, data)
	}
}

// processConnect handles T_CONNECT (spec.md §4.3 event E00). A
// duplicate control PDU received while CLOSED has no connection
// context to arbitrate it against, so it is dropped outright; once a
// connection exists, the partner/sequence logic in the transition
// table takes precedence over the raw byte-duplicate flag, since every
// T_CONNECT from one partner is byte-identical and a second genuine
// reconnect attempt must still re-init (spec.md §4.2 vs §4.3 are
// reconciled this way — see DESIGN.md).
func (t *TLayer4) processConnect(ev protocol.Event, isDup bool) {
	switch t.state {
	case Closed:
		if isDup {
			return
		}
		t.actionA1Connect(ev.Src)
	case OpenIdle, OpenWait:
		if ev.Src == t.conn.Partner {
			t.actionA1Connect(ev.Src)
		} else {
			t.actionA10Disconnect(ev.Src)
		}
	}
}

// processDisconnect handles T_DISCONNECT (event E01).
func (t *TLayer4) processDisconnect(ev protocol.Event) {
	if t.state == Closed {
		return
	}
	if ev.Src != t.conn.Partner {
		t.actionA10Disconnect(ev.Src)
		return
	}
	t.actionA5DisconnectUser()
}

// processAckNack handles T_ACK/T_NACK (events E03/E05). Both share one
// wire discriminator window in the classifier; the action differs:
// spec.md's canonical transition-table row ("OPEN_WAIT, correct seq ->
// OPEN_IDLE, A8") describes T_ACK. A T_NACK with the correct sequence
// instead asks for a retry, handled the same way an ack timeout would
// (A9 if the style and repeat budget allow it, else A6) — see
// DESIGN.md.
func (t *TLayer4) processAckNack(ev protocol.Event) {
	if t.state != OpenWait {
		return
	}
	if ev.Src != t.conn.Partner {
		t.actionA10Disconnect(ev.Src)
		return
	}
	if !t.conn.SeqSend.value.Equals(ev.Seq) {
		t.actionA6DisconnectAndClose()
		return
	}
	if ev.Kind == protocol.Nack {
		t.retryOrClose()
		return
	}
	t.actionA8IncrementSeqSend()
}

// processDataConnected handles T_Data_Connected (events E02/E04).
func (t *TLayer4) processDataConnected(ev protocol.Event, raw []byte) {
	if t.state == Closed || ev.Src != t.conn.Partner {
		t.actionA10Disconnect(ev.Src)
		return
	}

	switch {
	case t.conn.SeqRecv.value.Equals(ev.Seq):
		t.actionA2SendAckAndProcessApci(ev.Seq, raw)
	case t.conn.SeqRecv.value.Prev().Equals(ev.Seq):
		t.actionA3SendAckAgain(ev.Seq)
	default:
		if t.Style.SupportsNack() {
			t.actionA4SendNack(ev.Seq)
		} else {
			t.actionA6DisconnectAndClose()
		}
	}
}

// RequestSend lets the application originate a connection-oriented
// telegram from OPEN_IDLE (event E07, action A7). It returns false if
// there is no open connection or no free connection-oriented buffer.
func (t *TLayer4) RequestSend(data []byte) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if t.state != OpenIdle {
		return false
	}
	buf := t.arb.AcquireConnected()
	if buf == nil {
		return false
	}
	if !buf.BuildDataConnected(t.bus.OwnAddress(), t.conn.Partner, uint8(t.conn.SeqSend.value), data) {
		buf.Finish()
		return false
	}
	buf.MarkAckReady()
	t.actionA7SendDirectTelegram(buf)
	return true
}

// FinishedSendingTelegram is the link-layer transmission-completion
// notification (spec.md §4.4, §6), expected to be called once per
// SendTelegram — possibly from interrupt context on a real bus driver.
// A positive report is a no-op here: for connection-oriented sends the
// outcome that matters to the state machine is the T_ACK/T_NACK (or
// its absence), not the bus-level hand-off. A negative report — the
// link layer exhausted its own retries without an LL_ACK — is routed
// through the same repeat-or-close choice an ack timeout would make
// (spec.md §4.4's "raises event E10-ack-timeout... when the buffer was
// connection-oriented").
func (t *TLayer4) FinishedSendingTelegram(success bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if success || t.pendingConnBuf == nil {
		return
	}
	t.retryOrClose()
}

func (t *TLayer4) retryOrClose() {
	if t.Style.SupportsRepeat() && t.conn.RepeatCount < protocol.MaxRepetitionCount {
		t.actionA9RepeatMessage()
	} else {
		t.actionA6DisconnectAndClose()
	}
}
