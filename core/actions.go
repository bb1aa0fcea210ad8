package core

import "tl4bcu/protocol"

// This file holds the A0-A10 actions from spec.md §4.3, one method
// each, named after the spec's own labels for traceability. Apart from
// RequestSend, which prepares the connection-oriented buffer it hands to
// A7, they are the only code that mutates Connection, state or the
// buffer arbiter.

// actionA1Connect (re)initialises the connection to partner and enters
// OPEN_IDLE: fresh sequence counters, fresh connection timeout, handles
// both a brand new T_CONNECT and a re-init from the same partner.
func (t *TLayer4) actionA1Connect(partner protocol.PhysAddr) {
	t.conn.Partner = partner
	t.conn.SeqSend.reset()
	t.conn.SeqRecv.reset()
	t.conn.RepeatCount = 0
	if t.pendingConnBuf != nil {
		t.pendingConnBuf.Finish()
		t.pendingConnBuf = nil
	}
	t.sched.disarm(&t.ackTimer)
	t.state = OpenIdle
	t.touchActivity()
	t.log.Eventf("tl4: connection established with %v", partner)
}

// actionA2SendAckAndProcessApci acks the inbound data, advances
// SeqRecv, and gives the application a chance to answer.
func (t *TLayer4) actionA2SendAckAndProcessApci(seq uint8, raw []byte) {
	t.sendAck(seq)
	t.conn.SeqRecv.value = t.conn.SeqRecv.value.Next()
	t.touchActivity()

	apci := protocol.ExtractAPCI(raw)
	data := protocol.Payload(raw)

	n, hasResponse := t.app.ProcessApci(apci, data, t.scratch[:])
	if !hasResponse {
		return
	}
	buf := t.arb.AcquireConnected()
	if buf == nil {
		t.log.Debugf("tl4: no connection-oriented buffer free for APCI response to %v", t.conn.Partner)
		return
	}
	if !buf.BuildDataConnected(t.bus.OwnAddress(), t.conn.Partner, uint8(t.conn.SeqSend.value), t.scratch[:n]) {
		buf.Finish()
		return
	}
	buf.MarkAckReady()
	t.actionA7SendDirectTelegram(buf)
}

// actionA3SendAckAgain resends the T_ACK for a telegram the caller has
// already processed (seq == seqRecv-1): the partner's own copy of our
// previous ack was lost, so it retransmitted. The application is not
// invoked again.
func (t *TLayer4) actionA3SendAckAgain(seq uint8) {
	t.sendAck(seq)
	t.touchActivity()
	t.Counters.RepeatedTAckCount.Add(1)
}

// actionA4SendNack answers an out-of-sequence data PDU with a T_NACK
// (Style 3 only; see Style.SupportsNack).
func (t *TLayer4) actionA4SendNack(seq uint8) {
	t.sendGeneral(protocol.Nack, t.conn.Partner, seq)
	t.touchActivity()
}

// actionA5DisconnectUser tears the connection down locally: notify the
// application, count it, and reset all connection state. This is also
// what construction performs implicitly (spec.md §9).
func (t *TLayer4) actionA5DisconnectUser() {
	if t.state != Closed {
		t.log.Eventf("tl4: connection with %v closed", t.conn.Partner)
		t.app.OnDisconnect()
		t.Counters.DisconnectCount.Add(1)
	}
	t.resetConnection()
}

// actionA6DisconnectAndClose sends T_DISCONNECT to the current partner
// and then tears the connection down (protocol violation or timeout).
func (t *TLayer4) actionA6DisconnectAndClose() {
	partner := t.conn.Partner
	if t.state != Closed {
		t.sendGeneral(protocol.Disconnect, partner, 0)
	}
	t.actionA5DisconnectUser()
}

// actionA7SendDirectTelegram hands a prepared connection-oriented
// telegram to the link layer and moves to OPEN_WAIT.
func (t *TLayer4) actionA7SendDirectTelegram(buf *protocol.ConnectedBuffer) {
	t.pendingConnBuf = buf
	now := NowMS()
	t.conn.LastSentMS = now
	t.conn.LastActivityMS = now
	if err := t.bus.SendTelegram(buf.Send()); err != nil {
		t.log.Debugf("tl4: send to %v failed: %v", t.conn.Partner, err)
	}
	t.armConnTimeout(now)
	t.armAckTimeout(now)
	t.state = OpenWait
}

// actionA8IncrementSeqSend completes a successful send/ack round trip:
// advance SeqSend, release the outstanding buffer, and return to
// OPEN_IDLE.
func (t *TLayer4) actionA8IncrementSeqSend() {
	t.conn.SeqSend.value = t.conn.SeqSend.value.Next()
	t.conn.RepeatCount = 0
	if t.pendingConnBuf != nil {
		t.pendingConnBuf.Finish()
		t.pendingConnBuf = nil
	}
	t.sched.disarm(&t.ackTimer)
	t.touchActivity()
	t.state = OpenIdle
}

// actionA9RepeatMessage retransmits the outstanding connection-oriented
// telegram unchanged (Style 3 only, up to protocol.MaxRepetitionCount).
func (t *TLayer4) actionA9RepeatMessage() {
	if t.pendingConnBuf == nil {
		t.actionA6DisconnectAndClose()
		return
	}
	t.conn.RepeatCount++
	now := NowMS()
	t.conn.LastSentMS = now
	t.conn.LastActivityMS = now
	if err := t.bus.SendTelegram(t.pendingConnBuf.Bytes()); err != nil {
		t.log.Debugf("tl4: repeat send to %v failed: %v", t.conn.Partner, err)
	}
	t.armConnTimeout(now)
	t.armAckTimeout(now)
}

// actionA10Disconnect tells an address that is not our current partner
// (or that reached us with no connection at all) to go away, without
// touching any existing connection.
func (t *TLayer4) actionA10Disconnect(addr protocol.PhysAddr) {
	t.sendGeneral(protocol.Disconnect, addr, 0)
}

// resetConnection clears all per-connection state and disarms both
// timers. Used by actionA5 and by New.
func (t *TLayer4) resetConnection() {
	t.conn = Connection{}
	t.sched.disarm(&t.connTimer)
	t.sched.disarm(&t.ackTimer)
	if t.pendingConnBuf != nil {
		t.pendingConnBuf.Finish()
		t.pendingConnBuf = nil
	}
	t.dup.Reset()
	t.state = Closed
}

// sendAck sends a T_ACK for seq to the current partner.
func (t *TLayer4) sendAck(seq uint8) {
	t.sendGeneral(protocol.Ack, t.conn.Partner, seq)
}

// sendGeneral encodes and sends a connection-control PDU on the
// general buffer. Control PDUs have no retry semantics inside TL4
// (any link-layer retry happens below this layer, out of scope), so
// the buffer is released as soon as the hand-off to the bus returns.
func (t *TLayer4) sendGeneral(kind protocol.Kind, dst protocol.PhysAddr, seq uint8) {
	if !t.arb.General.TryAcquire() {
		t.log.Debugf("tl4: general send buffer busy, dropping %s to %v", kind, dst)
		return
	}
	frame := protocol.EncodeControl(kind, dst, seq, t.bus.OwnAddress())
	t.arb.General.Fill(frame)
	if err := t.bus.SendTelegram(t.arb.General.Send()); err != nil {
		t.log.Debugf("tl4: send %s to %v failed: %v", kind, dst, err)
	}
	t.arb.General.Finish()
}
