package core

// This file wires the scheduler (spec.md §4.5) to the two deadlines
// TL4 cares about: the connection timeout, refreshed on every
// connection-oriented event, and the ack timeout, armed only while a
// send is outstanding and only for styles that retry. The deadlines
// themselves (t.connTimeoutMS/t.ackTimeoutMS) default to
// protocol.ConnectionTimeoutMS/AckTimeoutMS and can be overridden per
// instance via SetTimeouts.

func (t *TLayer4) armConnTimeout(now uint32) {
	t.sched.arm(&t.connTimer, now+t.connTimeoutMS)
}

func (t *TLayer4) armAckTimeout(now uint32) {
	if !t.Style.SupportsRepeat() {
		return
	}
	t.sched.arm(&t.ackTimer, now+t.ackTimeoutMS)
}

// touchActivity refreshes LastActivityMS and the connection-timeout
// deadline; call on every connection-oriented rx or tx event (spec.md
// §4.5 invariant).
func (t *TLayer4) touchActivity() {
	now := NowMS()
	t.conn.LastActivityMS = now
	t.armConnTimeout(now)
}

// onConnTimeout fires action A6 when no connection-oriented activity
// has been seen for t.connTimeoutMS (event E09).
func (t *TLayer4) onConnTimeout(now uint32) TimerResult {
	if t.state == Closed {
		return TimerDone
	}
	t.actionA6DisconnectAndClose()
	return TimerDone
}

// onAckTimeout fires when a connection-oriented send has gone
// unacknowledged for t.ackTimeoutMS (event E10): retry while the
// style and repeat budget allow it, otherwise close.
func (t *TLayer4) onAckTimeout(now uint32) TimerResult {
	if t.state != OpenWait {
		return TimerDone
	}
	t.retryOrClose()
	return TimerDone
}
