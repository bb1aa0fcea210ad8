package protocol

import "testing"

func ctrlByte(group bool) byte {
	if group {
		return addrTypeGroupBit
	}
	return 0
}

func buildTelegram(src, dst PhysAddr, addrType, tpci byte) []byte {
	t := make([]byte, MinTelegramSize)
	t[OffsetSrcHi] = byte(src >> 8)
	t[OffsetSrcLo] = byte(src)
	t[OffsetDstHi] = byte(dst >> 8)
	t[OffsetDstLo] = byte(dst)
	t[OffsetAddrType] = addrType
	t[OffsetTPCI] = tpci
	return t
}

func TestClassifyTooShort(t *testing.T) {
	_, err := Classify([]byte{1, 2, 3})
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestClassifyConnect(t *testing.T) {
	tg := buildTelegram(0x1102, 0x1101, ctrlByte(false), tpciConnect)
	ev, err := Classify(tg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != Connect || ev.Src != 0x1102 || ev.Dst != 0x1101 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyDisconnect(t *testing.T) {
	tg := buildTelegram(0x1102, 0x1101, ctrlByte(false), tpciDisconnect)
	ev, err := Classify(tg)
	if err != nil || ev.Kind != Disconnect {
		t.Fatalf("unexpected: %+v, %v", ev, err)
	}
}

func TestClassifyDataConnected(t *testing.T) {
	tpci := tpciNumberedBit | (5 << tpciSeqShift)
	tg := buildTelegram(0x1102, 0x1101, ctrlByte(false), byte(tpci))
	ev, err := Classify(tg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != DataConnected || !ev.HasSeq || ev.Seq != 5 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyAckNack(t *testing.T) {
	ackTPCI := 0xC0 | tpciAckMarker | (3 << tpciSeqShift)
	tg := buildTelegram(0x1102, 0x1101, ctrlByte(false), byte(ackTPCI))
	ev, err := Classify(tg)
	if err != nil || ev.Kind != Ack || ev.Seq != 3 {
		t.Fatalf("unexpected ack event: %+v, %v", ev, err)
	}

	nackTPCI := 0xC0 | tpciNackMarker | (7 << tpciSeqShift)
	tg2 := buildTelegram(0x1102, 0x1101, ctrlByte(false), byte(nackTPCI))
	ev2, err := Classify(tg2)
	if err != nil || ev2.Kind != Nack || ev2.Seq != 7 {
		t.Fatalf("unexpected nack event: %+v, %v", ev2, err)
	}
}

func TestClassifyGroupAndBroadcast(t *testing.T) {
	group := buildTelegram(0x1102, 0x0901, ctrlByte(true), 0)
	ev, err := Classify(group)
	if err != nil || ev.Kind != DataGroup {
		t.Fatalf("unexpected group event: %+v, %v", ev, err)
	}

	broadcast := buildTelegram(0x1102, 0x0000, ctrlByte(true), 0)
	ev2, err := Classify(broadcast)
	if err != nil || ev2.Kind != DataBroadcast {
		t.Fatalf("unexpected broadcast event: %+v, %v", ev2, err)
	}
}

func TestClassifyInvalidUnnumberedUnicastData(t *testing.T) {
	tg := buildTelegram(0x1102, 0x1101, ctrlByte(false), 0x00)
	ev, err := Classify(tg)
	if err != ErrInvalid || ev.Kind != Invalid {
		t.Fatalf("expected invalid, got %+v, %v", ev, err)
	}
}

func TestEncodeControlRoundTrip(t *testing.T) {
	frame := EncodeControl(Connect, 0x1102, 0, 0x1101)
	ev, err := Classify(frame)
	if err != nil || ev.Kind != Connect || ev.Src != 0x1101 || ev.Dst != 0x1102 {
		t.Fatalf("round trip failed: %+v, %v", ev, err)
	}

	ackFrame := EncodeControl(Ack, 0x1102, 9, 0x1101)
	ev2, err := Classify(ackFrame)
	if err != nil || ev2.Kind != Ack || ev2.Seq != 9 {
		t.Fatalf("ack round trip failed: %+v, %v", ev2, err)
	}

	nackFrame := EncodeControl(Nack, 0x1102, 2, 0x1101)
	ev3, err := Classify(nackFrame)
	if err != nil || ev3.Kind != Nack || ev3.Seq != 2 {
		t.Fatalf("nack round trip failed: %+v, %v", ev3, err)
	}
}
