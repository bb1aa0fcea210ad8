package core

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"tl4bcu/link"
	"tl4bcu/protocol"
)

// TestPropertySeqRecvMonotonic checks invariant 1 (spec.md §8): across
// any run of successful, in-order data exchanges, SeqRecv advances by
// exactly one modulo 16 per exchange and is never skipped or reused.
func TestPropertySeqRecvMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		SetTime(10_000)
		bus := link.NewSimBus(0x1101)
		app := &fakeApp{}
		tl := New(Style3{}, bus, app, nil)
		partner := protocol.PhysAddr(0x1110)

		bus.Deliver(connectTelegram(partner, 0x1101))
		tl.Loop()

		rounds := rapid.IntRange(0, 40).Draw(rt, "rounds")
		var expectedSeq SeqNum
		for i := 0; i < rounds; i++ {
			before := app.apciCalls
			seq := uint8(expectedSeq)
			bus.Reset()
			bus.Deliver(dataConnectedTelegram(partner, 0x1101, seq, []byte{byte(i)}))
			tl.Loop()

			require.Equal(rt, before+1, app.apciCalls, "round %d: expected exactly one new upcall", i)
			require.Equal(rt, expectedSeq.Next(), tl.conn.SeqRecv.value, "round %d: SeqRecv must advance by exactly one", i)
			expectedSeq = expectedSeq.Next()
		}
	})
}

// TestPropertyDuplicateDataIsIdempotent checks invariant 4: re-delivering
// the exact same connection-oriented frame any number of times in a row
// never produces more than the one application upcall the first
// delivery caused, regardless of how many times it repeats.
func TestPropertyDuplicateDataIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		SetTime(20_000)
		bus := link.NewSimBus(0x1101)
		app := &fakeApp{}
		tl := New(Style3{}, bus, app, nil)
		partner := protocol.PhysAddr(0x1111)

		bus.Deliver(connectTelegram(partner, 0x1101))
		tl.Loop()

		payload := []byte{rapid.Byte().Draw(rt, "payload")}
		tg := dataConnectedTelegram(partner, 0x1101, 0, payload)

		bus.Reset()
		bus.Deliver(tg)
		tl.Loop()
		require.Equal(rt, 1, app.apciCalls)

		repeats := rapid.IntRange(1, 20).Draw(rt, "repeats")
		for i := 0; i < repeats; i++ {
			bus.Reset()
			bus.Deliver(tg)
			tl.Loop()
			require.Equal(rt, 1, app.apciCalls, "duplicate %d must not reach the application", i)

			sent := bus.Sent()
			require.Len(rt, sent, 1, "duplicate %d must produce exactly one re-sent ack", i)
			ev, err := protocol.Classify(sent[0])
			require.NoError(rt, err)
			require.Equal(rt, protocol.Ack, ev.Kind)
			require.Equal(rt, uint8(0), ev.Seq)
		}
	})
}
