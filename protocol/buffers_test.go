package protocol

import "testing"

func TestSendBufferLifecycle(t *testing.T) {
	var b SendBuffer
	if !b.TryAcquire() {
		t.Fatal("expected to acquire a free buffer")
	}
	if b.TryAcquire() {
		t.Fatal("must not acquire an already-acquired buffer")
	}

	b.Fill([]byte{1, 2, 3})
	if got := b.Send(); len(got) != 3 {
		t.Fatalf("unexpected bytes handed to link layer: %v", got)
	}
	if b.State() != Sending {
		t.Fatalf("expected Sending, got %v", b.State())
	}

	b.Finish()
	if b.State() != Free {
		t.Fatalf("expected Free after Finish, got %v", b.State())
	}
	if !b.TryAcquire() {
		t.Fatal("buffer should be acquirable again after Finish")
	}
}

func TestConnectedBufferLifecycle(t *testing.T) {
	var b ConnectedBuffer
	if !b.TryAcquire() {
		t.Fatal("expected to acquire a free connected buffer")
	}
	b.Fill([]byte{9, 9, 9})

	if b.MarkAckReady() == false {
		t.Fatal("expected WaitAckSent -> WaitLoop transition to succeed")
	}
	if got := b.Send(); len(got) != 3 {
		t.Fatalf("unexpected bytes: %v", got)
	}
	if b.State() != ConnSending {
		t.Fatalf("expected ConnSending, got %v", b.State())
	}
	b.Finish()
	if b.State() != ConnFree {
		t.Fatalf("expected ConnFree, got %v", b.State())
	}
}

func TestArbiterPicksSecondBufferWhenFirstBusy(t *testing.T) {
	var a Arbiter
	first := a.AcquireConnected()
	if first != &a.Connected {
		t.Fatalf("expected primary buffer first, got %p", first)
	}
	second := a.AcquireConnected()
	if second != &a.Connected2 {
		t.Fatalf("expected secondary buffer second, got %p", second)
	}
	if a.AcquireConnected() != nil {
		t.Fatal("expected nil when both connected buffers are busy")
	}
}
