package link

import (
	"sync"

	"tl4bcu/protocol"
)

// SimBus is an in-memory loopback implementation of Bus, used by unit and
// property tests in place of a real bus driver. Tests push inbound frames
// with Deliver and inspect outbound frames via Sent/LastSent, directly
// modelled on the teacher's host-side test transport: a plain struct,
// no mocking framework.
type SimBus struct {
	mu sync.Mutex

	own     protocol.PhysAddr
	pending []byte
	have    bool
	sending bool
	sent    [][]byte
}

// NewSimBus creates a SimBus owning the given physical address.
func NewSimBus(own protocol.PhysAddr) *SimBus {
	return &SimBus{own: own}
}

func (s *SimBus) TelegramReceived() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.have
}

func (s *SimBus) Telegram() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *SimBus) DiscardReceivedTelegram() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.have = false
	s.pending = nil
}

func (s *SimBus) SendingTelegram() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

func (s *SimBus) SendTelegram(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.sent = append(s.sent, cp)
	// The simulated link completes instantly; real drivers complete
	// asynchronously from interrupt context via FinishedSendingTelegram.
	s.sending = false
	return nil
}

func (s *SimBus) State() State {
	if s.SendingTelegram() {
		return Busy
	}
	return Idle
}

func (s *SimBus) OwnAddress() protocol.PhysAddr {
	return s.own
}

// Deliver queues an inbound telegram for the main loop to pick up next.
func (s *SimBus) Deliver(telegram []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = telegram
	s.have = true
}

// Sent returns every frame handed to SendTelegram so far, in order.
func (s *SimBus) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// LastSent returns the most recently sent frame, or nil if none.
func (s *SimBus) LastSent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}

// Reset clears sent-frame history, useful between test scenario steps.
func (s *SimBus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}
