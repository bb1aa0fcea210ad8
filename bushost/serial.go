// Package bushost bridges link.Bus to a real serial port via
// github.com/tarm/serial, adapted from the teacher's host-side serial
// transport (Config/OpenPort, a background read goroutine feeding a
// decoded-frame buffer). The wire framing here — STX, length, payload,
// CRC16, ETX — is a demo substitute for a real KNX transceiver's
// UART protocol (e.g. TP-UART), not a KNX-conformant physical layer;
// the actual bus physical/link layer is out of scope (spec.md §1).
package bushost

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"

	"tl4bcu/link"
	"tl4bcu/protocol"
)

const (
	stx = 0x02
	etx = 0x03

	maxFrameLen = protocol.MaxTelegramSize
)

// SerialBus implements link.Bus over a serial port.
type SerialBus struct {
	own  protocol.PhysAddr
	port *serial.Port

	mu      sync.Mutex
	pending []byte
	have    bool
	sending bool
}

// Open opens device at baud and starts the background read loop.
func Open(device string, baud int, own protocol.PhysAddr) (*SerialBus, error) {
	cfg := &serial.Config{Name: device, Baud: baud, ReadTimeout: 200 * time.Millisecond}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("bushost: open %s: %w", device, err)
	}

	b := &SerialBus{own: own, port: port}
	go b.readLoop()
	return b, nil
}

// Close releases the underlying serial port.
func (b *SerialBus) Close() error {
	return b.port.Close()
}

func (b *SerialBus) readLoop() {
	r := bufio.NewReader(b.port)
	for {
		frame, err := readFrame(r)
		if err != nil {
			if err == io.EOF {
				return
			}
			continue // bad frame or timeout: resync on the next STX
		}
		b.mu.Lock()
		b.pending = frame
		b.have = true
		b.mu.Unlock()
	}
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == stx {
			break
		}
	}

	length, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if int(length) > maxFrameLen {
		return nil, fmt.Errorf("bushost: frame length %d exceeds maximum", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	var crcBytes [2]byte
	if _, err := io.ReadFull(r, crcBytes[:]); err != nil {
		return nil, err
	}
	end, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if end != etx {
		return nil, fmt.Errorf("bushost: frame missing ETX terminator")
	}

	want := crc16(payload)
	got := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
	if want != got {
		return nil, fmt.Errorf("bushost: crc mismatch (want %04x, got %04x)", want, got)
	}
	return payload, nil
}

func (b *SerialBus) TelegramReceived() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.have
}

func (b *SerialBus) Telegram() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *SerialBus) DiscardReceivedTelegram() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.have = false
	b.pending = nil
}

func (b *SerialBus) SendingTelegram() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sending
}

func (b *SerialBus) SendTelegram(data []byte) error {
	frame := make([]byte, 0, len(data)+5)
	frame = append(frame, stx, byte(len(data)))
	frame = append(frame, data...)
	c := crc16(data)
	frame = append(frame, byte(c>>8), byte(c), etx)

	b.mu.Lock()
	b.sending = true
	b.mu.Unlock()

	_, err := b.port.Write(frame)

	b.mu.Lock()
	b.sending = false
	b.mu.Unlock()
	return err
}

func (b *SerialBus) State() link.State {
	if b.SendingTelegram() {
		return link.Busy
	}
	return link.Idle
}

func (b *SerialBus) OwnAddress() protocol.PhysAddr {
	return b.own
}

var _ link.Bus = (*SerialBus)(nil)
