// Package apci is a small reference ApplicationLayer: a registry of
// handlers keyed by APCI command, grounded on the teacher's
// CommandRegistry (register-then-dispatch over a mutex-guarded map,
// rather than a switch statement or a generated jump table).
package apci

import (
	"sync"

	"tl4bcu/core"
	"tl4bcu/protocol"
)

// Group commands relevant to this reference layer.
const (
	GroupWrite uint16 = 0x080
	GroupRead  uint16 = 0x000
)

// Connection-oriented commands.
const (
	DeviceDescriptorRead     uint16 = 0x300
	DeviceDescriptorResponse uint16 = 0x340
	Restart                  uint16 = 0x380
)

// GroupHandler answers a group-addressed telegram.
type GroupHandler func(group protocol.PhysAddr, data []byte)

// ConnectedHandler answers a connection-oriented APCI command. If it
// wants to reply it writes the response into send and returns
// (length, true).
type ConnectedHandler func(data []byte, send []byte) (int, bool)

// Registry is a reference core.ApplicationLayer built from independently
// registered per-command handlers, in place of one large switch.
type Registry struct {
	mu        sync.RWMutex
	group     map[uint16]GroupHandler
	connected map[uint16]ConnectedHandler

	broadcast func(apci uint16, data []byte)
	disconnect func()
}

// NewRegistry returns an empty registry. RegisterDeviceDescriptor
// installs a minimal DeviceDescriptor_Read responder matching spec.md
// §8 scenario S1's demo APCI.
func NewRegistry() *Registry {
	return &Registry{
		group:     make(map[uint16]GroupHandler),
		connected: make(map[uint16]ConnectedHandler),
	}
}

// RegisterGroup installs a handler for a group-addressed APCI command.
func (r *Registry) RegisterGroup(apci uint16, h GroupHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.group[apci] = h
}

// RegisterConnected installs a handler for a connection-oriented APCI
// command.
func (r *Registry) RegisterConnected(apci uint16, h ConnectedHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected[apci] = h
}

// OnBroadcast installs the handler T_Data_Broadcast telegrams are
// delivered to.
func (r *Registry) OnBroadcast(h func(apci uint16, data []byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = h
}

// OnDisconnectFunc installs the handler run when the connection drops.
func (r *Registry) OnDisconnectFunc(h func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnect = h
}

func (r *Registry) ProcessGroup(apci uint16, group protocol.PhysAddr, data []byte) bool {
	r.mu.RLock()
	h, ok := r.group[apci]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	h(group, data)
	return true
}

func (r *Registry) ProcessBroadcast(apci uint16, data []byte) bool {
	r.mu.RLock()
	h := r.broadcast
	r.mu.RUnlock()
	if h == nil {
		return false
	}
	h(apci, data)
	return true
}

func (r *Registry) ProcessApci(apci uint16, data []byte, send []byte) (int, bool) {
	r.mu.RLock()
	h, ok := r.connected[apci]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return h(data, send)
}

func (r *Registry) OnDisconnect() {
	r.mu.RLock()
	h := r.disconnect
	r.mu.RUnlock()
	if h != nil {
		h()
	}
}

var _ core.ApplicationLayer = (*Registry)(nil)

// DeviceDescriptorType0 is the mask byte a plain (non-BCU2) device
// reports in response to DeviceDescriptor_Read, per spec.md §8's demo
// scenario.
const DeviceDescriptorType0 = 0x0705

// RegisterDeviceDescriptor wires a DeviceDescriptor_Read responder that
// always reports descriptorType.
func (r *Registry) RegisterDeviceDescriptor(descriptorType uint16) {
	r.RegisterConnected(DeviceDescriptorRead, func(data []byte, send []byte) (int, bool) {
		if len(send) < 2 {
			return 0, false
		}
		send[0] = byte(descriptorType >> 8)
		send[1] = byte(descriptorType)
		return 2, true
	})
}
