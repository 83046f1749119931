// Package fakeaudio provides an in-memory coreaudio.Backend for tests.
//
// Properties are stored per (object, address). Listener callbacks fire
// synchronously on the goroutine that changes a property, which plays the
// role of the OS notification thread. Every listener add/remove and every
// write is recorded so tests can assert ordering.
package fakeaudio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/NicolasHaas/mutetool/pkg/coreaudio"
)

// OpKind names a recorded backend operation.
type OpKind string

const (
	OpAddListener    OpKind = "add_listener"
	OpRemoveListener OpKind = "remove_listener"
	OpWrite          OpKind = "write"
)

// Op is one recorded operation.
type Op struct {
	Kind    OpKind
	Object  coreaudio.ObjectID
	Address coreaudio.PropertyAddress
	Data    []byte
}

type key struct {
	obj  coreaudio.ObjectID
	addr coreaudio.PropertyAddress
}

type property struct {
	data     []byte
	settable bool

	sizeErr  error
	readErr  error
	writeErr error
}

type registration struct {
	key      key
	listener coreaudio.PropertyListener
}

// Backend is a fake audio object registry.
type Backend struct {
	mu        sync.Mutex
	props     map[key]*property
	listeners map[coreaudio.Token]registration
	next      coreaudio.Token
	ops       []Op
}

var _ coreaudio.Backend = (*Backend)(nil)

// New returns an empty registry: the system object exposes no default
// input device until SetDefaultInput is called.
func New() *Backend {
	return &Backend{
		props:     make(map[key]*property),
		listeners: make(map[coreaudio.Token]registration),
	}
}

func encode(v uint32) []byte {
	b := make([]byte, 4)
	binary.NativeEndian.PutUint32(b, v)
	return b
}

// SetProperty creates or replaces a property without notifying listeners.
func (b *Backend) SetProperty(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, data []byte, settable bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.props[key{obj, addr}] = &property{data: append([]byte(nil), data...), settable: settable}
}

// DeleteProperty removes a property, as if the object stopped exposing it.
func (b *Backend) DeleteProperty(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.props, key{obj, addr})
}

// AddDevice registers an input device with a mute property.
func (b *Backend) AddDevice(id coreaudio.ObjectID, muted, settable bool) {
	b.SetProperty(id, coreaudio.InputMuteAddress, encode(boolToUint32(muted)), settable)
}

// RemoveDevice drops every property of a device, as on unplug. Listeners
// stay registered, like stale OS registrations do.
func (b *Backend) RemoveDevice(id coreaudio.ObjectID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.props {
		if k.obj == id {
			delete(b.props, k)
		}
	}
}

// SetDefaultInput points the system default input at id and fires the
// default-device listeners.
func (b *Backend) SetDefaultInput(id coreaudio.ObjectID) {
	b.SetProperty(coreaudio.SystemObject, coreaudio.DefaultInputDeviceAddress, encode(uint32(id)), false)
	b.Fire(coreaudio.SystemObject, coreaudio.DefaultInputDeviceAddress)
}

// SetMuted changes a device's hardware mute flag from "outside" (another
// application or a physical switch) and fires its mute listeners.
func (b *Backend) SetMuted(id coreaudio.ObjectID, muted bool) {
	b.SetRawMute(id, boolToUint32(muted))
	b.Fire(id, coreaudio.InputMuteAddress)
}

// SetRawMute stores an arbitrary mute value without notifying.
func (b *Backend) SetRawMute(id coreaudio.ObjectID, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{id, coreaudio.InputMuteAddress}]
	if !ok {
		p = &property{settable: true}
		b.props[key{id, coreaudio.InputMuteAddress}] = p
	}
	p.data = encode(v)
}

// Muted reports the device's stored mute flag and whether it exists.
func (b *Backend) Muted(id coreaudio.ObjectID) (muted, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{id, coreaudio.InputMuteAddress}]
	if !ok || len(p.data) < 4 {
		return false, false
	}
	return binary.NativeEndian.Uint32(p.data) != 0, true
}

// FailSize makes the size query of a property fail with err.
func (b *Backend) FailSize(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, err error) {
	b.withProp(obj, addr, func(p *property) { p.sizeErr = err })
}

// FailRead makes reads of a property fail with err.
func (b *Backend) FailRead(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, err error) {
	b.withProp(obj, addr, func(p *property) { p.readErr = err })
}

// FailWrite makes writes of a property fail with err.
func (b *Backend) FailWrite(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, err error) {
	b.withProp(obj, addr, func(p *property) { p.writeErr = err })
}

func (b *Backend) withProp(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, fn func(*property)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{obj, addr}]
	if !ok {
		panic(fmt.Sprintf("fakeaudio: no property %s on %s", addr, obj))
	}
	fn(p)
}

// Fire invokes every listener registered for (obj, addr) on the calling
// goroutine.
func (b *Backend) Fire(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) {
	b.mu.Lock()
	var targets []coreaudio.PropertyListener
	for _, reg := range b.listeners {
		if reg.key == (key{obj, addr}) {
			targets = append(targets, reg.listener)
		}
	}
	b.mu.Unlock()

	for _, l := range targets {
		l.PropertyChanged(obj, addr)
	}
}

// ListenerCount returns how many listeners are registered for (obj, addr).
func (b *Backend) ListenerCount(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, reg := range b.listeners {
		if reg.key == (key{obj, addr}) {
			n++
		}
	}
	return n
}

// Ops returns a copy of the recorded operations.
func (b *Backend) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Op(nil), b.ops...)
}

// Writes returns the recorded writes only.
func (b *Backend) Writes() []Op {
	var out []Op
	for _, op := range b.Ops() {
		if op.Kind == OpWrite {
			out = append(out, op)
		}
	}
	return out
}

// ResetOps clears the operation log.
func (b *Backend) ResetOps() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
}

func (b *Backend) HasProperty(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.props[key{obj, addr}]
	return ok
}

func (b *Backend) IsPropertySettable(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{obj, addr}]
	if !ok {
		return false, coreaudio.StatusUnknownProperty
	}
	return p.settable, nil
}

func (b *Backend) PropertyDataSize(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{obj, addr}]
	if !ok {
		return 0, coreaudio.StatusUnknownProperty
	}
	if p.sizeErr != nil {
		return 0, p.sizeErr
	}
	return uint32(len(p.data)), nil
}

func (b *Backend) PropertyData(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, size uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{obj, addr}]
	if !ok {
		return nil, coreaudio.StatusUnknownProperty
	}
	if p.readErr != nil {
		return nil, p.readErr
	}
	if int(size) != len(p.data) {
		return nil, coreaudio.StatusBadPropertySize
	}
	return append([]byte(nil), p.data...), nil
}

func (b *Backend) SetPropertyData(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.props[key{obj, addr}]
	if !ok {
		return coreaudio.StatusUnknownProperty
	}
	if !p.settable {
		return coreaudio.StatusIllegalOperation
	}
	if p.writeErr != nil {
		return p.writeErr
	}
	p.data = append([]byte(nil), data...)
	b.ops = append(b.ops, Op{Kind: OpWrite, Object: obj, Address: addr, Data: append([]byte(nil), data...)})
	return nil
}

func (b *Backend) AddListener(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, l coreaudio.PropertyListener) (coreaudio.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[b.next] = registration{key: key{obj, addr}, listener: l}
	b.ops = append(b.ops, Op{Kind: OpAddListener, Object: obj, Address: addr})
	return b.next, nil
}

func (b *Backend) RemoveListener(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress, tok coreaudio.Token) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg, ok := b.listeners[tok]
	if !ok || reg.key != (key{obj, addr}) {
		return coreaudio.StatusBadObject
	}
	delete(b.listeners, tok)
	b.ops = append(b.ops, Op{Kind: OpRemoveListener, Object: obj, Address: addr})
	return nil
}

func boolToUint32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
