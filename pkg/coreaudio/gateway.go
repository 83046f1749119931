package coreaudio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Gateway performs typed, failure-tolerant reads and writes of audio
// object properties. It holds no state besides its backend and is safe
// for concurrent use.
type Gateway struct {
	backend Backend
	log     *slog.Logger
}

// NewGateway wraps a backend. Use System() for the host's audio subsystem.
func NewGateway(b Backend) *Gateway {
	return &Gateway{
		backend: b,
		log:     slog.Default().With("component", "coreaudio"),
	}
}

// Read returns the raw property data. It returns ErrNoSuchProperty when
// the object does not expose the property or the OS fails to size or read
// it.
func (g *Gateway) Read(obj ObjectID, addr PropertyAddress) ([]byte, error) {
	if !g.backend.HasProperty(obj, addr) {
		return nil, ErrNoSuchProperty
	}

	size, err := g.backend.PropertyDataSize(obj, addr)
	if err != nil {
		g.log.Debug("property size query failed", "object", obj, "address", addr, "err", err)
		return nil, absent("size", err)
	}

	data, err := g.backend.PropertyData(obj, addr, size)
	if err != nil {
		g.log.Debug("property read failed", "object", obj, "address", addr, "err", err)
		return nil, absent("read", err)
	}
	return data, nil
}

// Write stores data into the property. A nil return means the value was
// written. ErrNotSettable means the property exists but is read-only and
// nothing was written.
func (g *Gateway) Write(obj ObjectID, addr PropertyAddress, data []byte) error {
	if !g.backend.HasProperty(obj, addr) {
		return ErrNoSuchProperty
	}

	settable, err := g.backend.IsPropertySettable(obj, addr)
	if err != nil {
		g.log.Debug("settable query failed", "object", obj, "address", addr, "err", err)
		settable = false
	}
	if !settable {
		return ErrNotSettable
	}

	size, err := g.backend.PropertyDataSize(obj, addr)
	if err != nil {
		g.log.Debug("property size query failed", "object", obj, "address", addr, "err", err)
		return absent("size", err)
	}
	if int(size) != len(data) {
		return absent("size", fmt.Errorf("property holds %d bytes, have %d", size, len(data)))
	}

	if err := g.backend.SetPropertyData(obj, addr, data); err != nil {
		g.log.Debug("property write failed", "object", obj, "address", addr, "err", err)
		return absent("write", err)
	}
	return nil
}

// ReadUint32 reads a 32-bit unsigned property in host byte order.
func (g *Gateway) ReadUint32(obj ObjectID, addr PropertyAddress) (uint32, error) {
	data, err := g.Read(obj, addr)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, absent("decode", fmt.Errorf("short property data: %d bytes", len(data)))
	}
	return binary.NativeEndian.Uint32(data), nil
}

// WriteUint32 writes a 32-bit unsigned property in host byte order.
func (g *Gateway) WriteUint32(obj ObjectID, addr PropertyAddress, v uint32) error {
	data := make([]byte, 4)
	binary.NativeEndian.PutUint32(data, v)
	return g.Write(obj, addr, data)
}

// ReadObjectID reads a property holding an AudioObjectID.
func (g *Gateway) ReadObjectID(obj ObjectID, addr PropertyAddress) (ObjectID, error) {
	v, err := g.ReadUint32(obj, addr)
	if err != nil {
		return Unknown, err
	}
	return ObjectID(v), nil
}

// Subscribe registers l for changes of addr on obj.
func (g *Gateway) Subscribe(obj ObjectID, addr PropertyAddress, l PropertyListener) (Token, error) {
	tok, err := g.backend.AddListener(obj, addr, l)
	if err != nil {
		return 0, fmt.Errorf("subscribe %s on %s: %w", addr, obj, err)
	}
	return tok, nil
}

// Unsubscribe removes a registration made by Subscribe.
func (g *Gateway) Unsubscribe(obj ObjectID, addr PropertyAddress, tok Token) error {
	if err := g.backend.RemoveListener(obj, addr, tok); err != nil {
		return fmt.Errorf("unsubscribe %s on %s: %w", addr, obj, err)
	}
	return nil
}
