//go:build darwin && cgo

package coreaudio

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include <CoreAudio/CoreAudio.h>
#include <stdint.h>
#include <stdlib.h>

OSStatus mutetoolAddListener(AudioObjectID obj, const AudioObjectPropertyAddress *addr, uintptr_t token);
OSStatus mutetoolRemoveListener(AudioObjectID obj, const AudioObjectPropertyAddress *addr, uintptr_t token);
*/
import "C"

import (
	"fmt"
	"log/slog"
	"sync"
)

// systemBackend is process-wide: CoreAudio listener procs carry only a
// token, which is resolved against this backend's registration table.
var systemBackend = newCoreAudioBackend()

// System returns the CoreAudio backend.
func System() Backend { return systemBackend }

type registration struct {
	obj      ObjectID
	addr     PropertyAddress
	listener PropertyListener
}

type pendingEvent struct {
	tok  Token
	obj  ObjectID
	addr PropertyAddress
}

type coreAudioBackend struct {
	mu        sync.Mutex
	nextToken Token
	listeners map[Token]registration

	// Events from CoreAudio threads are queued without bound so the
	// listener proc never blocks, then delivered in order by pump.
	qmu     sync.Mutex
	queue   []pendingEvent
	wake    chan struct{}
	started sync.Once
}

func newCoreAudioBackend() *coreAudioBackend {
	return &coreAudioBackend{
		listeners: make(map[Token]registration),
		wake:      make(chan struct{}, 1),
	}
}

func cAddress(addr PropertyAddress) C.AudioObjectPropertyAddress {
	return C.AudioObjectPropertyAddress{
		mSelector: C.AudioObjectPropertySelector(addr.Selector),
		mScope:    C.AudioObjectPropertyScope(addr.Scope),
		mElement:  C.AudioObjectPropertyElement(addr.Element),
	}
}

func statusErr(st C.OSStatus) error {
	if st == 0 {
		return nil
	}
	return Status(int32(st))
}

func (b *coreAudioBackend) HasProperty(obj ObjectID, addr PropertyAddress) bool {
	ca := cAddress(addr)
	return C.AudioObjectHasProperty(C.AudioObjectID(obj), &ca) != 0
}

func (b *coreAudioBackend) IsPropertySettable(obj ObjectID, addr PropertyAddress) (bool, error) {
	ca := cAddress(addr)
	var settable C.Boolean
	if err := statusErr(C.AudioObjectIsPropertySettable(C.AudioObjectID(obj), &ca, &settable)); err != nil {
		return false, err
	}
	return settable != 0, nil
}

func (b *coreAudioBackend) PropertyDataSize(obj ObjectID, addr PropertyAddress) (uint32, error) {
	ca := cAddress(addr)
	var size C.UInt32
	if err := statusErr(C.AudioObjectGetPropertyDataSize(C.AudioObjectID(obj), &ca, 0, nil, &size)); err != nil {
		return 0, err
	}
	return uint32(size), nil
}

func (b *coreAudioBackend) PropertyData(obj ObjectID, addr PropertyAddress, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	ca := cAddress(addr)
	buf := C.malloc(C.size_t(size))
	defer C.free(buf)

	ioSize := C.UInt32(size)
	if err := statusErr(C.AudioObjectGetPropertyData(C.AudioObjectID(obj), &ca, 0, nil, &ioSize, buf)); err != nil {
		return nil, err
	}
	return C.GoBytes(buf, C.int(ioSize)), nil
}

func (b *coreAudioBackend) SetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("coreaudio: empty property data")
	}
	ca := cAddress(addr)
	buf := C.CBytes(data)
	defer C.free(buf)
	return statusErr(C.AudioObjectSetPropertyData(C.AudioObjectID(obj), &ca, 0, nil, C.UInt32(len(data)), buf))
}

func (b *coreAudioBackend) AddListener(obj ObjectID, addr PropertyAddress, l PropertyListener) (Token, error) {
	b.started.Do(func() { go b.pump() })

	b.mu.Lock()
	b.nextToken++
	tok := b.nextToken
	b.listeners[tok] = registration{obj: obj, addr: addr, listener: l}
	b.mu.Unlock()

	ca := cAddress(addr)
	if err := statusErr(C.mutetoolAddListener(C.AudioObjectID(obj), &ca, C.uintptr_t(tok))); err != nil {
		b.mu.Lock()
		delete(b.listeners, tok)
		b.mu.Unlock()
		return 0, err
	}
	return tok, nil
}

func (b *coreAudioBackend) RemoveListener(obj ObjectID, addr PropertyAddress, tok Token) error {
	b.mu.Lock()
	delete(b.listeners, tok)
	b.mu.Unlock()

	ca := cAddress(addr)
	return statusErr(C.mutetoolRemoveListener(C.AudioObjectID(obj), &ca, C.uintptr_t(tok)))
}

func (b *coreAudioBackend) enqueue(tok Token, obj ObjectID, addr PropertyAddress) {
	b.qmu.Lock()
	b.queue = append(b.queue, pendingEvent{tok: tok, obj: obj, addr: addr})
	b.qmu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// pump delivers queued CoreAudio notifications on a single goroutine.
func (b *coreAudioBackend) pump() {
	for range b.wake {
		for {
			b.qmu.Lock()
			if len(b.queue) == 0 {
				b.qmu.Unlock()
				break
			}
			ev := b.queue[0]
			b.queue = b.queue[1:]
			b.qmu.Unlock()

			b.mu.Lock()
			reg, ok := b.listeners[ev.tok]
			b.mu.Unlock()
			if !ok {
				// Removed after CoreAudio queued the callback.
				slog.Debug("dropping notification for removed listener", "component", "coreaudio", "object", ev.obj)
				continue
			}
			reg.listener.PropertyChanged(ev.obj, ev.addr)
		}
	}
}
