// Package device keeps a cached "muted" flag in step with the mute
// property of the system's current default input device.
//
// The Synchronizer subscribes once to default-input-device changes on the
// system object. Each time that fires it moves its mute listener from the
// old device to the new one and re-reads the flag. Mute changes made by
// other applications or hardware switches arrive through the mute listener
// and are re-read the same way. Toggle flips the cached flag, tells the
// observer, and only then writes the hardware; a failed write is not
// rolled back.
//
// Property reads and writes that fail are swallowed (logged and counted):
// a mute indicator that occasionally misses an update is preferable to
// one that crashes. The one loud failure is Toggle with no known device,
// which returns ErrNoDevice.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NicolasHaas/mutetool/pkg/coreaudio"
	"github.com/NicolasHaas/mutetool/pkg/metrics"
	"github.com/NicolasHaas/mutetool/pkg/model"
)

var (
	// ErrNoDevice is returned by Toggle when no default input device is known.
	ErrNoDevice = errors.New("device: no default input device")
	// ErrClosed is returned by Toggle after Close.
	ErrClosed = errors.New("device: synchronizer closed")
)

// Dependencies are the optional collaborators of a Synchronizer.
type Dependencies struct {
	Metrics  *metrics.Metrics // nil: a private instance is used
	Recorder Recorder         // nil: events are not journaled
	Observer Observer         // may also be set later with SetObserver
}

// registration is one entry of the listener table.
type registration struct {
	addr coreaudio.PropertyAddress
	tok  coreaudio.Token
}

// Synchronizer owns the current default input device and its cached mute
// flag. It is safe for concurrent use.
type Synchronizer struct {
	gw       *coreaudio.Gateway
	metrics  *metrics.Metrics
	recorder Recorder
	log      *slog.Logger
	queue    *notifyQueue
	router   router

	mu      sync.Mutex
	current coreaudio.ObjectID
	muted   bool
	regs    map[coreaudio.ObjectID]registration
	closed  bool
}

var _ Listener = (*Synchronizer)(nil)

// New subscribes to default input device changes, resolves the current
// device and reads its mute flag. It never fails: when the system exposes
// no default input device the synchronizer starts with coreaudio.Unknown.
func New(gw *coreaudio.Gateway, deps Dependencies) *Synchronizer {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Synchronizer{
		gw:       gw,
		metrics:  m,
		recorder: deps.Recorder,
		log:      slog.Default().With("component", "device"),
		regs:     make(map[coreaudio.ObjectID]registration),
	}
	s.router = router{l: s}
	s.queue = newNotifyQueue(func() { m.Notifications.Add(1) })
	if deps.Observer != nil {
		s.queue.setObserver(deps.Observer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribeLocked(coreaudio.SystemObject, coreaudio.DefaultInputDeviceAddress)
	s.resolveLocked()
	return s
}

// SetObserver replaces the observer. Only one observer is kept.
func (s *Synchronizer) SetObserver(o Observer) {
	s.queue.setObserver(o)
}

// Muted returns the cached mute flag without touching hardware.
func (s *Synchronizer) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Device returns the current default input device.
func (s *Synchronizer) Device() coreaudio.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Toggle flips the cached flag, queues the observer notification and then
// writes the new value to the device. Write failures keep the flipped
// value. With no known device the flag still flips and ErrNoDevice is
// returned. After Close nothing changes and ErrClosed is returned.
func (s *Synchronizer) Toggle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.metrics.Toggles.Add(1)
	s.muted = !s.muted
	muted := s.muted
	s.queue.push(notification{muted: muted})
	s.record(model.EventToggled, muted, "")

	if s.current == coreaudio.Unknown {
		return ErrNoDevice
	}

	var v uint32
	if muted {
		v = 1
	}
	if err := s.gw.WriteUint32(s.current, coreaudio.InputMuteAddress, v); err != nil {
		s.metrics.WriteFailures.Add(1)
		s.log.Warn("mute write failed", "device", s.current, "muted", muted, "err", err)
		s.record(model.EventWriteFailed, muted, err.Error())
	}
	return nil
}

// OnDeviceChanged re-resolves the default input device.
func (s *Synchronizer) OnDeviceChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.metrics.DeviceSwaps.Add(1)
	s.resolveLocked()
}

// OnMuteChanged re-reads the mute flag of the current device. Callbacks
// from a listener that was replaced by a device swap are ignored.
func (s *Synchronizer) OnMuteChanged(dev coreaudio.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if dev != s.current {
		s.metrics.StaleCallbacks.Add(1)
		s.log.Debug("ignoring mute change of replaced device", "device", dev, "current", s.current)
		return
	}
	s.refreshLocked()
}

// Flush blocks until every queued observer notification has been
// delivered.
func (s *Synchronizer) Flush() {
	s.queue.flush()
}

// Close removes every listener registration and stops the notification
// queue after delivering what is pending.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var errs []error
	for obj, reg := range s.regs {
		if err := s.gw.Unsubscribe(obj, reg.addr, reg.tok); err != nil {
			errs = append(errs, err)
		}
		delete(s.regs, obj)
	}
	s.mu.Unlock()

	s.queue.close()
	return errors.Join(errs...)
}

// resolveLocked drops the mute listener of the old device, reads the new
// default input device and, if there is one, subscribes to it and
// refreshes the flag. The old listener goes first so a stale callback
// cannot be delivered after the new device is in place. A swap is
// journaled after the refresh so it carries the new device's flag.
func (s *Synchronizer) resolveLocked() {
	prev := s.current
	if prev != coreaudio.Unknown {
		s.unsubscribeLocked(prev)
	}

	dev, err := s.gw.ReadObjectID(coreaudio.SystemObject, coreaudio.DefaultInputDeviceAddress)
	if err != nil {
		s.log.Debug("default input device unreadable", "err", err)
		dev = coreaudio.Unknown
	}
	s.current = dev

	if dev != coreaudio.Unknown {
		s.subscribeLocked(dev, coreaudio.InputMuteAddress)
		s.refreshLocked()
	}

	if dev != prev {
		s.log.Info("default input device", "device", dev, "previous", prev, "muted", s.muted)
		s.record(model.EventDeviceChanged, s.muted, "")
	}
}

// refreshLocked reads the mute flag. Any nonzero value is muted. On
// failure the cache is left alone and nobody is notified.
func (s *Synchronizer) refreshLocked() {
	v, err := s.gw.ReadUint32(s.current, coreaudio.InputMuteAddress)
	if err != nil {
		s.metrics.RefreshMisses.Add(1)
		s.log.Debug("mute unreadable", "device", s.current, "err", err)
		return
	}

	s.muted = v != 0
	s.metrics.MuteRefreshes.Add(1)
	s.record(model.EventMuteRefreshed, s.muted, "")
	s.queue.push(notification{muted: s.muted})
}

func (s *Synchronizer) subscribeLocked(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) {
	tok, err := s.gw.Subscribe(obj, addr, s.router)
	if err != nil {
		s.log.Warn("listener registration failed", "object", obj, "address", addr, "err", err)
		return
	}
	s.regs[obj] = registration{addr: addr, tok: tok}
}

func (s *Synchronizer) unsubscribeLocked(obj coreaudio.ObjectID) {
	reg, ok := s.regs[obj]
	if !ok {
		return
	}
	delete(s.regs, obj)
	if err := s.gw.Unsubscribe(obj, reg.addr, reg.tok); err != nil {
		s.log.Debug("listener removal failed", "object", obj, "err", err)
	}
}

func (s *Synchronizer) record(kind model.EventKind, muted bool, detail string) {
	if s.recorder == nil {
		return
	}
	e := model.NewEvent(kind, uint32(s.current), muted)
	if len(detail) > model.MaxDetailLength {
		detail = detail[:model.MaxDetailLength]
	}
	e.Detail = detail
	s.recorder.Record(e)
}

func (s *Synchronizer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("device=%s muted=%t", s.current, s.muted)
}
