package device_test

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NicolasHaas/mutetool/pkg/coreaudio"
	"github.com/NicolasHaas/mutetool/pkg/coreaudio/fakeaudio"
	"github.com/NicolasHaas/mutetool/pkg/device"
	"github.com/NicolasHaas/mutetool/pkg/metrics"
	"github.com/NicolasHaas/mutetool/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const (
	micA coreaudio.ObjectID = 41
	micB coreaudio.ObjectID = 42
)

type recordingObserver struct {
	mu  sync.Mutex
	got []bool
}

func (r *recordingObserver) Notify(muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, muted)
}

func (r *recordingObserver) values() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.got...)
}

func (r *recordingObserver) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = nil
}

type recordingRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingRecorder) Record(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingRecorder) all() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func (r *recordingRecorder) kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EventKind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	hw   *fakeaudio.Backend
	obs  *recordingObserver
	m    *metrics.Metrics
	rec  *recordingRecorder
	sync *device.Synchronizer
}

// newFixture builds a synchronizer over a fake registry prepared by setup.
func newFixture(t *testing.T, setup func(hw *fakeaudio.Backend)) *fixture {
	t.Helper()

	hw := fakeaudio.New()
	setup(hw)

	f := &fixture{
		hw:  hw,
		obs: &recordingObserver{},
		m:   metrics.New(),
		rec: &recordingRecorder{},
	}
	f.sync = device.New(coreaudio.NewGateway(hw), device.Dependencies{
		Metrics:  f.m,
		Recorder: f.rec,
		Observer: f.obs,
	})
	t.Cleanup(func() {
		if err := f.sync.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	f.sync.Flush()
	return f
}

func withDevice(id coreaudio.ObjectID, muted, settable bool) func(*fakeaudio.Backend) {
	return func(hw *fakeaudio.Backend) {
		hw.AddDevice(id, muted, settable)
		hw.SetDefaultInput(id)
	}
}

func TestStartupResolvesDefaultDevice(t *testing.T) {
	f := newFixture(t, withDevice(micA, true, true))

	if got := f.sync.Device(); got != micA {
		t.Fatalf("Device() = %s, want %s", got, micA)
	}
	if !f.sync.Muted() {
		t.Fatalf("Muted() = false, want true")
	}
	if diff := cmp.Diff([]bool{true}, f.obs.values()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	if n := f.hw.ListenerCount(micA, coreaudio.InputMuteAddress); n != 1 {
		t.Errorf("mute listeners on A = %d, want 1", n)
	}
	if n := f.hw.ListenerCount(coreaudio.SystemObject, coreaudio.DefaultInputDeviceAddress); n != 1 {
		t.Errorf("default device listeners = %d, want 1", n)
	}
}

func TestStartupWithoutDefaultDevice(t *testing.T) {
	f := newFixture(t, func(hw *fakeaudio.Backend) {})

	if got := f.sync.Device(); got != coreaudio.Unknown {
		t.Fatalf("Device() = %s, want unknown", got)
	}
	if f.sync.Muted() {
		t.Fatalf("Muted() = true, want false")
	}
	if got := f.obs.values(); len(got) != 0 {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestDeviceSwapPicksUpNewMuteState(t *testing.T) {
	f := newFixture(t, func(hw *fakeaudio.Backend) {
		hw.AddDevice(micA, false, true)
		hw.AddDevice(micB, true, true)
		hw.SetDefaultInput(micA)
	})
	f.obs.reset()

	f.hw.SetDefaultInput(micB)
	f.sync.Flush()

	if !f.sync.Muted() {
		t.Fatalf("Muted() = false after swap to muted device")
	}
	if diff := cmp.Diff([]bool{true}, f.obs.values()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	if got := f.m.DeviceSwaps.Load(); got != 1 {
		t.Errorf("DeviceSwaps = %d, want 1", got)
	}
}

func TestDeviceSwapUnsubscribesBeforeSubscribing(t *testing.T) {
	f := newFixture(t, func(hw *fakeaudio.Backend) {
		hw.AddDevice(micA, false, true)
		hw.AddDevice(micB, false, true)
		hw.SetDefaultInput(micA)
	})
	f.hw.ResetOps()

	f.hw.SetDefaultInput(micB)

	want := []fakeaudio.Op{
		{Kind: fakeaudio.OpRemoveListener, Object: micA, Address: coreaudio.InputMuteAddress},
		{Kind: fakeaudio.OpAddListener, Object: micB, Address: coreaudio.InputMuteAddress},
	}
	if diff := cmp.Diff(want, f.hw.Ops()); diff != "" {
		t.Errorf("listener ops mismatch (-want +got):\n%s", diff)
	}
	if n := f.hw.ListenerCount(micA, coreaudio.InputMuteAddress); n != 0 {
		t.Errorf("old device still has %d listeners", n)
	}
}

func TestOldDeviceNotDeliveredAfterSwap(t *testing.T) {
	f := newFixture(t, func(hw *fakeaudio.Backend) {
		hw.AddDevice(micA, false, true)
		hw.AddDevice(micB, false, true)
		hw.SetDefaultInput(micA)
	})
	f.hw.SetDefaultInput(micB)
	f.sync.Flush()
	f.obs.reset()

	// The OS no longer calls the removed listener.
	f.hw.SetMuted(micA, true)
	// A callback already in flight when the swap happened.
	f.sync.OnMuteChanged(micA)
	f.sync.Flush()

	if f.sync.Muted() {
		t.Fatalf("Muted() picked up the replaced device's state")
	}
	if got := f.obs.values(); len(got) != 0 {
		t.Fatalf("unexpected notifications %v", got)
	}
	if got := f.m.StaleCallbacks.Load(); got != 1 {
		t.Errorf("StaleCallbacks = %d, want 1", got)
	}
}

func TestExternalMuteChange(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	f.obs.reset()

	f.hw.SetMuted(micA, true)
	f.hw.SetMuted(micA, true) // idempotent push: notified again
	f.hw.SetMuted(micA, false)
	f.sync.Flush()

	if diff := cmp.Diff([]bool{true, true, false}, f.obs.values()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestNonzeroMuteValueIsMuted(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))

	f.hw.SetRawMute(micA, 7)
	f.hw.Fire(micA, coreaudio.InputMuteAddress)

	if !f.sync.Muted() {
		t.Fatalf("Muted() = false for raw value 7")
	}
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	t.Parallel()

	type tcase struct {
		breakIt func(hw *fakeaudio.Backend)
	}

	tcases := map[string]tcase{
		"property_removed": {
			breakIt: func(hw *fakeaudio.Backend) { hw.DeleteProperty(micA, coreaudio.InputMuteAddress) },
		},
		"read_fails": {
			breakIt: func(hw *fakeaudio.Backend) {
				hw.FailRead(micA, coreaudio.InputMuteAddress, coreaudio.StatusBadObject)
			},
		},
		"size_fails": {
			breakIt: func(hw *fakeaudio.Backend) {
				hw.FailSize(micA, coreaudio.InputMuteAddress, coreaudio.StatusBadObject)
			},
		},
	}

	fn := func(tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			f := newFixture(t, withDevice(micA, true, true))
			f.obs.reset()

			tc.breakIt(f.hw)
			f.hw.Fire(micA, coreaudio.InputMuteAddress)
			f.sync.Flush()

			if !f.sync.Muted() {
				t.Fatalf("cache changed after failed refresh")
			}
			if got := f.obs.values(); len(got) != 0 {
				t.Fatalf("unexpected notifications %v", got)
			}
			if got := f.m.RefreshMisses.Load(); got != 1 {
				t.Errorf("RefreshMisses = %d, want 1", got)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(tc))
	}
}

func TestToggleWritesHardware(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	f.obs.reset()
	f.hw.ResetOps()

	if err := f.sync.Toggle(); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	f.sync.Flush()

	if !f.sync.Muted() {
		t.Fatalf("Muted() = false after toggle")
	}
	if diff := cmp.Diff([]bool{true}, f.obs.values()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}

	writes := f.hw.Writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	if writes[0].Object != micA || binary.NativeEndian.Uint32(writes[0].Data) != 1 {
		t.Fatalf("write = %+v, want mute=1 on %s", writes[0], micA)
	}
	if muted, _ := f.hw.Muted(micA); !muted {
		t.Fatalf("hardware not muted")
	}
}

func TestToggleWithoutRollback(t *testing.T) {
	t.Parallel()

	type tcase struct {
		setup   func(hw *fakeaudio.Backend)
		wantErr error
	}

	tcases := map[string]tcase{
		"read_only": {
			setup: withDevice(micA, false, false),
		},
		"write_fails": {
			setup: func(hw *fakeaudio.Backend) {
				withDevice(micA, false, true)(hw)
				hw.FailWrite(micA, coreaudio.InputMuteAddress, coreaudio.StatusIllegalOperation)
			},
		},
		"device_gone": { // unplugged, no device-changed event yet
			setup: func(hw *fakeaudio.Backend) {
				withDevice(micA, false, true)(hw)
			},
		},
		"no_device": {
			setup:   func(hw *fakeaudio.Backend) {},
			wantErr: device.ErrNoDevice,
		},
	}

	fn := func(name string, tc tcase) func(*testing.T) {
		return func(t *testing.T) {
			f := newFixture(t, tc.setup)
			if name == "device_gone" {
				f.hw.RemoveDevice(micA)
			}
			f.obs.reset()
			f.hw.ResetOps()

			err := f.sync.Toggle()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Toggle error = %v, want %v", err, tc.wantErr)
			}
			f.sync.Flush()

			if !f.sync.Muted() {
				t.Fatalf("cache rolled back")
			}
			if diff := cmp.Diff([]bool{true}, f.obs.values()); diff != "" {
				t.Errorf("notifications mismatch (-want +got):\n%s", diff)
			}
			if got := len(f.hw.Writes()); got != 0 {
				t.Errorf("hardware writes = %d, want 0", got)
			}
		}
	}

	for name, tc := range tcases {
		t.Run(name, fn(name, tc))
	}
}

func TestToggleWriteFailureIsJournaled(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, false))

	if err := f.sync.Toggle(); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	if got := f.m.WriteFailures.Load(); got != 1 {
		t.Errorf("WriteFailures = %d, want 1", got)
	}
	kinds := f.rec.kinds()
	if len(kinds) < 2 || kinds[len(kinds)-2] != model.EventToggled || kinds[len(kinds)-1] != model.EventWriteFailed {
		t.Errorf("journal tail = %v, want [toggled write_failed]", kinds)
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	f.obs.reset()

	for i := 0; i < 2; i++ {
		if err := f.sync.Toggle(); err != nil {
			t.Fatalf("Toggle: %v", err)
		}
	}
	f.sync.Flush()

	if f.sync.Muted() {
		t.Fatalf("Muted() = true after two toggles")
	}
	if diff := cmp.Diff([]bool{true, false}, f.obs.values()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSetObserverReplaces(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	second := &recordingObserver{}
	f.obs.reset()

	f.sync.SetObserver(second)
	f.hw.SetMuted(micA, true)
	f.sync.Flush()

	if got := f.obs.values(); len(got) != 0 {
		t.Errorf("replaced observer still notified: %v", got)
	}
	if diff := cmp.Diff([]bool{true}, second.values()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestObserverFunc(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	var got atomic.Int32
	f.sync.SetObserver(device.ObserverFunc(func(muted bool) {
		if muted {
			got.Add(1)
		}
	}))

	f.hw.SetMuted(micA, true)
	f.sync.Flush()

	if got.Load() != 1 {
		t.Fatalf("ObserverFunc calls = %d, want 1", got.Load())
	}
}

func TestCloseRemovesListeners(t *testing.T) {
	hw := fakeaudio.New()
	withDevice(micA, false, true)(hw)
	s := device.New(coreaudio.NewGateway(hw), device.Dependencies{})

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := hw.ListenerCount(micA, coreaudio.InputMuteAddress); n != 0 {
		t.Errorf("mute listeners after Close = %d", n)
	}
	if n := hw.ListenerCount(coreaudio.SystemObject, coreaudio.DefaultInputDeviceAddress); n != 0 {
		t.Errorf("device listeners after Close = %d", n)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Late callbacks after Close are ignored.
	s.OnDeviceChanged()
	s.OnMuteChanged(micA)
}

func TestJournalOrder(t *testing.T) {
	f := newFixture(t, func(hw *fakeaudio.Backend) {
		hw.AddDevice(micA, false, true)
		hw.AddDevice(micB, true, true)
		hw.SetDefaultInput(micA)
	})
	f.hw.SetDefaultInput(micB)

	want := []model.EventKind{
		model.EventMuteRefreshed, model.EventDeviceChanged, // startup
		model.EventMuteRefreshed, model.EventDeviceChanged, // swap
	}
	if diff := cmp.Diff(want, f.rec.kinds()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceChangedCarriesNewDeviceState(t *testing.T) {
	f := newFixture(t, func(hw *fakeaudio.Backend) {
		hw.AddDevice(micA, false, true)
		hw.AddDevice(micB, true, true)
		hw.SetDefaultInput(micA)
	})
	f.hw.SetDefaultInput(micB)
	f.hw.SetDefaultInput(micB) // re-resolves to the same device

	var swaps []model.Event
	for _, e := range f.rec.all() {
		if e.Kind == model.EventDeviceChanged {
			swaps = append(swaps, e)
		}
	}
	want := []model.Event{
		{Kind: model.EventDeviceChanged, Device: uint32(micA), Muted: false},
		{Kind: model.EventDeviceChanged, Device: uint32(micB), Muted: true},
	}
	opt := cmpopts.IgnoreFields(model.Event{}, "CreatedAt")
	if diff := cmp.Diff(want, swaps, opt); diff != "" {
		t.Errorf("device_changed events mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleAfterClose(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	if err := f.sync.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	before := len(f.rec.kinds())
	f.hw.ResetOps()

	if err := f.sync.Toggle(); !errors.Is(err, device.ErrClosed) {
		t.Fatalf("Toggle error = %v, want ErrClosed", err)
	}
	if f.sync.Muted() {
		t.Errorf("cache flipped after Close")
	}
	if got := len(f.hw.Writes()); got != 0 {
		t.Errorf("hardware writes after Close = %d, want 0", got)
	}
	if got := len(f.rec.kinds()); got != before {
		t.Errorf("journal grew after Close: %d -> %d", before, got)
	}
	if got := f.m.Toggles.Load(); got != 0 {
		t.Errorf("Toggles = %d, want 0", got)
	}
}

// After any sequence of device and mute changes the cache matches the
// hardware flag of the current default device.
func TestConvergesAfterRandomEvents(t *testing.T) {
	devices := []coreaudio.ObjectID{micA, micB, 43}
	rng := rand.New(rand.NewPCG(1, 2))

	f := newFixture(t, func(hw *fakeaudio.Backend) {
		for _, d := range devices {
			hw.AddDevice(d, false, true)
		}
		hw.SetDefaultInput(micA)
	})

	current := micA
	for i := 0; i < 500; i++ {
		switch rng.IntN(3) {
		case 0:
			current = devices[rng.IntN(len(devices))]
			f.hw.SetDefaultInput(current)
		case 1:
			f.hw.SetMuted(devices[rng.IntN(len(devices))], rng.IntN(2) == 0)
		case 2:
			if err := f.sync.Toggle(); err != nil {
				t.Fatalf("Toggle: %v", err)
			}
		}

		want, _ := f.hw.Muted(current)
		if got := f.sync.Muted(); got != want {
			t.Fatalf("step %d: Muted() = %t, hardware %s = %t", i, got, current, want)
		}
	}

	f.sync.Flush()
	vals := f.obs.values()
	if last := vals[len(vals)-1]; last != f.sync.Muted() {
		t.Fatalf("last notification %t, cache %t", last, f.sync.Muted())
	}
}

type concurrencyObserver struct {
	inFlight atomic.Int32
	overlap  atomic.Bool
	calls    atomic.Int32
}

func (c *concurrencyObserver) Notify(bool) {
	if c.inFlight.Add(1) > 1 {
		c.overlap.Store(true)
	}
	c.calls.Add(1)
	c.inFlight.Add(-1)
}

func TestObserverNeverConcurrent(t *testing.T) {
	f := newFixture(t, withDevice(micA, false, true))
	obs := &concurrencyObserver{}
	f.sync.SetObserver(obs)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if g%2 == 0 {
					f.hw.SetMuted(micA, i%2 == 0)
				} else {
					_ = f.sync.Toggle()
				}
			}
		}(g)
	}
	wg.Wait()
	f.sync.Flush()

	if obs.overlap.Load() {
		t.Fatalf("observer called concurrently")
	}
	if obs.calls.Load() != 400 {
		t.Fatalf("observer calls = %d, want 400", obs.calls.Load())
	}
}
