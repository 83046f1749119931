// Package app holds the user-facing mute state shown by the tray and
// driven by the shortcut.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/NicolasHaas/mutetool/pkg/device"
)

// DefaultQuitDelay lets the unmute cue finish before the process exits.
const DefaultQuitDelay = time.Second

// Toggler flips the hardware mute. *device.Synchronizer implements it.
type Toggler interface {
	Toggle() error
}

// Cues plays the cue for the state being entered.
type Cues interface {
	Play(muted bool)
}

type nopCues struct{}

func (nopCues) Play(bool) {}

// State mirrors the synchronizer's mute flag for the UI. It implements
// device.Observer.
type State struct {
	toggler   Toggler
	cues      Cues
	quitDelay time.Duration

	mu       sync.Mutex
	muted    bool
	locked   bool
	cued     bool // a cue for cuedFor was already played by ToggleMute
	cuedFor  bool
	onChange func(muted bool)
}

var _ device.Observer = (*State)(nil)

// NewState returns a State starting at muted. cues may be nil. A zero
// quitDelay means DefaultQuitDelay.
func NewState(t Toggler, cues Cues, muted bool, quitDelay time.Duration) *State {
	if cues == nil {
		cues = nopCues{}
	}
	if quitDelay <= 0 {
		quitDelay = DefaultQuitDelay
	}
	return &State{toggler: t, cues: cues, quitDelay: quitDelay, muted: muted}
}

// OnChange sets the callback fired after the stored flag changes. It runs
// on the notifying goroutine.
func (s *State) OnChange(fn func(muted bool)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Muted returns the stored flag.
func (s *State) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Locked reports whether Quit is unmuting on the way out.
func (s *State) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Notify stores a new flag from the synchronizer. Changes made outside
// MuteTool play their cue here; a change started by ToggleMute already
// played it.
func (s *State) Notify(muted bool) {
	s.mu.Lock()
	if muted == s.muted {
		s.mu.Unlock()
		return
	}
	play := !(s.cued && s.cuedFor == muted)
	s.cued = false
	s.muted = muted
	fn := s.onChange
	s.mu.Unlock()

	if play {
		s.cues.Play(muted)
	}
	if fn != nil {
		fn(muted)
	}
}

// ToggleMute flips the mute unless Quit has locked the state.
func (s *State) ToggleMute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return
	}
	s.toggleLocked()
}

// toggleLocked plays the cue for the state being entered and toggles the
// hardware. No default input device is a programming error here: the UI
// only offers the toggle while the synchronizer runs, so it panics rather
// than fail silently.
func (s *State) toggleLocked() {
	target := !s.muted
	s.cued, s.cuedFor = true, target
	s.cues.Play(target)

	if err := s.toggler.Toggle(); err != nil {
		if errors.Is(err, device.ErrNoDevice) {
			panic(err)
		}
		// No flip happened, so no notification will consume the cue mark.
		s.cued = false
		slog.Warn("toggle mute", "err", err)
	}
}

// Quit calls quit, unmuting first when muted so the user is never left
// muted after exit. While unmuting the state is locked and quit runs
// after the quit delay on its own goroutine.
func (s *State) Quit(quit func()) {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return
	}
	if !s.muted {
		s.mu.Unlock()
		quit()
		return
	}

	s.locked = true
	s.toggleLocked()
	delay := s.quitDelay
	s.mu.Unlock()

	slog.Info("unmuting before quit", "delay", delay)
	time.AfterFunc(delay, quit)
}
