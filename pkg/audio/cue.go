package audio

import (
	"log/slog"
	"sync"
)

// sink plays one cue. *CueStream is the production sink.
type sink interface {
	PlayCue(c Cue, stop <-chan struct{}) error
	Close() error
}

// CuePlayer plays mute and unmute cues. Starting a cue stops the one
// still playing.
type CuePlayer struct {
	open func() (sink, error)

	mu      sync.Mutex
	enabled bool
	stop    chan struct{} // closes to cut the current cue short
	done    chan struct{} // closed when the current cue has finished
}

// NewCuePlayer returns a player on the default output device. PortAudio
// is initialized in the background.
func NewCuePlayer(enabled bool) *CuePlayer {
	if enabled {
		PreInitAudio()
	}
	return newCuePlayer(enabled, func() (sink, error) {
		if err := WaitPreInit(); err != nil {
			return nil, err
		}
		return OpenCueStream("")
	})
}

func newCuePlayer(enabled bool, open func() (sink, error)) *CuePlayer {
	return &CuePlayer{open: open, enabled: enabled}
}

// SetEnabled turns cues on or off.
func (c *CuePlayer) SetEnabled(on bool) {
	c.mu.Lock()
	c.enabled = on
	c.mu.Unlock()
	if !on {
		c.Stop()
	}
}

// Play starts the cue for the state being entered and returns at once.
func (c *CuePlayer) Play(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.stopLocked()

	stop, done := make(chan struct{}), make(chan struct{})
	c.stop, c.done = stop, done
	go c.play(CueFor(muted), stop, done)
}

// Stop cuts the current cue short and waits for its stream to close.
func (c *CuePlayer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *CuePlayer) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

func (c *CuePlayer) play(cue Cue, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	out, err := c.open()
	if err != nil {
		slog.Warn("cue playback unavailable", "err", err)
		return
	}
	defer func() { _ = out.Close() }()

	if err := out.PlayCue(cue, stop); err != nil {
		slog.Debug("cue playback failed", "err", err)
	}
}
