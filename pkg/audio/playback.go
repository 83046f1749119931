package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// errStreamClosed is returned by PlayCue after Close.
var errStreamClosed = errors.New("audio: cue stream closed")

// CueStream is a mono output stream sized for cue frames. PortAudio must
// be initialized before OpenCueStream.
type CueStream struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	frame  []int16 // bound to the stream; one FrameSize chunk per write
	device string
}

// OpenCueStream opens and starts a stream on the named output device, or
// on the default output when name is empty or not found.
func OpenCueStream(name string) (*CueStream, error) {
	out := outputDevice(name)
	if out == nil {
		def, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("audio: no output device: %w", err)
		}
		out = def
	}

	params := portaudio.LowLatencyParameters(nil, out)
	params.Input.Device = nil
	params.Input.Channels = 0
	params.Output.Channels = 1
	params.SampleRate = SampleRate
	params.FramesPerBuffer = FrameSize

	cs := &CueStream{frame: make([]int16, FrameSize), device: out.Name}
	stream, err := portaudio.OpenStream(params, cs.frame)
	if err != nil {
		return nil, fmt.Errorf("audio: open cue stream on %q: %w", out.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("audio: start cue stream: %w", err)
	}
	cs.stream = stream
	slog.Debug("cue stream open", "device", out.Name)
	return cs, nil
}

func outputDevice(name string) *portaudio.DeviceInfo {
	if name == "" {
		return nil
	}
	if d := FindDevice(name); d != nil && d.MaxOutputChannels > 0 {
		return d
	}
	slog.Warn("output device not found, using default", "device", name)
	return nil
}

// PlayCue writes c frame by frame, returning early once stop is closed.
// Each write blocks until PortAudio has room, so the call lasts about as
// long as the cue.
func (cs *CueStream) PlayCue(c Cue, stop <-chan struct{}) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.stream == nil {
		return errStreamClosed
	}

	for _, f := range c.Frames() {
		select {
		case <-stop:
			return nil
		default:
		}
		copy(cs.frame, f)
		if err := cs.stream.Write(); err != nil {
			return fmt.Errorf("audio: write cue to %q: %w", cs.device, err)
		}
	}
	return nil
}

// Close stops the stream. Later PlayCue calls fail.
func (cs *CueStream) Close() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.stream == nil {
		return nil
	}
	_ = cs.stream.Stop()
	err := cs.stream.Close()
	cs.stream = nil
	return err
}
