package audio

import (
	"errors"
	"sync"
	"testing"
)

func zeroCrossings(s []int16) int {
	n := 0
	for i := 1; i < len(s); i++ {
		if (s[i-1] < 0) != (s[i] < 0) {
			n++
		}
	}
	return n
}

func TestCueSamples(t *testing.T) {
	s := MutedCue.Samples()
	if len(s)%FrameSize != 0 {
		t.Fatalf("len %d not a multiple of %d", len(s), FrameSize)
	}
	noteN := int(noteLength * SampleRate)
	if len(s) < 2*noteN {
		t.Fatalf("cue too short: %d samples", len(s))
	}
	for i, v := range s {
		if v > 32767/2 || v < -32767/2 {
			t.Fatalf("sample %d = %d exceeds volume", i, v)
		}
	}
}

func TestCueDirection(t *testing.T) {
	noteN := int(noteLength * SampleRate)
	gapN := int(noteGap * SampleRate)

	tcases := map[string]struct {
		cue        Cue
		descending bool
	}{
		"muted":   {cue: MutedCue, descending: true},
		"unmuted": {cue: UnmutedCue, descending: false},
	}
	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			s := tc.cue.Samples()
			first := zeroCrossings(s[:noteN])
			second := zeroCrossings(s[noteN+gapN : 2*noteN+gapN])
			if got := first > second; got != tc.descending {
				t.Fatalf("first=%d second=%d crossings, descending=%t", first, second, tc.descending)
			}
		})
	}
}

func TestCueFor(t *testing.T) {
	if CueFor(true).Notes[0] != noteHigh || CueFor(false).Notes[0] != noteLow {
		t.Fatal("CueFor picked the wrong cue")
	}
}

type fakeSink struct {
	mu     sync.Mutex
	frames int
	closed bool
	block  chan struct{} // when set, each frame waits on it
}

func (f *fakeSink) PlayCue(c Cue, stop <-chan struct{}) error {
	for range c.Frames() {
		select {
		case <-stop:
			return nil
		default:
		}
		if f.block != nil {
			<-f.block
		}
		f.mu.Lock()
		f.frames++
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func TestCuePlayerPlaysWholeCue(t *testing.T) {
	out := &fakeSink{}
	p := newCuePlayer(true, func() (sink, error) { return out, nil })

	p.Play(true)
	p.Stop() // waits; the fake never blocks so the cue may finish first

	out.mu.Lock()
	defer out.mu.Unlock()
	if !out.closed {
		t.Fatal("sink not closed")
	}
	if out.frames > len(MutedCue.Frames()) {
		t.Fatalf("wrote %d frames", out.frames)
	}
}

func TestCuePlayerRestartStopsPrevious(t *testing.T) {
	block := make(chan struct{})
	first := &fakeSink{block: block}
	second := &fakeSink{}
	sinks := []*fakeSink{first, second}

	var mu sync.Mutex
	p := newCuePlayer(true, func() (sink, error) {
		mu.Lock()
		defer mu.Unlock()
		s := sinks[0]
		sinks = sinks[1:]
		return s, nil
	})

	p.Play(true)
	go close(block) // let the first cue's pending write return
	p.Play(false)
	p.Stop()

	first.mu.Lock()
	defer first.mu.Unlock()
	if !first.closed {
		t.Fatal("first cue still playing")
	}
	if first.frames >= len(MutedCue.Frames()) {
		t.Fatalf("first cue was not cut short: %d frames", first.frames)
	}
}

func TestCuePlayerDisabled(t *testing.T) {
	opened := false
	p := newCuePlayer(false, func() (sink, error) {
		opened = true
		return nil, errors.New("unexpected")
	})
	p.Play(true)
	p.Stop()
	if opened {
		t.Fatal("disabled player opened a stream")
	}
}

func TestCuePlayerOpenFailure(t *testing.T) {
	p := newCuePlayer(true, func() (sink, error) { return nil, errors.New("no output") })
	p.Play(false)
	p.Stop()
}
