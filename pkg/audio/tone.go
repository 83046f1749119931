package audio

import "math"

const (
	// SampleRate of the synthesized cues.
	SampleRate = 44100
	// FrameSize is 10 ms at SampleRate.
	FrameSize = SampleRate / 100

	noteLow    = 587.33 // D5
	noteHigh   = 880.00 // A5
	noteLength = 0.080  // seconds
	noteGap    = 0.020
	attack     = 0.005
	volume     = 0.4
	decay      = 30
)

// Cue is a short two-note tone.
type Cue struct {
	Notes []float64 // Hz, played in order
}

var (
	// MutedCue descends.
	MutedCue = Cue{Notes: []float64{noteHigh, noteLow}}
	// UnmutedCue ascends.
	UnmutedCue = Cue{Notes: []float64{noteLow, noteHigh}}
)

// CueFor returns the cue announcing the state being entered.
func CueFor(muted bool) Cue {
	if muted {
		return MutedCue
	}
	return UnmutedCue
}

// Samples renders the cue as mono 16-bit PCM at SampleRate, zero-padded
// to a whole number of frames.
func (c Cue) Samples() []int16 {
	noteN := int(noteLength * SampleRate)
	gapN := int(noteGap * SampleRate)
	attackN := int(attack * SampleRate)

	var out []int16
	for i, f := range c.Notes {
		if i > 0 {
			out = append(out, make([]int16, gapN)...)
		}
		for n := 0; n < noteN; n++ {
			t := float64(n) / SampleRate
			env := math.Exp(-decay * t)
			if n < attackN {
				env *= float64(n) / float64(attackN)
			}
			v := volume * env * math.Sin(2*math.Pi*f*t)
			out = append(out, int16(v*math.MaxInt16))
		}
	}

	if rem := len(out) % FrameSize; rem != 0 {
		out = append(out, make([]int16, FrameSize-rem)...)
	}
	return out
}

// Frames splits the cue into FrameSize chunks.
func (c Cue) Frames() [][]int16 {
	s := c.Samples()
	frames := make([][]int16, 0, len(s)/FrameSize)
	for i := 0; i < len(s); i += FrameSize {
		frames = append(frames, s[i:i+FrameSize])
	}
	return frames
}
