package coreaudio

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchProperty reports that the object does not expose the property,
	// or that the OS failed while sizing or reading it. Callers treat both
	// the same way: there is nothing to do.
	ErrNoSuchProperty = errors.New("coreaudio: no such property")

	// ErrNotSettable reports a property that exists but is read-only.
	ErrNotSettable = errors.New("coreaudio: property not settable")

	// ErrUnsupported is returned by the backend on platforms without an
	// audio object model.
	ErrUnsupported = errors.New("coreaudio: not supported on this platform")
)

// Status is a non-zero OSStatus returned by the audio subsystem.
type Status int32

func (s Status) Error() string {
	code := FourCC(uint32(s))
	if str := code.String(); str[0] == '\'' {
		return fmt.Sprintf("coreaudio: OSStatus %d (%s)", int32(s), str)
	}
	return fmt.Sprintf("coreaudio: OSStatus %d", int32(s))
}

// Well-known CoreAudio hardware errors.
const (
	StatusUnknownProperty  Status = 0x77686f3f // 'who?'
	StatusBadObject        Status = 0x216f626a // '!obj'
	StatusBadPropertySize  Status = 0x2173697a // '!siz'
	StatusIllegalOperation Status = 0x6e6f7065 // 'nope'
	StatusUnsupportedOp    Status = 0x756e6f70 // 'unop'
)

// absent wraps an OS failure so it matches ErrNoSuchProperty while keeping
// the underlying cause inspectable.
func absent(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNoSuchProperty, op, err)
}
