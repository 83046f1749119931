// Package coreaudio is a thin property gateway over the host audio object
// model (CoreAudio's AudioObject API on macOS).
//
// Every object in the audio registry is addressed by an ObjectID, and every
// property on an object by a PropertyAddress. Hardware property surfaces are
// partial: a device may not expose a property at all, or expose it read-only.
// The Gateway treats both as ordinary outcomes and reports them with the
// sentinel errors ErrNoSuchProperty and ErrNotSettable.
package coreaudio

import (
	"fmt"
	"strconv"
)

// ObjectID identifies an object in the OS audio registry. It is borrowed,
// not owned: the object may disappear (device unplugged) while an ID is held.
type ObjectID uint32

const (
	// Unknown is the sentinel for "no object" (kAudioObjectUnknown).
	Unknown ObjectID = 0
	// SystemObject is the hardware system object (kAudioObjectSystemObject).
	SystemObject ObjectID = 1
)

func (id ObjectID) String() string {
	switch id {
	case Unknown:
		return "unknown"
	case SystemObject:
		return "system"
	default:
		return strconv.FormatUint(uint64(id), 10)
	}
}

// FourCC is a four-character code packed big-endian into a uint32.
type FourCC uint32

// fourCC packs a four byte ASCII string.
func fourCC(s string) FourCC {
	if len(s) != 4 {
		panic("coreaudio: four-char code must be 4 bytes: " + strconv.Quote(s))
	}
	return FourCC(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
}

func (c FourCC) String() string {
	b := []byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(c))
		}
	}
	return "'" + string(b) + "'"
}

// Selectors, scopes and elements used by this package.
var (
	SelectorDefaultInputDevice = fourCC("dIn ") // kAudioHardwarePropertyDefaultInputDevice
	SelectorMute               = fourCC("mute") // kAudioDevicePropertyMute

	ScopeGlobal = fourCC("glob") // kAudioObjectPropertyScopeGlobal
	ScopeInput  = fourCC("inpt") // kAudioDevicePropertyScopeInput
	ScopeOutput = fourCC("outp") // kAudioDevicePropertyScopeOutput
)

// ElementMain is the main element of a property (kAudioObjectPropertyElementMain).
const ElementMain uint32 = 0

// PropertyAddress selects one property on an audio object.
type PropertyAddress struct {
	Selector FourCC
	Scope    FourCC
	Element  uint32
}

func (a PropertyAddress) String() string {
	return fmt.Sprintf("%s/%s/%d", a.Selector, a.Scope, a.Element)
}

var (
	// DefaultInputDeviceAddress is the system object's default input device.
	DefaultInputDeviceAddress = PropertyAddress{
		Selector: SelectorDefaultInputDevice,
		Scope:    ScopeGlobal,
		Element:  ElementMain,
	}

	// InputMuteAddress is a device's input-scope mute flag.
	InputMuteAddress = PropertyAddress{
		Selector: SelectorMute,
		Scope:    ScopeInput,
		Element:  ElementMain,
	}
)
