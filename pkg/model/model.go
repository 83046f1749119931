// Package model defines the domain types shared by the journal and the
// device synchronizer.
package model

import (
	"errors"
	"fmt"
	"time"
)

// MaxDetailLength bounds the free-form detail stored with an event.
const MaxDetailLength = 256

var ErrDetailTooLong = fmt.Errorf("event detail exceeds %d bytes", MaxDetailLength)
var ErrInvalidKind = errors.New("invalid event kind")

// EventKind classifies a journal entry.
type EventKind int

const (
	EventDeviceChanged EventKind = iota + 1 // default input device re-resolved
	EventMuteRefreshed                      // mute flag read back from hardware
	EventToggled                            // user toggled mute
	EventWriteFailed                        // hardware write after a toggle failed
)

func (k EventKind) String() string {
	switch k {
	case EventDeviceChanged:
		return "device_changed"
	case EventMuteRefreshed:
		return "mute_refreshed"
	case EventToggled:
		return "toggled"
	case EventWriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// ParseEventKind converts a string back to an EventKind.
// Returns 0 for unrecognized values.
func ParseEventKind(s string) EventKind {
	switch s {
	case "device_changed":
		return EventDeviceChanged
	case "mute_refreshed":
		return EventMuteRefreshed
	case "toggled":
		return EventToggled
	case "write_failed":
		return EventWriteFailed
	default:
		return 0
	}
}

// Valid returns true if the kind is one of the declared constants.
func (k EventKind) Valid() bool {
	return k >= EventDeviceChanged && k <= EventWriteFailed
}

// Event is one entry of the diagnostics journal.
type Event struct {
	ID        int64     `json:"id"`
	Kind      EventKind `json:"kind"`
	Device    uint32    `json:"device"` // AudioObjectID, 0 = unknown
	Muted     bool      `json:"muted"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent returns an event stamped with the current time.
func NewEvent(kind EventKind, device uint32, muted bool) Event {
	return Event{
		Kind:      kind,
		Device:    device,
		Muted:     muted,
		CreatedAt: time.Now(),
	}
}

// Validate checks the kind and detail length.
func (e *Event) Validate() error {
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(e.Detail) > MaxDetailLength {
		return ErrDetailTooLong
	}
	return nil
}

// String renders the event as a single human-readable line.
func (e Event) String() string {
	state := "unmuted"
	if e.Muted {
		state = "muted"
	}
	line := fmt.Sprintf("%s %-14s device=%d %s", e.CreatedAt.Format(time.DateTime), e.Kind, e.Device, state)
	if e.Detail != "" {
		line += " (" + e.Detail + ")"
	}
	return line
}
