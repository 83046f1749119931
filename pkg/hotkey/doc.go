// Package hotkey binds the mute shortcut as a system-wide hotkey.
//
// The toggle fires on key release, so holding the shortcut does not
// auto-repeat it.
package hotkey

import "errors"

// ErrUnsupported is returned on platforms without global hotkeys.
var ErrUnsupported = errors.New("hotkey: global shortcuts not supported on this platform")
