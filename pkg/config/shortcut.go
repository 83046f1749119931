package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrBadShortcut is returned for shortcut strings that cannot be parsed.
var ErrBadShortcut = errors.New("invalid shortcut")

// Modifier is a platform-neutral modifier key. The hotkey package maps it
// to the OS value.
type Modifier int

const (
	ModCtrl Modifier = iota + 1
	ModShift
	ModAlt   // Option on macOS
	ModSuper // Command on macOS, Windows key elsewhere
)

func (m Modifier) String() string {
	switch m {
	case ModCtrl:
		return "ctrl"
	case ModShift:
		return "shift"
	case ModAlt:
		return "alt"
	case ModSuper:
		return "cmd"
	default:
		return "?"
	}
}

var modifierNames = map[string]Modifier{
	"ctrl": ModCtrl, "control": ModCtrl,
	"shift": ModShift,
	"alt": ModAlt, "opt": ModAlt, "option": ModAlt,
	"cmd": ModSuper, "command": ModSuper, "super": ModSuper, "win": ModSuper,
}

// Shortcut is a parsed key combination such as "cmd+grave".
type Shortcut struct {
	Mods []Modifier
	Key  string // lower case: a-z, 0-9, f1-f12, space, grave
}

func (s Shortcut) String() string {
	parts := make([]string, 0, len(s.Mods)+1)
	for _, m := range s.Mods {
		parts = append(parts, m.String())
	}
	return strings.Join(append(parts, s.Key), "+")
}

// DefaultShortcut is Command+` on macOS and Ctrl+` elsewhere.
func DefaultShortcut() string {
	if runtime.GOOS == "darwin" {
		return "cmd+grave"
	}
	return "ctrl+grave"
}

// ParseShortcut parses "mod+mod+key". Names are case-insensitive; "`" is
// accepted for grave. A shortcut needs at least one modifier so the key
// keeps working in other applications.
func ParseShortcut(s string) (Shortcut, error) {
	fields := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(fields) < 2 {
		return Shortcut{}, fmt.Errorf("%w %q: need modifier+key", ErrBadShortcut, s)
	}

	var sc Shortcut
	seen := make(map[Modifier]bool)
	for _, f := range fields[:len(fields)-1] {
		m, ok := modifierNames[strings.TrimSpace(f)]
		if !ok {
			return Shortcut{}, fmt.Errorf("%w %q: unknown modifier %q", ErrBadShortcut, s, f)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		sc.Mods = append(sc.Mods, m)
	}

	key := strings.TrimSpace(fields[len(fields)-1])
	if key == "`" {
		key = "grave"
	}
	if !validKey(key) {
		return Shortcut{}, fmt.Errorf("%w %q: unknown key %q", ErrBadShortcut, s, key)
	}
	sc.Key = key
	return sc, nil
}

func validKey(k string) bool {
	switch {
	case k == "grave", k == "space":
		return true
	case len(k) == 1:
		return (k[0] >= 'a' && k[0] <= 'z') || (k[0] >= '0' && k[0] <= '9')
	case len(k) >= 2 && k[0] == 'f':
		var n int
		if _, err := fmt.Sscanf(k[1:], "%d", &n); err != nil {
			return false
		}
		return n >= 1 && n <= 12 && fmt.Sprint(n) == k[1:]
	}
	return false
}
