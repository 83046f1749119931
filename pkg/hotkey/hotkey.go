//go:build darwin || linux || windows

package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"

	"github.com/NicolasHaas/mutetool/pkg/config"
)

// Listener is a registered global shortcut.
type Listener struct {
	hk       *hotkey.Hotkey
	shortcut config.Shortcut
	done     chan struct{}
	once     sync.Once
}

// Register grabs sc system-wide and calls onRelease from a background
// goroutine each time the combination is released.
func Register(sc config.Shortcut, onRelease func()) (*Listener, error) {
	mods, key, err := resolve(sc)
	if err != nil {
		return nil, err
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("hotkey: register %s: %w", sc, err)
	}

	l := &Listener{hk: hk, shortcut: sc, done: make(chan struct{})}
	go l.loop(onRelease)
	slog.Info("global shortcut registered", "shortcut", sc.String())
	return l, nil
}

func (l *Listener) loop(onRelease func()) {
	for {
		select {
		case <-l.done:
			return
		case _, ok := <-l.hk.Keyup():
			if !ok {
				return
			}
			slog.Debug("shortcut released", "shortcut", l.shortcut.String())
			onRelease()
		}
	}
}

// Close releases the shortcut. It is safe to call more than once.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.hk.Unregister()
	})
	return err
}

// resolve maps a parsed shortcut to the platform's modifier and key codes.
func resolve(sc config.Shortcut) ([]hotkey.Modifier, hotkey.Key, error) {
	if len(sc.Mods) == 0 {
		return nil, 0, fmt.Errorf("hotkey: %s: %w", sc, config.ErrBadShortcut)
	}
	mods := make([]hotkey.Modifier, 0, len(sc.Mods))
	for _, m := range sc.Mods {
		hm, ok := modifierMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("hotkey: modifier %s: %w", m, config.ErrBadShortcut)
		}
		mods = append(mods, hm)
	}

	if sc.Key == "grave" {
		return mods, keyGrave, nil
	}
	key, ok := keyMap[sc.Key]
	if !ok {
		return nil, 0, fmt.Errorf("hotkey: key %q: %w", sc.Key, config.ErrBadShortcut)
	}
	return mods, key, nil
}
