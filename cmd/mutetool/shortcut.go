package main

import (
	"log/slog"
	"sync"

	"github.com/NicolasHaas/mutetool/pkg/config"
	"github.com/NicolasHaas/mutetool/pkg/hotkey"
)

// shortcutBinding keeps at most one global shortcut registered and swaps
// it when the settings change.
type shortcutBinding struct {
	onRelease func()

	mu sync.Mutex
	l  *hotkey.Listener
}

func newShortcutBinding(onRelease func()) *shortcutBinding {
	return &shortcutBinding{onRelease: onRelease}
}

func (b *shortcutBinding) bind(sc config.Shortcut) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closeLocked()
	l, err := hotkey.Register(sc, b.onRelease)
	if err != nil {
		// The tray toggle still works without a shortcut.
		slog.Warn("global shortcut unavailable", "shortcut", sc.String(), "err", err)
		return
	}
	b.l = l
}

func (b *shortcutBinding) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeLocked()
}

func (b *shortcutBinding) closeLocked() {
	if b.l == nil {
		return
	}
	if err := b.l.Close(); err != nil {
		slog.Debug("unregister shortcut", "err", err)
	}
	b.l = nil
}
