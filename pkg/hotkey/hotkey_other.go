//go:build !darwin && !linux && !windows

package hotkey

import "github.com/NicolasHaas/mutetool/pkg/config"

// Listener is never created on this platform.
type Listener struct{}

// Register always fails with ErrUnsupported.
func Register(config.Shortcut, func()) (*Listener, error) {
	return nil, ErrUnsupported
}

// Close does nothing.
func (*Listener) Close() error { return nil }
