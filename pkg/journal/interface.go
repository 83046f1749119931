// Package journal keeps a diagnostics history of device swaps, mute
// refreshes and toggles. It is write-mostly and never read back into the
// synchronizer's state.
package journal

import (
	"context"

	"github.com/NicolasHaas/mutetool/pkg/model"
)

// Store persists journal events. Implementations: the SQLite store and
// an in-memory store for tests.
type Store interface {
	// Append validates and stores the event, assigning its ID.
	Append(ctx context.Context, e *model.Event) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]model.Event, error)

	// Prune keeps the newest keep events and deletes the rest.
	Prune(ctx context.Context, keep int) (int64, error)

	// Close releases the underlying storage.
	Close() error
}

// Compile-time checks.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
