package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/mutetool/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05.000"

// SQLiteStore stores events in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database and runs migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open DB: %w", err)
	}

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set WAL: %w", err)
	}
	// Set busy timeout to avoid "database is locked" when -history runs
	// next to a live instance.
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set busy_timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       INTEGER NOT NULL CHECK(kind >= 1 AND kind <= 4),
		device     INTEGER NOT NULL DEFAULT 0,
		muted      INTEGER NOT NULL DEFAULT 0,
		detail     TEXT    NOT NULL DEFAULT '',
		created_at TEXT    NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("init schema_migrations: %w", err)
		}
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []struct {
		version    int
		statements []string
	}{
		{version: 1, statements: []string{schema}},
		{version: 2, statements: []string{"CREATE INDEX IF NOT EXISTS events_created_at ON events (created_at)"}},
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("version %d: %w", m.version, err)
			}
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", m.version); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

// Append stores e and sets its ID. A zero CreatedAt is stamped with now.
func (s *SQLiteStore) Append(ctx context.Context, e *model.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	muted := 0
	if e.Muted {
		muted = 1
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO events (kind, device, muted, detail, created_at) VALUES (?, ?, ?, ?, ?)",
		int(e.Kind), int64(e.Device), muted, e.Detail, formatDBTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// Recent returns up to limit events, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, device, muted, detail, created_at FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			e         model.Event
			kind      int
			device    int64
			muted     int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &kind, &device, &muted, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.Device = uint32(device) //nolint:gosec // stored from a uint32
		e.Muted = muted != 0
		if e.CreatedAt, err = parseDBTime(createdAt); err != nil {
			return nil, fmt.Errorf("journal: parse created_at: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune deletes everything but the newest keep events.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)", keep)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
