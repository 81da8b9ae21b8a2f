// Package sqlitestore keeps the calendar and the rating log in a single
// SQLite database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tanpawarit/chative-task-router/agent/rating"
	"github.com/tanpawarit/chative-task-router/agent/scheduling"
)

const migrationV1Calendar = `
CREATE TABLE IF NOT EXISTS calendar_busy (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	day TEXT NOT NULL,
	start_at TEXT NOT NULL,
	end_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calendar_busy_day ON calendar_busy(day);
`

const migrationV2Ratings = `
CREATE TABLE IF NOT EXISTS ratings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	value INTEGER NOT NULL CHECK (value BETWEEN 1 AND 5),
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps an SQLite connection. It implements both scheduling.CalendarStore
// and rating.Store.
type DB struct {
	conn *sql.DB
	path string
	loc  *time.Location
	mu   sync.RWMutex
}

var (
	_ scheduling.CalendarStore = (*DB)(nil)
	_ rating.Store             = (*DB)(nil)
)

// Open opens (and migrates) the database at path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string, loc *time.Location) (*DB, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db := &DB{conn: conn, path: path, loc: loc}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Calendar},
		{2, migrationV2Ratings},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func (db *DB) Busy(ctx context.Context, day string) ([]scheduling.Interval, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT start_at, end_at FROM calendar_busy WHERE day = ? ORDER BY start_at, id", day)
	if err != nil {
		return nil, fmt.Errorf("query busy intervals: %w", err)
	}
	defer rows.Close()

	var out []scheduling.Interval
	for rows.Next() {
		var startRaw, endRaw string
		if err := rows.Scan(&startRaw, &endRaw); err != nil {
			return nil, fmt.Errorf("scan busy interval: %w", err)
		}
		start, err := time.ParseInLocation(scheduling.TimeLayout, startRaw, db.loc)
		if err != nil {
			return nil, fmt.Errorf("parse start %q: %w", startRaw, err)
		}
		end, err := time.ParseInLocation(scheduling.TimeLayout, endRaw, db.loc)
		if err != nil {
			return nil, fmt.Errorf("parse end %q: %w", endRaw, err)
		}
		out = append(out, scheduling.Interval{Start: start, End: end})
	}
	return out, rows.Err()
}

func (db *DB) Add(ctx context.Context, day string, iv scheduling.Interval) error {
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w: interval start must precede end", scheduling.ErrMalformedInput)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO calendar_busy (day, start_at, end_at) VALUES (?, ?, ?)",
		day,
		iv.Start.In(db.loc).Format(scheduling.TimeLayout),
		iv.End.In(db.loc).Format(scheduling.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert busy interval: %w", err)
	}
	return nil
}

func (db *DB) Append(ctx context.Context, value int) error {
	if value < rating.MinRating || value > rating.MaxRating {
		return rating.ErrOutOfRange
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.ExecContext(ctx, "INSERT INTO ratings (value) VALUES (?)", value); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (db *DB) All(ctx context.Context) ([]int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT value FROM ratings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
