package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Preference keys.
const (
	KeyLayout = "layout"
)

// Display layouts for payment listings.
const (
	LayoutTable   = "table"
	LayoutCompact = "compact"
)

// ErrInvalidLayout is returned when setting an unknown layout.
var ErrInvalidLayout = errors.New("layout must be table or compact")

// PreferenceStore persists user preferences as key/value pairs in SQLite.
type PreferenceStore struct {
	db *sql.DB
}

// NewPreferenceStore opens (or creates) the database at dbPath and migrates it.
// ":memory:" gives a private in-memory store.
func NewPreferenceStore(dbPath string) (*PreferenceStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps in-memory databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PreferenceStore{db: db}, nil
}

func (s *PreferenceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the stored value and whether it exists.
func (s *PreferenceStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Preference saved", "key", key, "value", value)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *PreferenceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// Layout returns the display layout, defaulting to table.
func (s *PreferenceStore) Layout(ctx context.Context) (string, error) {
	v, ok, err := s.Get(ctx, KeyLayout)
	if err != nil {
		return LayoutTable, err
	}
	if !ok || (v != LayoutTable && v != LayoutCompact) {
		return LayoutTable, nil
	}
	return v, nil
}

// SetLayout stores the display layout.
func (s *PreferenceStore) SetLayout(ctx context.Context, layout string) error {
	if layout != LayoutTable && layout != LayoutCompact {
		return fmt.Errorf("%w: got %q", ErrInvalidLayout, layout)
	}
	return s.Set(ctx, KeyLayout, layout)
}
