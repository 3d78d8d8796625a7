package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier9/svglens/settings/internal/poll"
)

// SQLiteConfig tunes a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file. Callers must register a "sqlite" driver
	// (the cmds import modernc.org/sqlite for this).
	Path string
	// PollInterval is how often the watch checks for changes. Default: 1s.
	PollInterval time.Duration
	// Debounce is the quiet period before a reload. Default: 250ms.
	Debounce time.Duration
	Logger   *slog.Logger
}

func (c *SQLiteConfig) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Debounce <= 0 {
		c.Debounce = 250 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// SQLiteStore persists the settings record as a single-row JSON document.
// Change notification works by polling a version token, so writes from other
// processes sharing the file are picked up too.
type SQLiteStore struct {
	db  *sql.DB
	cfg SQLiteConfig
}

const settingsSchema = `
CREATE TABLE IF NOT EXISTS svglens_settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	doc TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenSQLite opens (creating if needed) the settings database.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	cfg.defaults()
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", cfg.Path, err)
	}
	if _, err := db.Exec(settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: schema: %w", err)
	}
	return &SQLiteStore{db: db, cfg: cfg}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the handle for tests and admin tooling.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Load reads the persisted record, overlaying it on the defaults. An empty
// store yields the defaults.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM svglens_settings WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("settings: load: %w", err)
	}

	var over Overlay
	if err := json.Unmarshal([]byte(doc), &over); err != nil {
		return Snapshot{}, fmt.Errorf("settings: parse stored record: %w", err)
	}
	snap := Merge(Defaults(), over)
	if err := snap.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("settings: validate: %w", err)
	}
	return snap, nil
}

// Save upserts the full snapshot.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("settings: validate: %w", err)
	}
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO svglens_settings (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// Watch polls for changes and hands fn the merged snapshot after each one.
// Blocks until ctx is done.
func (s *SQLiteStore) Watch(ctx context.Context, fn func(Snapshot)) error {
	poll.Run(ctx, s.db, poll.Options{
		Interval: s.cfg.PollInterval,
		Debounce: s.cfg.Debounce,
		Detector: poll.MaxUpdatedAt("svglens_settings"),
		Logger:   s.cfg.Logger,
	}, func() error {
		snap, err := s.Load(ctx)
		if err != nil {
			return err
		}
		fn(snap)
		return nil
	})
	return nil
}
