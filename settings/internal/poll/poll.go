// Package poll implements a "poll SQLite, detect change, debounce, reload"
// loop. SQLite has no push notification across connections, so the store
// watches a cheap version token instead of the data itself.
package poll

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Detector reads a version token from the database. Two calls returning
// different values mean "something changed". int64 maps naturally to
// PRAGMA data_version or a MAX(updated_at) query.
type Detector func(ctx context.Context, db *sql.DB) (int64, error)

// Options tunes the loop.
type Options struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a detected change before action
	// fires; further changes during the window reset the timer. 0 fires
	// immediately.
	Debounce time.Duration
	// Detector overrides the default PragmaDataVersion.
	Detector Detector
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = PragmaDataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Run blocks until ctx is done, invoking action after each debounced change.
// If action returns an error the version is not advanced and the action is
// retried on the next poll cycle.
func Run(ctx context.Context, db *sql.DB, opts Options, action func() error) {
	opts.defaults()
	log := opts.Logger

	last, err := opts.Detector(ctx, db)
	if err != nil {
		log.Warn("poll: initial version check failed", "error", err)
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	pending := int64(-1)

	fire := func() {
		if err := action(); err != nil {
			log.Warn("poll: action failed", "error", err)
			return
		}
		last = pending
		pending = -1
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case <-ticker.C:
			cur, err := opts.Detector(ctx, db)
			if err != nil {
				log.Warn("poll: version check failed", "error", err)
				continue
			}
			if cur == last || cur == pending {
				continue
			}
			pending = cur
			if opts.Debounce <= 0 {
				fire()
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(opts.Debounce)
				debounceCh = debounce.C
			} else {
				debounce.Reset(opts.Debounce)
			}

		case <-debounceCh:
			if pending >= 0 {
				fire()
			}
		}
	}
}

// PragmaDataVersion reads PRAGMA data_version, which increments whenever
// another connection writes to the same database file.
func PragmaDataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// MaxUpdatedAt polls MAX(updated_at) on a table — detects writes made over
// this same connection, which data_version does not.
func MaxUpdatedAt(table string) Detector {
	query := `SELECT COALESCE(MAX(updated_at), 0) FROM "` + table + `"`
	return func(ctx context.Context, db *sql.DB) (int64, error) {
		var v int64
		err := db.QueryRowContext(ctx, query).Scan(&v)
		return v, err
	}
}
