package poll

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// Force single connection so PRAGMA changes are visible to all callers.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func setUserVersion(t *testing.T, db *sql.DB, v int) {
	t.Helper()
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		t.Fatal(err)
	}
}

func pragmaUserVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func TestRunFiresOnVersionChange(t *testing.T) {
	db := testDB(t)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, db, Options{
		Interval: 20 * time.Millisecond,
		Detector: pragmaUserVersion,
	}, func() error {
		reloads.Add(1)
		return nil
	})

	// Wait for the initial version read.
	time.Sleep(50 * time.Millisecond)

	setUserVersion(t, db, 1)
	time.Sleep(80 * time.Millisecond)
	if got := reloads.Load(); got != 1 {
		t.Fatalf("expected 1 reload, got %d", got)
	}

	setUserVersion(t, db, 2)
	time.Sleep(80 * time.Millisecond)
	if got := reloads.Load(); got != 2 {
		t.Fatalf("expected 2 reloads, got %d", got)
	}

	// No change → no extra reload.
	time.Sleep(80 * time.Millisecond)
	if got := reloads.Load(); got != 2 {
		t.Fatalf("expected still 2, got %d", got)
	}
}

func TestRunDebounce(t *testing.T) {
	db := testDB(t)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, db, Options{
		Interval: 20 * time.Millisecond,
		Debounce: 100 * time.Millisecond,
		Detector: pragmaUserVersion,
	}, func() error {
		reloads.Add(1)
		return nil
	})

	time.Sleep(50 * time.Millisecond)

	// Rapid-fire version bumps within the debounce window.
	for i := 1; i <= 5; i++ {
		setUserVersion(t, db, i)
		time.Sleep(15 * time.Millisecond)
	}
	if got := reloads.Load(); got != 0 {
		t.Fatalf("expected 0 reloads during debounce, got %d", got)
	}

	time.Sleep(250 * time.Millisecond)
	if got := reloads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 debounced reload, got %d", got)
	}
}

func TestRunRetriesFailedAction(t *testing.T) {
	db := testDB(t)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, db, Options{
		Interval: 20 * time.Millisecond,
		Detector: pragmaUserVersion,
	}, func() error {
		if calls.Add(1) == 1 {
			return context.DeadlineExceeded // simulate failure
		}
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	setUserVersion(t, db, 1)

	// First attempt fails; the version must not advance, so the next poll
	// retries.
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got < 2 {
		t.Fatalf("expected retry after failure, got %d calls", got)
	}
}

func TestMaxUpdatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, updated_at INTEGER)"); err != nil {
		t.Fatal(err)
	}

	det := MaxUpdatedAt("items")
	v, err := det(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("expected 0 for empty table, got %d", v)
	}

	if _, err := db.Exec("INSERT INTO items (updated_at) VALUES (100)"); err != nil {
		t.Fatal(err)
	}
	v, err = det(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if v != 100 {
		t.Fatalf("expected 100, got %d", v)
	}
}

func TestPragmaDataVersion(t *testing.T) {
	db := testDB(t)
	v, err := PragmaDataVersion(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if v < 0 {
		t.Fatalf("expected non-negative version, got %d", v)
	}
}
