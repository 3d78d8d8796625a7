package settings

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

func testSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "settings.db"),
		PollInterval: 20 * time.Millisecond,
		Debounce:     30 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteLoadEmptyYieldsDefaults(t *testing.T) {
	st := testSQLiteStore(t)
	snap, err := st.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap != Defaults() {
		t.Fatalf("expected defaults, got %+v", snap)
	}
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	st := testSQLiteStore(t)
	ctx := context.Background()

	want := Defaults()
	want.HighlightEnabled = true
	want.ImageHDREnabled = true
	want.ImageHDRIntensity = HDRHigh
	if err := st.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSQLiteSaveUpserts(t *testing.T) {
	st := testSQLiteStore(t)
	ctx := context.Background()

	first := Defaults()
	first.OutlineWidth = 3
	if err := st.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := Defaults()
	second.OutlineWidth = 5
	if err := st.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.OutlineWidth != 5 {
		t.Fatalf("expected the second record, got width %d", got.OutlineWidth)
	}

	var count int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM svglens_settings`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
}

func TestSQLiteWatchFiresOnSave(t *testing.T) {
	st := testSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	go st.Watch(ctx, func(Snapshot) { fired.Add(1) })

	// Let the poller read the initial version.
	time.Sleep(60 * time.Millisecond)

	want := Defaults()
	want.ContrastEnabled = true
	if err := st.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if fired.Load() == 0 {
		t.Fatal("watch never fired after save")
	}
}
