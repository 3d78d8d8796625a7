package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileConfig tunes a FileStore.
type FileConfig struct {
	// Path is the primary (synced) settings file.
	Path string
	// Fallback is read when Path does not exist — the local copy kept for
	// machines where the synced location is unavailable.
	Fallback string
	// Debounce is the quiet period after a file event before reloading.
	// Editors and sync agents write in bursts. Default: 200ms.
	Debounce time.Duration
	Logger   *slog.Logger
}

func (c *FileConfig) defaults() {
	if c.Debounce <= 0 {
		c.Debounce = 200 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// FileStore persists settings as a YAML document and watches it with
// fsnotify.
type FileStore struct {
	cfg FileConfig
}

// NewFileStore creates a FileStore. The file need not exist yet.
func NewFileStore(cfg FileConfig) *FileStore {
	cfg.defaults()
	return &FileStore{cfg: cfg}
}

// Load reads the primary file, falling back to the local copy, falling back
// to the built-in defaults. Persisted fields overlay the defaults field by
// field.
func (f *FileStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.cfg.Path)
	if os.IsNotExist(err) && f.cfg.Fallback != "" {
		data, err = os.ReadFile(f.cfg.Fallback)
	}
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("settings: read: %w", err)
	}

	var over Overlay
	if err := yaml.Unmarshal(data, &over); err != nil {
		return Snapshot{}, fmt.Errorf("settings: parse %s: %w", f.cfg.Path, err)
	}
	snap := Merge(Defaults(), over)
	if err := snap.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("settings: validate: %w", err)
	}
	return snap, nil
}

// Save writes the full snapshot to the primary path.
func (f *FileStore) Save(ctx context.Context, s Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("settings: validate: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	tmp := f.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp, f.cfg.Path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}

// Watch watches the settings file (and fallback) directories, reloading
// after a debounced change and handing fn the merged snapshot. Blocks until
// ctx is done.
func (f *FileStore) Watch(ctx context.Context, fn func(Snapshot)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]struct{}{filepath.Dir(f.cfg.Path): {}}
	if f.cfg.Fallback != "" {
		dirs[filepath.Dir(f.cfg.Fallback)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("settings: watch %s: %w", dir, err)
		}
	}

	log := f.cfg.Logger
	log.Info("settings: watching", "path", f.cfg.Path, "fallback", f.cfg.Fallback)

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(f.cfg.Debounce)
			debounceCh = debounce.C
		} else {
			debounce.Reset(f.cfg.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			log.Info("settings: watch stopped")
			return nil

		case <-debounceCh:
			snap, err := f.Load(ctx)
			if err != nil {
				log.Warn("settings: reload failed", "error", err)
				continue
			}
			fn(snap)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != f.cfg.Path && (f.cfg.Fallback == "" || ev.Name != f.cfg.Fallback) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("settings: watch error", "error", err)
		}
	}
}
