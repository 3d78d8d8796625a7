package settings

import "context"

// Store persists settings and notifies on change. Load always succeeds on an
// empty store by returning the defaults; Watch delivers the complete new
// snapshot (no diffing) every time the persisted record changes.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error

	// Watch blocks until ctx is done, invoking fn with the full merged
	// snapshot after every persisted change. Reload failures are logged and
	// skipped; they do not terminate the watch.
	Watch(ctx context.Context, fn func(Snapshot)) error
}
