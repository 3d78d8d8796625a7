// Package runner wires the engine together: settings store → detector →
// enhancer, plus the raster HDR pass. It is the only caller of the core and
// owns the policy the core deliberately lacks (what to enhance with, when to
// tear everything down).
//
// Two usage shapes:
//
//	r := runner.New(runner.Config{Settings: store})
//	r.Start(ctx)                  // load + follow settings changes
//	report, _ := r.EnhanceOnce(doc)  // one-shot: CLI, HTTP, MCP
//
//	sess, _ := r.Attach(doc)      // long-lived: keep enhancing as doc mutates
//	doc.Loop().Drain()            // settings changes arrive on the doc loop
//	sess.Close()
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/idgen"
	"github.com/atelier9/svglens/rasterhdr"
	"github.com/atelier9/svglens/settings"
	"github.com/atelier9/svglens/svgdetect"
	"github.com/atelier9/svglens/svgenhance"
)

// Config configures a Runner.
type Config struct {
	// Settings is the persisted-settings collaborator. Nil runs on the
	// built-in defaults with no change notification.
	Settings settings.Store
	// Detect tunes detection heuristics for every attached document.
	Detect svgdetect.Config
	Logger *slog.Logger
	// IDs generates report IDs. Default: UUIDv7 prefixed "rpt_".
	IDs idgen.Generator
}

// Runner holds the current settings snapshot and builds engine sessions.
type Runner struct {
	cfg    Config
	store  settings.Store
	logger *slog.Logger
	newID  idgen.Generator

	mu       sync.RWMutex
	current  settings.Snapshot
	sessions map[*Session]struct{}
}

// New creates a Runner. Call Start before use.
func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.Prefixed("rpt_", idgen.Default)
	}
	return &Runner{
		cfg:      cfg,
		store:    cfg.Settings,
		logger:   cfg.Logger,
		newID:    cfg.IDs,
		current:  settings.Defaults(),
		sessions: make(map[*Session]struct{}),
	}
}

// Start loads the snapshot and begins following store changes until ctx is
// done. A load failure is surfaced — the engine must not start without a
// valid snapshot.
func (r *Runner) Start(ctx context.Context) error {
	if r.store == nil {
		r.logger.Info("runner: no settings store, using defaults")
		return nil
	}
	snap, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("runner: load settings: %w", err)
	}
	r.setSnapshot(snap)
	go func() {
		if err := r.store.Watch(ctx, r.setSnapshot); err != nil {
			r.logger.Warn("runner: settings watch ended", "error", err)
		}
	}()
	return nil
}

// Snapshot returns the current settings snapshot.
func (r *Runner) Snapshot() settings.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// setSnapshot makes s current and fans it out to every attached session.
// The forward is posted onto each session document's loop, so it runs with
// the same run-to-completion discipline as mutation handling.
func (r *Runner) setSnapshot(s settings.Snapshot) {
	r.mu.Lock()
	r.current = s
	attached := make([]*Session, 0, len(r.sessions))
	for sess := range r.sessions {
		attached = append(attached, sess)
	}
	r.mu.Unlock()
	r.logger.Info("runner: settings updated", "enabled", s.Enabled)
	for _, sess := range attached {
		sess.doc.Loop().Post(func() { sess.ApplySettings(s) })
	}
}

// UpdateSettings merges an overlay over the current snapshot, validates,
// persists to the store when one is configured, and makes the result current.
func (r *Runner) UpdateSettings(ctx context.Context, over settings.Overlay) (settings.Snapshot, error) {
	snap := settings.Merge(r.Snapshot(), over)
	if err := snap.Validate(); err != nil {
		return settings.Snapshot{}, fmt.Errorf("runner: settings: %w", err)
	}
	if r.store != nil {
		if err := r.store.Save(ctx, snap); err != nil {
			return settings.Snapshot{}, fmt.Errorf("runner: save settings: %w", err)
		}
	}
	r.setSnapshot(snap)
	return snap, nil
}

// Session is the live wiring over one document. All methods must run on the
// goroutine driving the document's loop — the engine is cooperative, not
// concurrent.
type Session struct {
	runner   *Runner
	doc      *dom.Document
	det      *svgdetect.Detector
	enh      *svgenhance.Enhancer
	raster   *rasterhdr.Pass
	snapshot func() settings.Snapshot

	graphics []svgdetect.Graphic
}

// Attach starts the engine on doc: detector feeding enhancer, raster pass,
// enhancement policy from the runner's live snapshot. The session follows
// runner settings changes until Close: every change is applied via
// ApplySettings on the document's loop.
func (r *Runner) Attach(doc *dom.Document) (*Session, error) {
	s, err := r.attach(doc, r.Snapshot, true)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	r.mu.Unlock()
	return s, nil
}

func (r *Runner) attach(doc *dom.Document, snapshot func() settings.Snapshot, enhance bool) (*Session, error) {
	s := &Session{
		runner:   r,
		doc:      doc,
		enh:      svgenhance.New(doc, r.logger),
		raster:   rasterhdr.New(doc, r.logger),
		snapshot: snapshot,
	}
	s.det = svgdetect.New(doc, r.cfg.Detect)

	onDetected := func(g svgdetect.Graphic) {
		s.graphics = append(s.graphics, g)
		if enhance {
			// Always re-read the snapshot: a settings change and a
			// detection can interleave in either order.
			s.enh.Enhance(g, s.snapshot())
		}
	}
	if err := s.det.Start(onDetected); err != nil {
		return nil, err
	}
	if enhance {
		s.raster.Apply(snapshot())
	}
	return s, nil
}

// ApplySettings forwards a new snapshot: re-enhances every detected graphic,
// or restores everything when the global toggle went off.
func (s *Session) ApplySettings(snap settings.Snapshot) {
	s.snapshot = func() settings.Snapshot { return snap }
	if !snap.Enabled {
		s.enh.RestoreAll()
		s.raster.RestoreAll()
		return
	}
	for _, g := range s.graphics {
		s.enh.Enhance(g, snap)
	}
	s.raster.Apply(snap)
}

// Graphics returns the graphics detected so far, in discovery order.
func (s *Session) Graphics() []svgdetect.Graphic { return s.graphics }

// Enhancer exposes the session's enhancer (restore operations, stats).
func (s *Session) Enhancer() *svgenhance.Enhancer { return s.enh }

// Detector exposes the session's detector (stats).
func (s *Session) Detector() *svgdetect.Detector { return s.det }

// Close stops detection and stops following settings changes. Applied
// enhancements stay; restore first if the document outlives the session
// visually unchanged.
func (s *Session) Close() {
	s.det.Stop()
	s.runner.mu.Lock()
	delete(s.runner.sessions, s)
	s.runner.mu.Unlock()
}

// EnhanceOnce runs the engine over a static document with the current
// snapshot: scan, enhance, report, stop.
func (r *Runner) EnhanceOnce(doc *dom.Document) (*Report, error) {
	return r.EnhanceOnceWith(doc, r.Snapshot())
}

// EnhanceOnceWith is EnhanceOnce with an explicit snapshot (request-scoped
// overrides).
func (r *Runner) EnhanceOnceWith(doc *dom.Document, snap settings.Snapshot) (*Report, error) {
	sess, err := r.attach(doc, func() settings.Snapshot { return snap }, true)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	doc.Loop().Drain()
	return r.buildReport(sess, snap), nil
}

// DetectOnce scans a static document without touching it.
func (r *Runner) DetectOnce(doc *dom.Document) (*Report, error) {
	snap := r.Snapshot()
	sess, err := r.attach(doc, func() settings.Snapshot { return snap }, false)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	doc.Loop().Drain()
	return r.buildReport(sess, snap), nil
}
