// Package svgenhance applies reversible visual treatments to discovered
// graphics: stroke outlines, contrast boosts, interactive-element
// highlighting and focus indicators for inline markup, and a filter-only
// approximation for raster references and non-introspectable embeds.
//
// Every enhanced node gets a per-node record of the state the engine is
// about to overwrite, keyed weakly by node identity: a record exists exactly
// while the node carries a marker class, and restoring the node replays the
// record and deletes it. Re-enhancing after a restore starts from scratch.
package svgenhance

import (
	"log/slog"
	"sync/atomic"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/internal/weakref"
	"github.com/atelier9/svglens/settings"
	"github.com/atelier9/svglens/shadowwalk"
	"github.com/atelier9/svglens/svgdetect"
)

// Marker classes and attributes the engine leaves on enhanced nodes. The
// enhanced markers double as the discovery signal for RestoreAll.
const (
	ClassEnhanced       = "svglens-enhanced"
	ClassEnhancedFilter = "svglens-enhanced-filter"
	ClassHighlight      = "svglens-highlight"
	ClassFocusable      = "svglens-focusable"

	// HighlightColorProp carries the configured highlight colour as a
	// custom property so external stylesheets can react to it.
	HighlightColorProp = "--svglens-highlight"

	attrSyntheticTab = "data-svglens-tabindex"
)

// Enhancer applies and reverts treatments on one document.
type Enhancer struct {
	doc     *dom.Document
	records *weakref.Map[dom.Node, *record]
	logger  *slog.Logger

	enhanced atomic.Int64
	restored atomic.Int64
}

// Stats are point-in-time enhancement counters.
type Stats struct {
	Enhanced int64 `json:"enhanced"`
	Restored int64 `json:"restored"`
	Tracked  int   `json:"tracked"`
}

// New creates an Enhancer for doc.
func New(doc *dom.Document, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{
		doc:     doc,
		records: weakref.NewMap[dom.Node, *record](),
		logger:  logger,
	}
}

// Stats returns the current counters.
func (e *Enhancer) Stats() Stats {
	return Stats{
		Enhanced: e.enhanced.Load(),
		Restored: e.restored.Load(),
		Tracked:  e.records.Len(),
	}
}

// Tracked returns the number of nodes currently carrying enhancement state.
func (e *Enhancer) Tracked() int { return e.records.Len() }

// Enhance applies the snapshot's treatments to one graphic. With the global
// toggle off it is equivalent to restoring the graphic's target node.
// Idempotent for identical snapshots and re-entrant for changed ones: each
// call recomputes the applied treatment in place, no intervening restore
// needed.
func (e *Enhancer) Enhance(g svgdetect.Graphic, s settings.Snapshot) {
	target, filterOnly := e.resolveTarget(g)
	if target == nil {
		return
	}
	if !s.Enabled {
		e.Restore(target)
		return
	}
	if filterOnly {
		e.enhanceFilterOnly(target, s)
	} else {
		e.enhanceInline(target, s)
	}
	e.enhanced.Add(1)
}

// resolveTarget picks the node a graphic's treatment lands on and whether
// only the filter fallback applies. For plugin embeds it attempts to reach
// the nested document; a denied or empty introspection falls back to the
// filter-only path on the embed element itself — expected, never an error.
func (e *Enhancer) resolveTarget(g svgdetect.Graphic) (*dom.Node, bool) {
	switch g.Kind {
	case svgdetect.KindInline, svgdetect.KindAnimationHosted:
		return g.Primary, false
	case svgdetect.KindRasterReferenced:
		return g.Primary, true
	case svgdetect.KindPluginEmbedded:
		inner, err := g.Primary.ContentDocument()
		if err != nil {
			e.logger.Info("svgenhance: embed not introspectable, filter fallback",
				"node", g.Primary.Path(), "reason", err)
			return g.Primary, true
		}
		if inner == nil {
			return g.Primary, true
		}
		if svgs := dom.FindAll(inner.Root(), "svg"); len(svgs) > 0 {
			return svgs[0], false
		}
		return g.Primary, true
	default:
		return nil, false
	}
}

// Restore reverts a node to its pre-enhancement state: captured filter,
// captured shape attributes, all markers, synthetic tab indices. No-op
// without a record. Unconditional with respect to settings — callers use it
// for per-node and global teardown alike.
func (e *Enhancer) Restore(n *dom.Node) {
	rec, ok := e.records.Get(n)
	if !ok {
		return
	}
	restoreStyleProp(n, "filter", rec.filter)
	if !rec.filterOnly {
		restoreShapes(rec.shapes)
		stripHighlights(n)
		stripFocus(n)
	}
	n.RemoveClass(ClassEnhanced)
	n.RemoveClass(ClassEnhancedFilter)
	e.records.Delete(n)
	e.restored.Add(1)
}

// RestoreAll restores every node in the document carrying an enhancement
// marker, shadow trees included. Markup enhanced inside embedded content
// documents is only reachable through its own graphic reference.
func (e *Enhancer) RestoreAll() {
	for _, class := range []string{ClassEnhanced, ClassEnhancedFilter} {
		for _, n := range shadowwalk.FindAll(e.doc.Root(), "."+class) {
			e.Restore(n)
		}
	}
}
