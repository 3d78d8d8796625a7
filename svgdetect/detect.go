// Package svgdetect discovers vector graphics in a live document: inline
// markup, raster references, plugin embeds, and animation-player output.
//
// A Detector has two states. Idle: constructed, watching nothing. Active:
// one synchronous full-tree pass has reported everything already present,
// and mutation watchers (document-wide plus one per shadow root) report
// later insertions without re-scanning. Each distinct graphic node is
// reported at most once per Active session, in discovery order.
package svgdetect

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/internal/weakref"
	"github.com/atelier9/svglens/shadowwalk"
)

// Detector scans a document for graphics and watches it for more.
type Detector struct {
	doc *dom.Document
	cfg Config

	onDetected func(Graphic)
	active     bool

	// seen keys reported primary nodes without keeping removed ones alive.
	seen *weakref.Set[dom.Node]

	docObs *dom.Observer
	// shadowObs makes shadow-watcher attachment idempotent per shadow root.
	// Entries live until Stop; that is session-scoped by design.
	shadowObs map[*dom.Node]*dom.Observer
	pending   map[*dom.Node]*pendingWatch

	reported atomic.Int64
	watches  atomic.Int64
	expired  atomic.Int64
}

// Stats are point-in-time detection counters.
type Stats struct {
	Reported       int64 `json:"reported"`
	PendingStarted int64 `json:"pending_started"`
	PendingExpired int64 `json:"pending_expired"`
	PendingOpen    int   `json:"pending_open"`
	ShadowWatchers int   `json:"shadow_watchers"`
}

// New creates an Idle detector for doc.
func New(doc *dom.Document, cfg Config) *Detector {
	cfg.defaults()
	return &Detector{doc: doc, cfg: cfg}
}

// Stats returns the current counters.
func (d *Detector) Stats() Stats {
	return Stats{
		Reported:       d.reported.Load(),
		PendingStarted: d.watches.Load(),
		PendingExpired: d.expired.Load(),
		PendingOpen:    len(d.pending),
		ShadowWatchers: len(d.shadowObs),
	}
}

// Start transitions Idle→Active: one synchronous full scan, then continuous
// watchers. onDetected fires synchronously, at most once per node for the
// lifetime of this session.
func (d *Detector) Start(onDetected func(Graphic)) error {
	if d.active {
		return fmt.Errorf("svgdetect: already started")
	}
	if onDetected == nil {
		return fmt.Errorf("svgdetect: nil callback")
	}
	d.active = true
	d.onDetected = onDetected
	d.seen = weakref.NewSet[dom.Node]()
	d.shadowObs = make(map[*dom.Node]*dom.Observer)
	d.pending = make(map[*dom.Node]*pendingWatch)

	d.initialPass()
	d.installWatchers()
	return nil
}

// Stop transitions Active→Idle, disconnecting every watcher including
// shadow watchers and still-pending animation watches. The seen-set is
// discarded: the next Start sees a clean slate and may re-report nodes
// still in the document.
func (d *Detector) Stop() {
	if !d.active {
		return
	}
	d.active = false
	if d.docObs != nil {
		d.docObs.Disconnect()
		d.docObs = nil
	}
	for _, o := range d.shadowObs {
		o.Disconnect()
	}
	d.shadowObs = nil
	for _, w := range d.pending {
		w.dispose()
	}
	d.pending = nil
	d.seen = nil
	d.onDetected = nil
	d.cfg.Logger.Debug("svgdetect: stopped")
}

// report notifies the caller unless the node was already reported this
// session.
func (d *Detector) report(g Graphic) {
	if g.Primary == nil || !d.seen.Add(g.Primary) {
		return
	}
	d.reported.Add(1)
	d.onDetected(g)
}

// --- initial pass ---

func (d *Detector) initialPass() {
	root := d.doc.Root()

	// 1. Animation-hosted, four sub-methods. These run before the generic
	// inline pass so that hosted markup gets the animation kind; the
	// seen-set then dedups any re-match below.

	// 1a. Known container class names with markup already present.
	for _, class := range d.cfg.ContainerClasses {
		for _, c := range shadowwalk.FindAll(root, "."+class) {
			if svg := resolvePrimary(c); svg != nil {
				d.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: c})
			}
		}
	}

	// 1b. Player custom elements: report if rendered, otherwise wait.
	for _, tag := range d.cfg.PlayerTags {
		for _, c := range shadowwalk.FindAll(root, tag) {
			if svg := resolvePrimary(c); svg != nil {
				d.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: c})
			} else {
				d.startPendingWatch(c)
			}
		}
	}

	// 1c. Animation data attributes with markup already present.
	for _, attr := range d.cfg.DataAttrs {
		for _, c := range shadowwalk.FindAll(root, "["+attr+"]") {
			if svg := resolvePrimary(c); svg != nil {
				d.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: c})
			}
		}
	}

	// 1d. Markup that itself carries animation markers; the container is
	// its immediate parent.
	for _, sel := range d.inlineMarkerSelectors() {
		for _, svg := range shadowwalk.FindAll(root, sel) {
			d.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: svg.Parent()})
		}
	}

	// 2. Remaining inline markup. classify covers hosted markup the
	// sub-methods above could have matched anyway.
	for _, n := range shadowwalk.FindAll(root, "svg") {
		d.report(d.classify(n))
	}

	// 3. Raster-referenced.
	for _, n := range shadowwalk.FindAll(root, "img") {
		if isVectorSource(n.AttrOr("src", "")) {
			d.report(Graphic{Kind: KindRasterReferenced, Primary: n})
		}
	}

	// 4. Plugin-embedded.
	for _, tag := range []string{"object", "embed"} {
		for _, n := range shadowwalk.FindAll(root, tag) {
			if isVectorEmbed(n) {
				d.report(Graphic{Kind: KindPluginEmbedded, Primary: n})
			}
		}
	}
}

func (d *Detector) inlineMarkerSelectors() []string {
	var sels []string
	for _, class := range d.cfg.InlineMarkerClasses {
		sels = append(sels, "svg."+class)
	}
	for _, attr := range d.cfg.InlineMarkerAttrs {
		sels = append(sels, "svg["+attr+"]")
	}
	return sels
}

// --- continuous watchers ---

func (d *Detector) installWatchers() {
	d.docObs = d.doc.NewObserver(d.onMutations)
	d.docObs.Observe(d.doc.Root(), dom.ObserveOptions{ChildList: true, Subtree: true})
	shadowwalk.ForEachShadowRoot(d.doc.Root(), d.watchShadowRoot)
}

// onMutations handles a delivered batch from the document-wide or a
// shadow-root watcher. Added nodes are processed in report order.
func (d *Detector) onMutations(recs []dom.Record) {
	if !d.active {
		return
	}
	for _, rec := range recs {
		if rec.Op != dom.OpInsert {
			continue
		}
		for _, n := range rec.Added {
			if n.Type == dom.ElementNode {
				d.handleAdded(n)
			}
		}
	}
}

// handleAdded inspects one freshly-inserted element: the element itself,
// its descendants, and any shadow trees it carries.
func (d *Detector) handleAdded(el *dom.Node) {
	if el.Tag == "svg" {
		d.report(d.classify(el))
		return
	}
	if d.isPlayerTag(el.Tag) {
		if svg := resolvePrimary(el); svg != nil {
			d.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: el})
		} else {
			d.startPendingWatch(el)
		}
		return
	}

	for _, svg := range shadowwalk.FindAll(el, "svg") {
		d.report(d.classify(svg))
	}
	for _, tag := range d.cfg.PlayerTags {
		for _, c := range shadowwalk.FindAll(el, tag) {
			if svg := resolvePrimary(c); svg != nil {
				d.report(Graphic{Kind: KindAnimationHosted, Primary: svg, Container: c})
			} else {
				d.startPendingWatch(c)
			}
		}
	}
	shadowwalk.ForEachShadowRoot(el, d.watchShadowRoot)
}

// classify decides whether a piece of inline markup is plain or the output
// of an animation library.
func (d *Detector) classify(svg *dom.Node) Graphic {
	for _, class := range d.cfg.InlineMarkerClasses {
		if svg.HasClass(class) {
			return Graphic{Kind: KindAnimationHosted, Primary: svg, Container: svg.Parent()}
		}
	}
	for _, attr := range d.cfg.InlineMarkerAttrs {
		if svg.HasAttr(attr) {
			return Graphic{Kind: KindAnimationHosted, Primary: svg, Container: svg.Parent()}
		}
	}
	if p := svg.Parent(); p != nil && d.isAnimationContainer(p) {
		return Graphic{Kind: KindAnimationHosted, Primary: svg, Container: p}
	}
	return Graphic{Kind: KindInline, Primary: svg}
}

// watchShadowRoot attaches the continuous added-element logic to a shadow
// root for the remaining lifetime of the session. Idempotent: attaching
// twice to the same root is a no-op. Markup already inside is reported
// immediately.
func (d *Detector) watchShadowRoot(sr *dom.Node) {
	if _, ok := d.shadowObs[sr]; ok {
		return
	}
	obs := d.doc.NewObserver(d.onMutations)
	obs.Observe(sr, dom.ObserveOptions{ChildList: true, Subtree: true})
	d.shadowObs[sr] = obs

	for _, svg := range dom.FindAll(sr, "svg") {
		d.report(d.classify(svg))
	}
}

func (d *Detector) isPlayerTag(tag string) bool {
	for _, t := range d.cfg.PlayerTags {
		if tag == t {
			return true
		}
	}
	return false
}

func (d *Detector) isAnimationContainer(n *dom.Node) bool {
	for _, class := range d.cfg.ContainerClasses {
		if n.HasClass(class) {
			return true
		}
	}
	if d.isPlayerTag(n.Tag) {
		return true
	}
	for _, attr := range d.cfg.DataAttrs {
		if n.HasAttr(attr) {
			return true
		}
	}
	return false
}

// --- source sniffing ---

// isVectorSource reports whether an image source references an SVG file:
// path ending in .svg, or .svg followed directly by a query string.
func isVectorSource(src string) bool {
	if src == "" {
		return false
	}
	s := strings.ToLower(src)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return strings.HasSuffix(s, ".svg") || strings.Contains(s, ".svg?")
}

// isVectorEmbed reports whether an object/embed declares SVG content by
// MIME type or source path.
func isVectorEmbed(n *dom.Node) bool {
	if strings.EqualFold(n.AttrOr("type", ""), "image/svg+xml") {
		return true
	}
	if isVectorSource(n.AttrOr("data", "")) {
		return true
	}
	return isVectorSource(n.AttrOr("src", ""))
}

// resolvePrimary finds the rendered markup inside an animation container:
// its light subtree first, then its own shadow tree.
func resolvePrimary(container *dom.Node) *dom.Node {
	for _, svg := range dom.FindAll(container, "svg") {
		if svg != container {
			return svg
		}
	}
	if sr := container.Shadow(); sr != nil {
		if svgs := shadowwalk.FindAll(sr, "svg"); len(svgs) > 0 {
			return svgs[0]
		}
	}
	return nil
}
