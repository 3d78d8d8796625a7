package svgenhance

import (
	"strconv"
	"strings"
	"weak"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/settings"
)

// Fixed contrast/saturation pairs for the full treatment. Unrecognised
// levels get the high pair.
var contrastExprs = map[string]string{
	settings.ContrastMedium:  "contrast(1.15) saturate(1.1)",
	settings.ContrastHigh:    "contrast(1.3) saturate(1.2)",
	settings.ContrastMaximum: "contrast(1.5) saturate(1.35)",
}

// Contrast multipliers for the filter-only treatment.
var rasterContrasts = map[string]string{
	settings.ContrastMedium:  "1.2",
	settings.ContrastHigh:    "1.4",
	settings.ContrastMaximum: "1.6",
}

var shapeTags = map[string]bool{
	"path": true, "circle": true, "ellipse": true, "rect": true,
	"line": true, "polyline": true, "polygon": true,
}

// Subtrees whose shapes are paint-server machinery, not visible content.
var nonRenderedContainers = map[string]bool{
	"defs": true, "clipPath": true, "clippath": true, "mask": true,
}

// enhanceInline applies the four-layer treatment to an inline markup root.
func (e *Enhancer) enhanceInline(root *dom.Node, s settings.Snapshot) {
	rec, ok := e.records.Get(root)
	if !ok {
		rec = &record{filter: captureStyle(root, "filter")}
	}
	e.applyOutline(root, rec, s)
	e.applyContrast(root, rec, s)
	e.applyHighlight(root, s)
	e.applyFocus(root, s)
	root.AddClass(ClassEnhanced)
	e.records.Set(root, rec)
}

// applyOutline strokes every renderable shape descendant, capturing each
// shape's original paint state the first time it is touched.
func (e *Enhancer) applyOutline(root *dom.Node, rec *record, s settings.Snapshot) {
	if !s.OutlineEnabled {
		restoreShapes(rec.shapes)
		rec.shapes = nil
		return
	}

	for _, shape := range collectShapes(root) {
		if !rec.hasShape(shape) {
			rec.shapes = append(rec.shapes, shapeState{
				node:        weak.Make(shape),
				stroke:      captureAttr(shape, "stroke"),
				strokeWidth: captureAttr(shape, "stroke-width"),
				paintOrder:  captureAttr(shape, "paint-order"),
			})
		}
		shape.SetAttr("stroke", s.OutlineColor)
		shape.SetAttr("stroke-width", strconv.Itoa(s.OutlineWidth))
		if fillIsPainted(shape) {
			// Paint the stroke first so the outline sits beneath the fill
			// instead of occluding it.
			shape.SetAttr("paint-order", "stroke")
		}
	}
}

// applyContrast concatenates the level's filter expression after whatever
// filter value existed before enhancement began; disabling reverts to
// exactly that pre-existing value.
func (e *Enhancer) applyContrast(root *dom.Node, rec *record, s settings.Snapshot) {
	if !s.ContrastEnabled {
		restoreStyleProp(root, "filter", rec.filter)
		return
	}
	expr, ok := contrastExprs[s.ContrastLevel]
	if !ok {
		expr = contrastExprs[settings.ContrastHigh]
	}
	if rec.filter.present && rec.filter.val != "" {
		root.SetStyleProp("filter", rec.filter.val+" "+expr)
	} else {
		root.SetStyleProp("filter", expr)
	}
}

// applyHighlight marks interactively-affordanced descendants. The marked set
// is recomputed fresh on every call (unlike outlines there is no capture
// list), so it starts by stripping the previous pass.
func (e *Enhancer) applyHighlight(root *dom.Node, s settings.Snapshot) {
	stripHighlights(root)
	if !s.HighlightEnabled {
		return
	}
	for _, el := range elementsUnder(root) {
		hl, err := e.isHighlightable(el)
		if err != nil {
			// Computed-style reads can fail on exotic nodes; skip the
			// element, not the pass.
			e.logger.Debug("svgenhance: computed style failed", "node", el.Path(), "error", err)
			continue
		}
		if hl {
			el.AddClass(ClassHighlight)
			el.SetStyleProp(HighlightColorProp, s.HighlightColor)
		}
	}
}

// applyFocus marks focus candidates and hands keyboard reachability to those
// without an explicit tab index, remembering which indices it invented.
func (e *Enhancer) applyFocus(root *dom.Node, s settings.Snapshot) {
	if !s.FocusIndicators {
		stripFocus(root)
		return
	}
	for _, el := range elementsUnder(root) {
		if !isFocusCandidate(el) {
			continue
		}
		el.AddClass(ClassFocusable)
		if !el.HasAttr("tabindex") {
			el.SetAttr("tabindex", "0")
			el.SetAttr(attrSyntheticTab, "")
		}
	}
}

// enhanceFilterOnly is the fallback treatment for raster references and
// non-introspectable embeds: a single filter expression combining the
// contrast multiplier and, when outline is on, a soft shadow spread that
// approximates one. Each call replaces the previously applied expression.
func (e *Enhancer) enhanceFilterOnly(n *dom.Node, s settings.Snapshot) {
	rec, ok := e.records.Get(n)
	if !ok {
		rec = &record{filter: captureStyle(n, "filter"), filterOnly: true}
		e.records.Set(n, rec)
	}

	var parts []string
	if rec.filter.present && rec.filter.val != "" {
		parts = append(parts, rec.filter.val)
	}
	if s.ContrastEnabled {
		mult, ok := rasterContrasts[s.ContrastLevel]
		if !ok {
			mult = rasterContrasts[settings.ContrastHigh]
		}
		parts = append(parts, "contrast("+mult+")")
	}
	if s.OutlineEnabled {
		parts = append(parts, "drop-shadow(0 0 "+strconv.Itoa(s.OutlineWidth)+"px "+s.OutlineColor+")")
	}

	if len(parts) == 0 {
		restoreStyleProp(n, "filter", rec.filter)
	} else {
		n.SetStyleProp("filter", strings.Join(parts, " "))
	}
	n.AddClass(ClassEnhancedFilter)
}

// --- node predicates and sweeps ---

// collectShapes returns the renderable shape descendants of root, skipping
// defs/clipPath/mask subtrees.
func collectShapes(root *dom.Node) []*dom.Node {
	var out []*dom.Node
	stack := make([]*dom.Node, 0, 16)
	stack = append(stack, root.Children()...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type != dom.ElementNode || nonRenderedContainers[n.Tag] {
			continue
		}
		if shapeTags[n.Tag] {
			out = append(out, n)
		}
		stack = append(stack, n.Children()...)
	}
	return out
}

// elementsUnder returns every element descendant of root, excluding root.
func elementsUnder(root *dom.Node) []*dom.Node {
	var out []*dom.Node
	stack := make([]*dom.Node, 0, 16)
	stack = append(stack, root.Children()...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type != dom.ElementNode {
			continue
		}
		out = append(out, n)
		stack = append(stack, n.Children()...)
	}
	return out
}

// fillIsPainted reports whether the shape renders a visible fill. SVG fills
// default to black, so only explicit none/transparent counts as unpainted.
func fillIsPainted(shape *dom.Node) bool {
	fill, ok := shape.StyleProp("fill")
	if !ok {
		fill, ok = shape.Attr("fill")
	}
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(fill)) {
	case "none", "transparent":
		return false
	}
	return true
}

var interactionAttrs = []string{"onclick", "onmousedown", "onmouseup", "ontouchstart", "onkeydown"}

// interactionAffordanced covers explicit interaction attributes, anchors,
// and ARIA button/link roles.
func interactionAffordanced(el *dom.Node) bool {
	if el.Tag == "a" {
		return true
	}
	switch el.AttrOr("role", "") {
	case "button", "link":
		return true
	}
	for _, a := range interactionAttrs {
		if el.HasAttr(a) {
			return true
		}
	}
	return false
}

// isHighlightable adds pointer-cursor styling, inline or computed, on top of
// the affordance checks — the computed read covers elements styled only via
// external rules.
func (e *Enhancer) isHighlightable(el *dom.Node) (bool, error) {
	if interactionAffordanced(el) {
		return true, nil
	}
	if v, ok := el.StyleProp("cursor"); ok && v == "pointer" {
		return true, nil
	}
	v, err := e.doc.ComputedStyle(el, "cursor")
	if err != nil {
		return false, err
	}
	return v == "pointer", nil
}

// isFocusCandidate: anchors, explicit non-negative tab indices, and
// attribute/role affordances. Cursor styling alone does not make a node
// focusable.
func isFocusCandidate(el *dom.Node) bool {
	if interactionAffordanced(el) {
		return true
	}
	if ti, ok := el.Attr("tabindex"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(ti)); err == nil && n >= 0 {
			return true
		}
	}
	return false
}

// stripHighlights removes highlight markers and the colour property from
// every currently-marked descendant.
func stripHighlights(root *dom.Node) {
	for _, el := range dom.FindAll(root, "."+ClassHighlight) {
		el.RemoveClass(ClassHighlight)
		el.RemoveStyleProp(HighlightColorProp)
	}
}

// stripFocus removes focus markers, and tab indices only where they were
// synthetically assigned.
func stripFocus(root *dom.Node) {
	for _, el := range dom.FindAll(root, "."+ClassFocusable) {
		el.RemoveClass(ClassFocusable)
		if el.HasAttr(attrSyntheticTab) {
			el.RemoveAttr("tabindex")
			el.RemoveAttr(attrSyntheticTab)
		}
	}
}
