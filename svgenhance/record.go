package svgenhance

import (
	"weak"

	"github.com/atelier9/svglens/dom"
)

// attrState is a captured attribute or style-property value. Present
// distinguishes "was absent" from "was the empty string", so restoration can
// remove what never existed.
type attrState struct {
	val     string
	present bool
}

// shapeState is the captured paint state of one shape descendant. The node
// reference is weak: records live in a map keyed weakly by the graphic root,
// and a strong shape pointer would reach that root through the shape's
// parent chain, keeping the entry alive after the graphic leaves the
// document.
type shapeState struct {
	node        weak.Pointer[dom.Node]
	stroke      attrState
	strokeWidth attrState
	paintOrder  attrState
}

// record is the per-enhanced-node saved state. filterOnly records carry no
// shape list.
type record struct {
	filter     attrState // inline filter style before enhancement
	filterOnly bool
	shapes     []shapeState
}

func (r *record) hasShape(n *dom.Node) bool {
	w := weak.Make(n)
	for _, st := range r.shapes {
		if st.node == w {
			return true
		}
	}
	return false
}

// restoreShapes replays captured paint state onto every shape still alive.
// Collected shapes are gone from the document too, so skipping them loses
// nothing.
func restoreShapes(states []shapeState) {
	for _, st := range states {
		shape := st.node.Value()
		if shape == nil {
			continue
		}
		restoreAttr(shape, "stroke", st.stroke)
		restoreAttr(shape, "stroke-width", st.strokeWidth)
		restoreAttr(shape, "paint-order", st.paintOrder)
	}
}

func captureAttr(n *dom.Node, key string) attrState {
	v, ok := n.Attr(key)
	return attrState{val: v, present: ok}
}

func captureStyle(n *dom.Node, prop string) attrState {
	v, ok := n.StyleProp(prop)
	return attrState{val: v, present: ok}
}

func restoreAttr(n *dom.Node, key string, st attrState) {
	if st.present {
		n.SetAttr(key, st.val)
	} else {
		n.RemoveAttr(key)
	}
}

func restoreStyleProp(n *dom.Node, prop string, st attrState) {
	if st.present {
		n.SetStyleProp(prop, st.val)
	} else {
		n.RemoveStyleProp(prop)
	}
}
