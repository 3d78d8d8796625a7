package dom

import (
	"strconv"
	"strings"
)

// NodeType discriminates the node kinds the model supports.
type NodeType int

const (
	DocumentNode NodeType = iota
	DoctypeNode
	ElementNode
	TextNode
	CommentNode
	ShadowRootNode
)

// Attr is one element attribute. Order is preserved.
type Attr struct {
	Key string
	Val string
}

// Node is a node in a document tree. Type, Tag and Data are fixed at
// creation; tree structure and attributes mutate through methods so that
// observers see every change.
type Node struct {
	Type NodeType
	Tag  string // element tag (case-adjusted for foreign content)
	Data string // text/comment/doctype payload

	doc    *Document
	parent *Node
	kids   []*Node
	attrs  []Attr

	shadow *Node // element hosting a shadow root
	host   *Node // shadow root's host element

	contentDoc  *Document // object/embed inner document
	crossOrigin bool
}

// Document returns the owning document.
func (n *Node) Document() *Document { return n.doc }

// Parent returns the parent node, nil for detached nodes, document roots and
// shadow roots.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's light children. The returned slice is the
// node's own storage; callers must not mutate it.
func (n *Node) Children() []*Node { return n.kids }

// Text returns the concatenated text content of the subtree (light tree
// only).
func (n *Node) Text() string {
	var sb strings.Builder
	var walk func(*Node)
	walk = func(x *Node) {
		if x.Type == TextNode {
			sb.WriteString(x.Data)
		}
		for _, c := range x.kids {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// --- tree mutation ---

// AppendChild appends c as the last child of n, detaching it from any
// previous parent first. Panics on document-crossing or non-container
// parents, which are programmer errors.
func (n *Node) AppendChild(c *Node) {
	n.InsertBefore(c, nil)
}

// InsertBefore inserts c before ref (or at the end when ref is nil).
func (n *Node) InsertBefore(c, ref *Node) {
	if n.Type != ElementNode && n.Type != DocumentNode && n.Type != ShadowRootNode {
		panic("dom: insert into non-container node")
	}
	if c.doc != n.doc {
		panic("dom: insert across documents")
	}
	for a := n; a != nil; a = a.parent {
		if a == c {
			panic("dom: insert would create a cycle")
		}
	}
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	idx := len(n.kids)
	if ref != nil {
		for i, k := range n.kids {
			if k == ref {
				idx = i
				break
			}
		}
	}
	n.kids = append(n.kids, nil)
	copy(n.kids[idx+1:], n.kids[idx:])
	n.kids[idx] = c
	c.parent = n
	n.doc.queueRecord(Record{Op: OpInsert, Target: n, Added: []*Node{c}})
}

// RemoveChild detaches c from n. No-op if c is not a child of n.
func (n *Node) RemoveChild(c *Node) {
	for i, k := range n.kids {
		if k == c {
			copy(n.kids[i:], n.kids[i+1:])
			// Zero the vacated slot: a stale pointer in the backing array
			// would keep the removed subtree reachable from its old parent.
			n.kids[len(n.kids)-1] = nil
			n.kids = n.kids[:len(n.kids)-1]
			c.parent = nil
			n.doc.queueRecord(Record{Op: OpRemove, Target: n, Removed: []*Node{c}})
			return
		}
	}
}

// contains reports whether x is n or a descendant of n, without crossing
// shadow boundaries (a shadow root's parent chain terminates at the root).
func (n *Node) contains(x *Node) bool {
	for a := x; a != nil; a = a.parent {
		if a == n {
			return true
		}
	}
	return false
}

// --- attributes ---

// Attr returns the attribute value and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when absent.
func (n *Node) AttrOr(key, def string) string {
	if v, ok := n.Attr(key); ok {
		return v
	}
	return def
}

// HasAttr reports attribute presence.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// SetAttr sets an attribute, notifying attribute observers.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.attrs {
		if a.Key == key {
			if a.Val == val {
				return
			}
			n.attrs[i].Val = val
			n.doc.queueRecord(Record{Op: OpAttr, Target: n, Attr: key, Value: val, OldValue: a.Val})
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Key: key, Val: val})
	n.doc.queueRecord(Record{Op: OpAttr, Target: n, Attr: key, Value: val})
}

// RemoveAttr removes an attribute if present.
func (n *Node) RemoveAttr(key string) {
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			n.doc.queueRecord(Record{Op: OpAttrDel, Target: n, Attr: key, OldValue: a.Val})
			return
		}
	}
}

// Attrs returns a copy of the attribute list.
func (n *Node) Attrs() []Attr {
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// --- classes ---

// HasClass reports whether the class attribute contains name.
func (n *Node) HasClass(name string) bool {
	for _, c := range strings.Fields(n.AttrOr("class", "")) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds name to the class attribute if not present.
func (n *Node) AddClass(name string) {
	if n.HasClass(name) {
		return
	}
	cur := n.AttrOr("class", "")
	if cur == "" {
		n.SetAttr("class", name)
		return
	}
	n.SetAttr("class", cur+" "+name)
}

// RemoveClass removes name from the class attribute. An emptied class
// attribute is removed outright.
func (n *Node) RemoveClass(name string) {
	fields := strings.Fields(n.AttrOr("class", ""))
	out := fields[:0]
	for _, c := range fields {
		if c != name {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		if n.HasAttr("class") {
			n.RemoveAttr("class")
		}
		return
	}
	n.SetAttr("class", strings.Join(out, " "))
}

// --- inline style ---

// StyleProp returns the value of a property in the inline style attribute.
func (n *Node) StyleProp(property string) (string, bool) {
	for _, d := range parseStyle(n.AttrOr("style", "")) {
		if d.prop == property {
			return d.val, true
		}
	}
	return "", false
}

// SetStyleProp sets a property in the inline style attribute, preserving
// declaration order.
func (n *Node) SetStyleProp(property, value string) {
	decls := parseStyle(n.AttrOr("style", ""))
	found := false
	for i := range decls {
		if decls[i].prop == property {
			decls[i].val = value
			found = true
		}
	}
	if !found {
		decls = append(decls, styleDecl{prop: property, val: value})
	}
	n.SetAttr("style", renderStyle(decls))
}

// RemoveStyleProp removes a property from the inline style attribute. An
// emptied style attribute is removed outright.
func (n *Node) RemoveStyleProp(property string) {
	decls := parseStyle(n.AttrOr("style", ""))
	out := decls[:0]
	for _, d := range decls {
		if d.prop != property {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		if n.HasAttr("style") {
			n.RemoveAttr("style")
		}
		return
	}
	n.SetAttr("style", renderStyle(out))
}

type styleDecl struct {
	prop string
	val  string
}

func parseStyle(s string) []styleDecl {
	var out []styleDecl
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		out = append(out, styleDecl{prop: strings.TrimSpace(prop), val: strings.TrimSpace(val)})
	}
	return out
}

func renderStyle(decls []styleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.val)
	}
	return strings.Join(parts, "; ")
}

// --- shadow DOM ---

// AttachShadow attaches a shadow root to an element, or returns the existing
// one. Shadow attachment is not observable — watchers that care must re-walk
// (the walker package exists for exactly that).
func (n *Node) AttachShadow() *Node {
	if n.Type != ElementNode {
		panic("dom: shadow root on non-element")
	}
	if n.shadow == nil {
		n.shadow = &Node{Type: ShadowRootNode, doc: n.doc, host: n}
	}
	return n.shadow
}

// Shadow returns the element's shadow root, or nil.
func (n *Node) Shadow() *Node { return n.shadow }

// Host returns a shadow root's host element, or nil.
func (n *Node) Host() *Node { return n.host }

// --- embedded documents ---

// SetContentDocument installs an inner document on an object/embed element.
func (n *Node) SetContentDocument(d *Document) { n.contentDoc = d }

// MarkCrossOrigin flags the element's inner document as non-introspectable.
func (n *Node) MarkCrossOrigin() { n.crossOrigin = true }

// ContentDocument returns the embedded document of an object/embed element.
// Returns ErrCrossOrigin when introspection is denied, and (nil, nil) when
// there is no inner document at all.
func (n *Node) ContentDocument() (*Document, error) {
	if n.crossOrigin {
		return nil, ErrCrossOrigin
	}
	return n.contentDoc, nil
}

// --- paths ---

// Path returns a stable, human-readable location of the node, xpath-like,
// with "::shadow" segments at shadow boundaries. Used in reports and logs.
func (n *Node) Path() string {
	var segs []string
	for cur := n; cur != nil; {
		switch cur.Type {
		case DocumentNode:
			cur = nil
		case ShadowRootNode:
			segs = append(segs, "::shadow")
			cur = cur.host
		case ElementNode:
			idx := 1
			if p := cur.parent; p != nil {
				for _, sib := range p.kids {
					if sib == cur {
						break
					}
					if sib.Type == ElementNode && sib.Tag == cur.Tag {
						idx++
					}
				}
			}
			seg := cur.Tag
			if idx > 1 {
				seg += "[" + strconv.Itoa(idx) + "]"
			}
			segs = append(segs, seg)
			cur = cur.parent
		default:
			cur = cur.parent
		}
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return "/" + strings.Join(segs, "/")
}
