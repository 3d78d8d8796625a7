// Package dom hosts a live, mutable document model for the svglens engine.
//
// It is deliberately narrower than a browser DOM: nodes, ordered attributes,
// shadow roots, mutation observers with batched run-to-completion delivery,
// and a cooperative single-goroutine event loop with a virtual clock. HTML
// moves in and out via golang.org/x/net/html; shadow trees round-trip as
// declarative shadow DOM templates.
//
// Everything in this package is single-goroutine: the goroutine that mutates
// a document must be the one driving its loop. There is no internal locking.
package dom

import "errors"

// ErrCrossOrigin is returned by Node.ContentDocument when the embedded
// document exists but is not introspectable from this origin.
var ErrCrossOrigin = errors.New("dom: cross-origin content document")

// StyleResolver computes the effective value of a style property on a node.
// The default resolver only consults the node's inline style; hosts with a
// real cascade (or tests) install richer resolvers on the Document.
type StyleResolver func(n *Node, property string) (string, error)

// Document owns a node tree, its observers, and its event loop.
type Document struct {
	root      *Node
	loop      *Loop
	observers []*Observer

	// StyleResolver backs computed-style queries. Defaults to inline-style
	// lookup; may be replaced at any time.
	StyleResolver StyleResolver
}

// NewDocument creates an empty document with its own event loop.
func NewDocument() *Document {
	d := &Document{loop: NewLoop()}
	d.root = &Node{Type: DocumentNode, doc: d}
	d.StyleResolver = inlineStyleResolver
	return d
}

// Root returns the document node. Its children are the top-level nodes
// (doctype, <html>).
func (d *Document) Root() *Node { return d.root }

// Loop returns the event loop that delivers observer callbacks and timers
// for this document.
func (d *Document) Loop() *Loop { return d.loop }

// DocumentElement returns the <html> element, or nil on an empty document.
func (d *Document) DocumentElement() *Node {
	for _, c := range d.root.kids {
		if c.Type == ElementNode {
			return c
		}
	}
	return nil
}

// CreateElement creates a detached element owned by this document.
func (d *Document) CreateElement(tag string) *Node {
	return &Node{Type: ElementNode, Tag: tag, doc: d}
}

// CreateText creates a detached text node owned by this document.
func (d *Document) CreateText(text string) *Node {
	return &Node{Type: TextNode, Data: text, doc: d}
}

// CreateComment creates a detached comment node owned by this document.
func (d *Document) CreateComment(text string) *Node {
	return &Node{Type: CommentNode, Data: text, doc: d}
}

// ComputedStyle resolves a style property through the document's resolver.
func (d *Document) ComputedStyle(n *Node, property string) (string, error) {
	if d.StyleResolver == nil {
		return inlineStyleResolver(n, property)
	}
	return d.StyleResolver(n, property)
}

func inlineStyleResolver(n *Node, property string) (string, error) {
	v, _ := n.StyleProp(property)
	return v, nil
}
