package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse reads an HTML document. Declarative shadow DOM templates
// (<template shadowrootmode="open|closed">) become real shadow roots on
// their host element.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	doc := NewDocument()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := convert(doc, c); n != nil {
			attach(doc.root, n)
		}
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// convert maps an x/net/html node (and subtree) into this model. Returns
// nil for node kinds the model does not keep.
func convert(doc *Document, src *html.Node) *Node {
	switch src.Type {
	case html.ElementNode:
		el := doc.CreateElement(src.Data)
		for _, a := range src.Attr {
			el.attrs = append(el.attrs, Attr{Key: a.Key, Val: a.Val})
		}
		for c := src.FirstChild; c != nil; c = c.NextSibling {
			if isShadowTemplate(c) {
				sr := el.AttachShadow()
				for sc := c.FirstChild; sc != nil; sc = sc.NextSibling {
					if n := convert(doc, sc); n != nil {
						attach(sr, n)
					}
				}
				continue
			}
			if n := convert(doc, c); n != nil {
				attach(el, n)
			}
		}
		return el
	case html.TextNode:
		return doc.CreateText(src.Data)
	case html.CommentNode:
		return doc.CreateComment(src.Data)
	case html.DoctypeNode:
		return &Node{Type: DoctypeNode, Data: src.Data, doc: doc}
	default:
		return nil
	}
}

func isShadowTemplate(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "template" {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "shadowrootmode" {
			return true
		}
	}
	return false
}

// attach links without emitting mutation records; used only while building
// trees that nothing observes yet.
func attach(parent, child *Node) {
	child.parent = parent
	parent.kids = append(parent.kids, child)
}

// Render serialises the document, shadow roots included (as declarative
// shadow DOM templates). Embedded content documents are not serialised.
func Render(w io.Writer, d *Document) error {
	for _, c := range d.root.kids {
		if err := html.Render(w, deconvert(c)); err != nil {
			return fmt.Errorf("dom: render: %w", err)
		}
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(d *Document) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, d); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func deconvert(n *Node) *html.Node {
	switch n.Type {
	case ElementNode:
		out := &html.Node{Type: html.ElementNode, Data: n.Tag}
		for _, a := range n.attrs {
			out.Attr = append(out.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
		if n.shadow != nil {
			tmpl := &html.Node{
				Type: html.ElementNode,
				Data: "template",
				Attr: []html.Attribute{{Key: "shadowrootmode", Val: "open"}},
			}
			for _, sc := range n.shadow.kids {
				tmpl.AppendChild(deconvert(sc))
			}
			out.AppendChild(tmpl)
		}
		for _, c := range n.kids {
			out.AppendChild(deconvert(c))
		}
		return out
	case TextNode:
		return &html.Node{Type: html.TextNode, Data: n.Data}
	case CommentNode:
		return &html.Node{Type: html.CommentNode, Data: n.Data}
	case DoctypeNode:
		return &html.Node{Type: html.DoctypeNode, Data: n.Data}
	default:
		return &html.Node{Type: html.TextNode}
	}
}
