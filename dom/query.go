package dom

import "strings"

// FindAll returns every node in root's light tree (root included) matching a
// simple CSS selector. Shadow trees are not entered — cross-boundary search
// lives in the shadowwalk package.
//
// Supported selector subset:
//   - tag: "svg", "img"
//   - .class: ".svglens-enhanced"
//   - #id: "#stage"
//   - tag.class, tag#id
//   - tag[attr], tag[attr=val]
//   - combinations separated by space (descendant combinator)
func FindAll(root *Node, selector string) []*Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(root, parts[0])
	for i := 1; i < len(parts); i++ {
		var next []*Node
		for _, parent := range matches {
			for _, c := range parent.kids {
				next = append(next, matchSimple(c, parts[i])...)
			}
		}
		matches = next
	}
	return matches
}

// Matches reports whether n itself matches a simple (single-part) selector.
func Matches(n *Node, selector string) bool {
	return matchesSelector(n, parseSimpleSelector(selector))
}

// matchSimple finds all nodes in root's light subtree matching one selector
// part, using an explicit worklist to stay off the call stack on deep trees.
func matchSimple(root *Node, sel string) []*Node {
	m := parseSimpleSelector(sel)
	var results []*Node
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if matchesSelector(n, m) {
			results = append(results, n)
		}
		for i := len(n.kids) - 1; i >= 0; i-- {
			stack = append(stack, n.kids[i])
		}
	}
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(n *Node, s simpleSelector) bool {
	if n.Type != ElementNode {
		return false
	}
	if s.tag != "" && n.Tag != s.tag {
		return false
	}
	if s.id != "" && n.AttrOr("id", "") != s.id {
		return false
	}
	if s.class != "" && !n.HasClass(s.class) {
		return false
	}
	if s.attrKey != "" {
		val, ok := n.Attr(s.attrKey)
		if !ok {
			return false
		}
		if s.attrVal != "" && val != s.attrVal {
			return false
		}
	}
	return true
}
