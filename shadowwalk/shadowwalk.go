// Package shadowwalk traverses node trees across shadow boundaries.
//
// dom.FindAll deliberately stops at shadow roots; the functions here extend a
// query over every shadow tree transitively attached below a root. Traversal
// uses explicit worklists, so arbitrarily deep shadow nesting cannot
// overflow the call stack. No ordering is guaranteed across sibling shadow
// hosts.
//
// Both functions are pure over the tree at call time: shadow roots attached
// afterwards are invisible until the next walk, which is why the detector
// pairs walking with mutation watchers.
package shadowwalk

import "github.com/atelier9/svglens/dom"

// FindAll returns every node matching selector in root's light tree and in
// every shadow tree reachable from it, at any depth.
func FindAll(root *dom.Node, selector string) []*dom.Node {
	var out []*dom.Node
	scopes := []*dom.Node{root}
	for len(scopes) > 0 {
		scope := scopes[len(scopes)-1]
		scopes = scopes[:len(scopes)-1]
		out = append(out, dom.FindAll(scope, selector)...)
		scopes = append(scopes, shadowRootsIn(scope)...)
	}
	return out
}

// ForEachShadowRoot invokes visit once per shadow root transitively
// reachable from root, visiting each root before any shadow roots nested
// inside it.
func ForEachShadowRoot(root *dom.Node, visit func(sr *dom.Node)) {
	scopes := []*dom.Node{root}
	for len(scopes) > 0 {
		scope := scopes[len(scopes)-1]
		scopes = scopes[:len(scopes)-1]
		for _, sr := range shadowRootsIn(scope) {
			visit(sr)
			scopes = append(scopes, sr)
		}
	}
}

// shadowRootsIn collects the shadow roots attached to elements in scope's
// light subtree (scope itself included).
func shadowRootsIn(scope *dom.Node) []*dom.Node {
	var roots []*dom.Node
	stack := []*dom.Node{scope}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sr := n.Shadow(); sr != nil {
			roots = append(roots, sr)
		}
		stack = append(stack, n.Children()...)
	}
	return roots
}
