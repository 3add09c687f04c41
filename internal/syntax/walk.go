package syntax

// Inspect traverses the tree rooted at n in document order: pre-order,
// depth-first, children left to right. If f returns false the children of
// that node are skipped; siblings are still visited.
func Inspect(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range n.Children {
		Inspect(c, f)
	}
}

// Ancestors calls f for each proper ancestor of n, nearest first, until f
// returns false or the root has been visited.
func Ancestors(n *Node, f func(*Node) bool) {
	if n == nil {
		return
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if !f(p) {
			return
		}
	}
}

// EnclosingFunction returns the nearest function-like ancestor of n, or nil.
func EnclosingFunction(n *Node) *Node {
	var fn *Node
	Ancestors(n, func(p *Node) bool {
		if p.Kind.IsFunctionLike() {
			fn = p
			return false
		}
		return true
	})
	return fn
}

// Find returns every node under root (inclusive) of the given kind, in
// document order.
func Find(root *Node, kind Kind) []*Node {
	var out []*Node
	Inspect(root, func(n *Node) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}
