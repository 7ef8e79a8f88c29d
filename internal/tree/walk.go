package tree

// Walk visits every node below root in document order. Returning false from
// fn skips that node's children.
func Walk(root *Node, fn func(n *Node) bool) {
	if root == nil {
		return
	}
	for _, c := range root.Children {
		if fn(c) {
			Walk(c, fn)
		}
	}
}

// Paths returns the path key of every built node in document order.
func Paths(root *Node) []string {
	var out []string
	Walk(root, func(n *Node) bool {
		out = append(out, n.Path)
		return true
	})
	return out
}

// BranchPaths returns the path keys of every built mapping or sequence node.
func BranchPaths(root *Node) []string {
	var out []string
	Walk(root, func(n *Node) bool {
		if !n.IsLeaf() {
			out = append(out, n.Path)
		}
		return true
	})
	return out
}

// Find returns the first node whose path key equals path.
func Find(root *Node, path string) *Node {
	if path == "" {
		return root
	}
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Path == path {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node whose path key equals path, in document order.
// More than one node shares a path key only when a mapping key contains the
// path separator.
func FindAll(root *Node, path string) []*Node {
	if path == "" {
		return []*Node{root}
	}
	var out []*Node
	Walk(root, func(n *Node) bool {
		if n.Path == path {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Ancestors returns the nodes between the synthetic root and n, outermost
// first, excluding both.
func Ancestors(n *Node) []*Node {
	var out []*Node
	for p := n.Parent; p != nil && !p.IsRoot(); p = p.Parent {
		out = append([]*Node{p}, out...)
	}
	return out
}

// Line is one row of the flattened, visible tree.
type Line struct {
	Node  *Node
	Depth int
	// Notice is set for the informational row under a truncated sequence;
	// Node then points at that sequence.
	Notice bool
}

// Text returns the row text without indentation.
func (l Line) Text() string {
	if l.Notice {
		return l.Node.Notice()
	}
	return l.Node.Label
}

// Visible flattens the rows a user can currently see: every top-level node,
// and the children of expanded branches. A truncated sequence's notice row
// follows the sequence row whether or not it is expanded.
func Visible(root *Node) []Line {
	var lines []Line
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		for _, c := range n.Children {
			lines = append(lines, Line{Node: c, Depth: depth})
			if c.IsLeaf() {
				continue
			}
			if c.Truncated() {
				lines = append(lines, Line{Node: c, Depth: depth + 1, Notice: true})
			}
			if c.Expanded {
				visit(c, depth+1)
			}
		}
	}
	if root != nil {
		visit(root, 0)
	}
	return lines
}

// LineIndex returns the row index of path among lines, or -1.
func LineIndex(lines []Line, path string) int {
	for i, l := range lines {
		if !l.Notice && l.Node.Path == path {
			return i
		}
	}
	return -1
}
