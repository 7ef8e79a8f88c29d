// Package tree turns one snapshot into a tree of display nodes addressed by
// path keys.
package tree

import (
	"errors"
	"fmt"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

const (
	// ExcludedKey is never traversed or rendered, at any depth.
	ExcludedKey = "CollisionGrid"
	// MaxSequenceChildren caps how many sequence elements become nodes.
	MaxSequenceChildren = 100
)

// ErrInvalidSnapshotShape is returned when the snapshot root is not a mapping.
var ErrInvalidSnapshotShape = errors.New("invalid snapshot shape")

// ExpandReader reports whether the branch at a path key is expanded.
type ExpandReader interface {
	IsExpanded(path string) bool
}

// Node is one rendered unit. The root returned by Build is synthetic: it has
// an empty path and holds the top-level fields as children.
type Node struct {
	Path     string
	Key      string
	Label    string
	Kind     snapshot.Kind
	Expanded bool
	Children []*Node
	Parent   *Node
	// Total is the element count of the underlying collection, which can
	// exceed len(Children) for truncated sequences.
	Total int
}

// IsLeaf reports whether the node renders a scalar.
func (n *Node) IsLeaf() bool {
	return n.Kind != snapshot.Mapping && n.Kind != snapshot.Sequence
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool { return n.Parent == nil }

// Truncated reports whether only the first MaxSequenceChildren elements of
// a sequence were built.
func (n *Node) Truncated() bool {
	return n.Kind == snapshot.Sequence && n.Total > len(n.Children)
}

// Notice returns the informational line shown for truncated sequences.
// It is never searched and has no path key.
func (n *Node) Notice() string {
	if !n.Truncated() {
		return ""
	}
	return fmt.Sprintf("Array with %d items", n.Total)
}

// Build walks root and returns the rendered tree. Children are built for
// collapsed branches too; state only decides each branch's Expanded flag.
// A nil state treats every branch as expanded.
func Build(root snapshot.Value, state ExpandReader) (*Node, error) {
	if root.Kind() != snapshot.Mapping {
		return nil, fmt.Errorf("%w: root is a %s, want a mapping", ErrInvalidSnapshotShape, root.Kind())
	}
	b := builder{state: state}
	top := &Node{Kind: snapshot.Mapping, Expanded: true, Total: root.Len()}
	b.mapping(top, root)
	return top, nil
}

type builder struct {
	state ExpandReader
}

func (b builder) expanded(path string) bool {
	if b.state == nil {
		return true
	}
	return b.state.IsExpanded(path)
}

func (b builder) mapping(parent *Node, v snapshot.Value) {
	for _, f := range v.Fields() {
		if f.Key == ExcludedKey {
			continue
		}
		parent.Children = append(parent.Children, b.node(parent, f.Key, f.Value))
	}
}

func (b builder) sequence(parent *Node, v snapshot.Value) {
	items := v.Items()
	if len(items) > MaxSequenceChildren {
		items = items[:MaxSequenceChildren]
	}
	for i, item := range items {
		parent.Children = append(parent.Children, b.node(parent, snapshot.IndexSegment(i), item))
	}
}

func (b builder) node(parent *Node, key string, v snapshot.Value) *Node {
	n := &Node{
		Path:   snapshot.JoinPath(parent.Path, key),
		Key:    key,
		Kind:   v.Kind(),
		Parent: parent,
		Total:  v.Len(),
	}
	switch v.Kind() {
	case snapshot.Mapping:
		n.Label = key
		n.Expanded = b.expanded(n.Path)
		b.mapping(n, v)
	case snapshot.Sequence:
		n.Label = key
		n.Expanded = b.expanded(n.Path)
		b.sequence(n, v)
	default:
		n.Label = key + ": " + v.Literal()
	}
	return n
}
