package tree

import (
	"github.com/xlab/treeprint"
)

const (
	GlyphExpanded  = "▼"
	GlyphCollapsed = "▶"
)

// RenderOptions controls ASCII tree output.
type RenderOptions struct {
	// NoValues prints leaf keys without their values.
	NoValues bool
	// MaxDepth limits tree depth (0 = unlimited).
	MaxDepth int
	// ShowCollapsed prints collapsed branches' children anyway.
	ShowCollapsed bool
	// Glyphs prefixes branches with the expand/collapse glyph.
	Glyphs bool
}

// Glyph returns the expand glyph for a branch, or "" for leaves.
func Glyph(n *Node) string {
	if n.IsLeaf() {
		return ""
	}
	if n.Expanded {
		return GlyphExpanded
	}
	return GlyphCollapsed
}

// Render prints the built tree as an ASCII tree for non-interactive output.
func Render(root *Node, opts RenderOptions) string {
	out := treeprint.New()
	renderChildren(out, root, opts, 0)
	return out.String()
}

func renderChildren(branch treeprint.Tree, n *Node, opts RenderOptions, depth int) {
	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		if len(n.Children) > 0 {
			branch.AddNode("...")
		}
		return
	}
	for _, c := range n.Children {
		if c.IsLeaf() {
			if opts.NoValues {
				branch.AddNode(c.Key)
			} else {
				branch.AddNode(c.Label)
			}
			continue
		}
		label := c.Label
		if opts.Glyphs {
			label = Glyph(c) + " " + label
		}
		if !c.Expanded && !opts.ShowCollapsed {
			if c.Truncated() {
				branch.AddBranch(label).AddNode(c.Notice())
			} else {
				branch.AddNode(label)
			}
			continue
		}
		child := branch.AddBranch(label)
		if c.Truncated() {
			child.AddNode(c.Notice())
		}
		renderChildren(child, c, opts, depth+1)
	}
}
