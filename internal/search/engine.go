// Package search finds rendered tree nodes whose label contains a term and
// keeps a current-match cursor that survives tree rebuilds.
package search

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/kvwatch/internal/tree"
)

// Revealer persists expand state for the ancestors of a focused match.
type Revealer interface {
	Set(path string, expanded bool)
}

// Engine holds the match list for the active term. It is not safe for
// concurrent use; the owning session serializes access.
type Engine struct {
	reveal Revealer

	term    string
	folded  string
	matches []*tree.Node
	current int
	// currentPath outlives rebuilds so the cursor can be re-anchored.
	currentPath string
}

// New returns an engine that reveals matches through r. r may be nil.
func New(r Revealer) *Engine {
	return &Engine{reveal: r, current: -1}
}

// Search recomputes the match list for term against root. Matching is a
// case-insensitive substring test on each built node's label, in document
// order. The cursor stays on the previously current path when that path
// still matches, otherwise it moves to the first match. An empty term
// clears the matches and the remembered cursor.
func (e *Engine) Search(root *tree.Node, term string) []string {
	e.term = term
	e.folded = strings.ToLower(term)
	e.matches = nil
	e.current = -1

	if e.folded == "" {
		e.currentPath = ""
		return nil
	}

	tree.Walk(root, func(n *tree.Node) bool {
		if strings.Contains(strings.ToLower(n.Label), e.folded) {
			e.matches = append(e.matches, n)
		}
		return true
	})
	if len(e.matches) == 0 {
		return nil
	}

	idx := 0
	if e.currentPath != "" {
		for i, n := range e.matches {
			if n.Path == e.currentPath {
				idx = i
				break
			}
		}
	}
	e.focus(idx)
	return e.Matches()
}

// Reanchor re-runs the active term against a rebuilt tree.
func (e *Engine) Reanchor(root *tree.Node) {
	if e.term == "" {
		return
	}
	e.Search(root, e.term)
}

// Clear drops the term, the matches and the cursor.
func (e *Engine) Clear() {
	e.Search(nil, "")
}

// Next moves the cursor forward, wrapping to the first match.
func (e *Engine) Next() (string, bool) {
	if len(e.matches) == 0 {
		return "", false
	}
	e.focus((e.current + 1) % len(e.matches))
	return e.currentPath, true
}

// Previous moves the cursor backward, wrapping to the last match.
func (e *Engine) Previous() (string, bool) {
	if len(e.matches) == 0 {
		return "", false
	}
	n := len(e.matches)
	e.focus((e.current - 1 + n) % n)
	return e.currentPath, true
}

// Current returns the path of the current match.
func (e *Engine) Current() (string, bool) {
	if e.current < 0 || e.current >= len(e.matches) {
		return "", false
	}
	return e.matches[e.current].Path, true
}

// Index returns the cursor position, or -1 when there is no current match.
func (e *Engine) Index() int { return e.current }

// Term returns the active term as typed.
func (e *Engine) Term() string { return e.term }

// Active reports whether a non-empty term is set.
func (e *Engine) Active() bool { return e.term != "" }

// Matches returns the matching path keys in document order.
func (e *Engine) Matches() []string {
	out := make([]string, len(e.matches))
	for i, n := range e.matches {
		out[i] = n.Path
	}
	return out
}

// IsCurrent reports whether path is the current match.
func (e *Engine) IsCurrent(path string) bool {
	cur, ok := e.Current()
	return ok && cur == path
}

// Position returns the cursor index and the match count.
func (e *Engine) Position() (int, int) { return e.current, len(e.matches) }

// Counter renders the cursor as "k/n", or "0/0" without matches.
func (e *Engine) Counter() string {
	idx, total := e.Position()
	if total == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", idx+1, total)
}

// focus moves the cursor and forces every ancestor of the match open, both
// in the rendered tree and in the persisted expand state.
func (e *Engine) focus(i int) {
	e.current = i
	n := e.matches[i]
	e.currentPath = n.Path
	for _, a := range tree.Ancestors(n) {
		a.Expanded = true
		if e.reveal != nil {
			e.reveal.Set(a.Path, true)
		}
	}
}
