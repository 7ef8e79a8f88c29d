// Package inspector holds the state of one inspection session: the last
// snapshot, the tree rendered from it, the expand state and the search
// cursor. All methods are safe for concurrent use.
package inspector

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvwatch/internal/export"
	"github.com/oakwood-commons/kvwatch/internal/expand"
	"github.com/oakwood-commons/kvwatch/internal/search"
	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/internal/tree"
)

// ErrNoSnapshot is returned by exports before the first successful rebuild.
var ErrNoSnapshot = errors.New("no snapshot loaded")

const (
	// LabelCollapseAll and LabelExpandAll name the next ToggleAll action.
	LabelCollapseAll = "Collapse All"
	LabelExpandAll   = "Expand All"

	supervisorKey  = "PlayerUnit"
	supervisorName = "Name"
)

// Session is the process-wide inspector state.
type Session struct {
	log      logr.Logger
	exporter *export.Exporter

	mu          sync.Mutex
	expand      *expand.Store
	search      *search.Engine
	root        *tree.Node
	cache       snapshot.Value
	loaded      bool
	allExpanded bool
	rebuilds    int
}

// New returns an empty session. A nil exporter exports JSON.
func New(exporter *export.Exporter, log logr.Logger) *Session {
	if exporter == nil {
		exporter = export.New(export.FormatJSON, nil)
	}
	store := expand.NewStore()
	return &Session{
		log:         log.WithName("inspector"),
		exporter:    exporter,
		expand:      store,
		search:      search.New(store),
		allExpanded: true,
	}
}

// Rebuild renders v and makes it the current snapshot. The excluded key is
// dropped from the top level before caching. On failure the previous tree,
// cache, expand state and matches are kept.
func (s *Session) Rebuild(v snapshot.Value) error {
	if v.Kind() == snapshot.Mapping {
		v = v.Without(tree.ExcludedKey)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// The new tree is built aside and swapped in only on success.
	root, err := tree.Build(v, s.expand)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	s.root = root
	s.cache = v
	s.loaded = true
	s.rebuilds++
	s.search.Reanchor(root)
	s.log.V(1).Info("rebuilt tree", "rebuild", s.rebuilds, "matches", len(s.search.Matches()), "expandKeys", s.expand.Len())
	return nil
}

// Loaded reports whether a snapshot has been rendered.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Snapshot returns the cached snapshot.
func (s *Session) Snapshot() (snapshot.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache, s.loaded
}

// Root returns the current tree. Nodes belong to the session; callers must
// only read them.
func (s *Session) Root() *tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Visible returns the rows currently shown.
func (s *Session) Visible() []tree.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.Visible(s.root)
}

// Render prints the current tree as ASCII.
func (s *Session) Render(opts tree.RenderOptions) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return ""
	}
	return tree.Render(s.root, opts)
}

// Toggle flips one branch and returns its new state. The rendered nodes are
// updated in place; no rebuild is needed. Every node sharing the path key
// follows the one stored entry, as a rebuild would.
func (s *Session) Toggle(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.expand.Toggle(path)
	for _, n := range tree.FindAll(s.root, path) {
		n.Expanded = open
	}
	return open
}

// ToggleAll expands or collapses every branch of the current tree and
// returns the label for the next call.
func (s *Session) ToggleAll() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allExpanded = !s.allExpanded
	s.expand.SetAll(tree.BranchPaths(s.root), s.allExpanded)
	tree.Walk(s.root, func(n *tree.Node) bool {
		if !n.IsLeaf() {
			n.Expanded = s.allExpanded
		}
		return true
	})
	return s.toggleAllLabel()
}

// ToggleAllLabel names the action ToggleAll will perform.
func (s *Session) ToggleAllLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleAllLabel()
}

func (s *Session) toggleAllLabel() string {
	if s.allExpanded {
		return LabelCollapseAll
	}
	return LabelExpandAll
}

// IsExpanded reports the stored state of a branch.
func (s *Session) IsExpanded(path string) bool {
	return s.expand.IsExpanded(path)
}

// Search sets the term and returns the matching paths.
func (s *Session) Search(term string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search.Search(s.root, term)
}

// ClearSearch drops the term and matches.
func (s *Session) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search.Clear()
}

// NextMatch moves to the next match and returns its path.
func (s *Session) NextMatch() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search.Next()
}

// PreviousMatch moves to the previous match and returns its path.
func (s *Session) PreviousMatch() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search.Previous()
}

// CurrentMatch returns the path of the current match.
func (s *Session) CurrentMatch() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search.Current()
}

// IsMatch reports whether path is in the match list.
func (s *Session) IsMatch(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.search.Matches() {
		if m == path {
			return true
		}
	}
	return false
}

// SearchTerm returns the active term.
func (s *Session) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search.Term()
}

// MatchCounter renders the cursor as "k/n".
func (s *Session) MatchCounter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search.Counter()
}

// ExportAll renders the whole cached snapshot.
func (s *Session) ExportAll() (string, error) {
	v, ok := s.Snapshot()
	if !ok {
		return "", ErrNoSnapshot
	}
	return s.exporter.All(v)
}

// ExportPath renders the cached subtree at path.
func (s *Session) ExportPath(path string) (string, error) {
	v, ok := s.Snapshot()
	if !ok {
		return "", ErrNoSnapshot
	}
	return s.exporter.Path(v, path)
}

// ExportExpression renders a CEL expression evaluated over the cache.
func (s *Session) ExportExpression(expr string) (string, error) {
	v, ok := s.Snapshot()
	if !ok {
		return "", ErrNoSnapshot
	}
	return s.exporter.Expression(v, expr)
}

// SupervisorName returns PlayerUnit.Name from the cache when it is a
// non-empty string.
func (s *Session) SupervisorName() (string, bool) {
	v, ok := s.Snapshot()
	if !ok {
		return "", false
	}
	name, err := snapshot.Lookup(v, supervisorKey+snapshot.PathSeparator+supervisorName)
	if err != nil || name.Kind() != snapshot.String || name.Text() == "" {
		return "", false
	}
	return name.Text(), true
}
