package tree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvwatch/internal/expand"
	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
)

func load(t *testing.T, doc string) snapshot.Value {
	t.Helper()
	v, err := loader.Load([]byte(doc), loader.FormatJSON)
	require.NoError(t, err)
	return v
}

func hugeGrid(n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = "[0,1,0,1]"
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func TestBuildPlayerUnitScenario(t *testing.T) {
	root, err := Build(load(t, `{"PlayerUnit":{"Name":"Hero","Life":100},"CollisionGrid":`+hugeGrid(500)+`}`), expand.NewStore())
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	player := root.Children[0]
	assert.Equal(t, "PlayerUnit", player.Path)
	assert.Equal(t, "PlayerUnit", player.Label)
	assert.False(t, player.IsLeaf())
	assert.True(t, player.Expanded)

	require.Len(t, player.Children, 2)
	assert.Equal(t, `Name: "Hero"`, player.Children[0].Label)
	assert.Equal(t, "PlayerUnit.Name", player.Children[0].Path)
	assert.Equal(t, "Life: 100", player.Children[1].Label)
	assert.Equal(t, "PlayerUnit.Life", player.Children[1].Path)
	assert.Same(t, player, player.Children[1].Parent)
}

func TestBuildSkipsExcludedKeyAtEveryDepth(t *testing.T) {
	doc := `{"a":{"CollisionGrid":{"x":1},"b":[{"CollisionGrid":[1,2],"c":"CollisionGrid"}]},"CollisionGrid":null}`
	root, err := Build(load(t, doc), nil)
	require.NoError(t, err)

	for _, p := range Paths(root) {
		assert.NotContains(t, p, ExcludedKey)
	}
	assert.Equal(t, []string{"a", "a.b", "a.b.0", "a.b.0.c"}, Paths(root))
	// Values may still mention the key; only the key itself is excluded.
	assert.Equal(t, `c: "CollisionGrid"`, Find(root, "a.b.0.c").Label)
}

func TestBuildTruncatesLongSequences(t *testing.T) {
	items := make([]string, 150)
	for i := range items {
		items[i] = `{"id":7}`
	}
	root, err := Build(load(t, `{"Items":[`+strings.Join(items, ",")+`]}`), nil)
	require.NoError(t, err)

	seq := root.Children[0]
	assert.Equal(t, snapshot.Sequence, seq.Kind)
	assert.Len(t, seq.Children, MaxSequenceChildren)
	assert.Equal(t, 150, seq.Total)
	assert.True(t, seq.Truncated())
	assert.Equal(t, "Array with 150 items", seq.Notice())
	assert.Equal(t, "Items.99", seq.Children[99].Path)
	assert.Nil(t, Find(root, "Items.100"))
}

func TestBuildExactlyAtThresholdIsNotTruncated(t *testing.T) {
	items := make([]string, MaxSequenceChildren)
	for i := range items {
		items[i] = fmt.Sprint(i)
	}
	root, err := Build(load(t, `{"Items":[`+strings.Join(items, ",")+`]}`), nil)
	require.NoError(t, err)
	seq := root.Children[0]
	assert.False(t, seq.Truncated())
	assert.Empty(t, seq.Notice())
	assert.Equal(t, "99: 99", seq.Children[99].Label)
}

func TestBuildRejectsNonMappingRoot(t *testing.T) {
	for _, doc := range []string{`[1,2]`, `42`, `"text"`, `null`} {
		_, err := Build(load(t, doc), nil)
		require.ErrorIs(t, err, ErrInvalidSnapshotShape, doc)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	doc := `{"z":{"y":[1,{"x":true}],"w":null},"a":"b"}`
	state := expand.NewStore()
	state.Set("z.y", false)

	first, err := Build(load(t, doc), state)
	require.NoError(t, err)
	second, err := Build(load(t, doc), state)
	require.NoError(t, err)

	assert.Equal(t, Paths(first), Paths(second))
	var labels1, labels2 []string
	Walk(first, func(n *Node) bool { labels1 = append(labels1, n.Label); return true })
	Walk(second, func(n *Node) bool { labels2 = append(labels2, n.Label); return true })
	assert.Equal(t, labels1, labels2)
	assert.Equal(t, []string{"z", "z.y", "z.y.0", "z.y.1", "z.y.1.x", "z.w", "a"}, Paths(first))
}

func TestBuildHonorsExpandState(t *testing.T) {
	doc := `{"a":{"b":{"c":1}},"d":[1]}`
	state := expand.NewStore()
	keys := []string{"a", "a.b", "d"}
	state.SetAll(keys, false)

	root, err := Build(load(t, doc), state)
	require.NoError(t, err)
	for _, k := range keys {
		n := Find(root, k)
		require.NotNil(t, n, k)
		assert.False(t, n.Expanded, k)
	}
	// Collapsed branches still carry their children.
	assert.Len(t, Find(root, "a.b").Children, 1)
	// Only top-level rows are visible.
	lines := Visible(root)
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].Node.Path)
	assert.Equal(t, "d", lines[1].Node.Path)
}

func TestBuildDoesNotMutateInputs(t *testing.T) {
	v := load(t, `{"a":{"CollisionGrid":1,"b":2}}`)
	before := v.Literal()
	state := expand.NewStore()
	_, err := Build(v, state)
	require.NoError(t, err)
	assert.Equal(t, before, v.Literal())
	assert.Equal(t, 0, state.Len())
}

func TestVisibleIncludesNoticeRows(t *testing.T) {
	items := make([]string, 101)
	for i := range items {
		items[i] = "0"
	}
	root, err := Build(load(t, `{"List":[`+strings.Join(items, ",")+`],"After":true}`), nil)
	require.NoError(t, err)

	lines := Visible(root)
	// List, notice, 100 children, After.
	require.Len(t, lines, 103)
	assert.True(t, lines[1].Notice)
	assert.Equal(t, "Array with 101 items", lines[1].Text())
	assert.Equal(t, 1, lines[1].Depth)
	assert.Equal(t, "List.0", lines[2].Node.Path)
	assert.Equal(t, "After: true", lines[102].Text())
	assert.Equal(t, 102, LineIndex(lines, "After"))
	assert.Equal(t, -1, LineIndex(lines, "missing"))
}

func TestAncestors(t *testing.T) {
	root, err := Build(load(t, `{"a":{"b":[{"c":1}]}}`), nil)
	require.NoError(t, err)
	n := Find(root, "a.b.0.c")
	require.NotNil(t, n)
	var got []string
	for _, a := range Ancestors(n) {
		got = append(got, a.Path)
	}
	assert.Equal(t, []string{"a", "a.b", "a.b.0"}, got)
	assert.Empty(t, Ancestors(Find(root, "a")))
}

func TestFindAllReturnsNodesSharingAPathKey(t *testing.T) {
	root, err := Build(load(t, `{"a.b":{"x":1},"a":{"b":{"y":2}}}`), nil)
	require.NoError(t, err)

	nodes := FindAll(root, "a.b")
	require.Len(t, nodes, 2)
	assert.Equal(t, "", nodes[0].Parent.Path)
	assert.Equal(t, "a", nodes[1].Parent.Path)
	assert.Same(t, nodes[0], Find(root, "a.b"))

	assert.Empty(t, FindAll(root, "missing"))
	assert.Equal(t, []*Node{root}, FindAll(root, ""))
}

func TestBranchPaths(t *testing.T) {
	root, err := Build(load(t, `{"a":{"b":1,"c":[]},"d":2}`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.c"}, BranchPaths(root))
}

func TestRender(t *testing.T) {
	state := expand.NewStore()
	state.Set("Stash", false)
	root, err := Build(load(t, `{"PlayerUnit":{"Name":"Hero","Life":100},"Stash":{"Gold":5}}`), state)
	require.NoError(t, err)

	out := Render(root, RenderOptions{Glyphs: true})
	assert.Contains(t, out, "▼ PlayerUnit")
	assert.Contains(t, out, `Name: "Hero"`)
	assert.Contains(t, out, "▶ Stash")
	assert.NotContains(t, out, "Gold")

	all := Render(root, RenderOptions{ShowCollapsed: true, NoValues: true})
	assert.Contains(t, all, "Gold")
	assert.NotContains(t, all, "100")

	shallow := Render(root, RenderOptions{MaxDepth: 1, ShowCollapsed: true})
	assert.Contains(t, shallow, "...")
	assert.NotContains(t, shallow, "Life")
}
