package ui

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenSegments(t *testing.T) {
	tests := []struct {
		token string
		want  []tokenSegment
	}{
		{token: "abc", want: []tokenSegment{{text: "abc"}}},
		{token: "<F1>", want: []tokenSegment{{text: "<F1>", isVimKey: true}}},
		{token: "/life<CR>", want: []tokenSegment{{text: "/life"}, {text: "<CR>", isVimKey: true}}},
		{token: "<Esc>x<Space>", want: []tokenSegment{{text: "<Esc>", isVimKey: true}, {text: "x"}, {text: "<Space>", isVimKey: true}}},
		{token: "a<b", want: []tokenSegment{{text: "a"}, {text: "<b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTokenSegments(tt.token))
		})
	}
}

func TestKeyMsgsFromToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{token: "<Esc>", want: "esc", ok: true},
		{token: "<cr>", want: "enter", ok: true},
		{token: "<Space>", want: "space", ok: true},
		{token: "<BS>", want: "backspace", ok: true},
		{token: "<Down>", want: "down", ok: true},
		{token: "<F1>", want: "f1", ok: true},
		{token: "<F12>", want: "f12", ok: true},
		{token: "<C-c>", want: "ctrl+c", ok: true},
		{token: "<PgDn>", want: "pgdown", ok: true},
		{token: "<nope>"},
		{token: "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			msgs, ok := keyMsgsFromToken(tt.token)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.want, msgs[0].String())
		})
	}
}

func TestStartupKeysDriveModel(t *testing.T) {
	m, _, _ := newTestModel(t, playerDoc)
	ApplyStartupKeys(m, []string{"/life<CR>", "", `\?`})
	assert.Equal(t, "life", m.Session.SearchTerm())
	assert.Equal(t, ModeTree, m.Mode)
	assert.True(t, m.Help.Visible)

	ApplyStartupKeys(nil, []string{"q"})
}

func TestDeferredStartupKeysWaitForFirstSnapshot(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m.DeferStartupKeys([]string{"jjj", "<Space>"})
	assert.Equal(t, 0, m.Cursor)

	m.Update(SnapshotMsg{Value: doc(t, `[1,2]`)})
	require.Error(t, m.ShapeErr)
	assert.Len(t, m.pendingKeys, 2, "a rejected snapshot leaves keys queued")

	m.Update(SnapshotMsg{Value: doc(t, playerDoc)})
	assert.Equal(t, "PlayerUnit.Stats", m.SelectedPath())
	assert.False(t, m.Session.IsExpanded("PlayerUnit.Stats"))
	assert.Empty(t, m.pendingKeys)

	m.Update(SnapshotMsg{Value: doc(t, playerDoc)})
	assert.False(t, m.Session.IsExpanded("PlayerUnit.Stats"), "keys are applied once")
}

func TestCtrlCQuitsFromEveryMode(t *testing.T) {
	for _, setup := range []string{"", "/", "i", "?"} {
		m, _, _ := newTestModel(t, playerDoc)
		if setup != "" {
			ApplyStartupKeys(m, []string{setup})
		}
		_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
		require.NotNil(t, cmd, setup)
		assert.IsType(t, tea.QuitMsg{}, cmd(), setup)
	}
}

func TestRunRequiresSessionAndSource(t *testing.T) {
	err := Run(context.Background(), RunOptions{})
	assert.Error(t, err)
}

func TestWindowSizeFallback(t *testing.T) {
	w, h := windowSize(120, 40)
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, h)
}
