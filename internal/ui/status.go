package ui

import (
	"github.com/mattn/go-runewidth"
)

// StatusKind selects the status line style.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusError
)

// StatusModel is the one-line message under the tree.
type StatusModel struct {
	Text string
	Kind StatusKind
	// id ties a timed clear to the message that scheduled it.
	id int
}

// Set replaces the message and returns the id a clear must carry.
func (s *StatusModel) Set(text string, kind StatusKind) int {
	s.id++
	s.Text = text
	s.Kind = kind
	return s.id
}

// Clear drops the message when id still names it.
func (s *StatusModel) Clear(id int) {
	if id == s.id {
		s.Text = ""
		s.Kind = StatusInfo
	}
}

// View renders the message truncated to width.
func (s StatusModel) View(st Styles, width int) string {
	if s.Text == "" {
		return ""
	}
	text := s.Text
	if width > 0 {
		text = runewidth.Truncate(text, width, "...")
	}
	if s.Kind == StatusError {
		return st.Error.Render(text)
	}
	return st.Status.Render(text)
}
