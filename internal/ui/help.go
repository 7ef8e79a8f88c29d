package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// HelpModel renders the key binding overlay.
type HelpModel struct {
	Visible bool
	Title   string
	Width   int
}

// NewHelpModel returns a hidden overlay.
func NewHelpModel(title string) HelpModel {
	return HelpModel{Title: title, Width: 80}
}

// View renders the overlay, or "" when hidden.
func (h HelpModel) View(st Styles) string {
	if !h.Visible {
		return ""
	}
	keyWidth := 0
	for _, row := range helpRows {
		if w := runewidth.StringWidth(row[0]); w > keyWidth {
			keyWidth = w
		}
	}
	var b strings.Builder
	title := h.Title
	if title == "" {
		title = "Help"
	}
	b.WriteString(st.Header.Render(title + " keys"))
	b.WriteString("\n")
	for _, row := range helpRows {
		key := runewidth.FillRight(row[0], keyWidth)
		line := fmt.Sprintf("  %s  %s", st.HelpKey.Render(key), row[1])
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(st.Status.Render("  press ? or esc to close"))
	return b.String()
}
