package ui

import (
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/kvwatch/internal/config"
)

// Styles holds the lipgloss styles for every UI element.
type Styles struct {
	Header       lipgloss.Style
	Key          lipgloss.Style
	Value        lipgloss.Style
	Glyph        lipgloss.Style
	Notice       lipgloss.Style
	Match        lipgloss.Style
	CurrentMatch lipgloss.Style
	Selected     lipgloss.Style
	Status       lipgloss.Style
	Error        lipgloss.Style
	HelpKey      lipgloss.Style
}

// NewStyles builds styles from a theme. With noColor every style is plain
// except the current match and selection, which fall back to reverse video
// so they stay visible.
func NewStyles(th config.Theme, noColor bool) Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return Styles{
			Header:       plain.Bold(true),
			Key:          plain,
			Value:        plain,
			Glyph:        plain,
			Notice:       plain.Italic(true),
			Match:        plain.Underline(true),
			CurrentMatch: plain.Reverse(true),
			Selected:     plain.Reverse(true),
			Status:       plain,
			Error:        plain.Bold(true),
			HelpKey:      plain.Bold(true),
		}
	}
	fg := func(c string) lipgloss.Style {
		s := lipgloss.NewStyle()
		if c != "" {
			s = s.Foreground(lipgloss.Color(c))
		}
		return s
	}
	current := fg(th.CurrentMatch).Bold(true)
	if th.CurrentMatchBg != "" {
		current = current.Background(lipgloss.Color(th.CurrentMatchBg))
	}
	selected := lipgloss.NewStyle()
	if th.SelectedBg != "" {
		selected = selected.Background(lipgloss.Color(th.SelectedBg))
	} else {
		selected = selected.Reverse(true)
	}
	return Styles{
		Header:       fg(th.Header).Bold(true),
		Key:          fg(th.Key),
		Value:        fg(th.Value),
		Glyph:        fg(th.Glyph),
		Notice:       fg(th.Notice).Italic(true),
		Match:        fg(th.Match).Bold(true),
		CurrentMatch: current,
		Selected:     selected,
		Status:       fg(th.Status),
		Error:        fg(th.Error).Bold(true),
		HelpKey:      fg(th.Key).Bold(true),
	}
}

// DefaultStyles uses the embedded dark theme.
func DefaultStyles(noColor bool) Styles {
	cfg, err := config.Default()
	if err != nil {
		return NewStyles(config.Theme{}, noColor)
	}
	th, _ := cfg.ActiveTheme()
	return NewStyles(th, noColor)
}
