// Package config loads kvwatch settings from the embedded defaults, an
// optional user file and command-line overrides.
package config

import "time"

// Config is the merged configuration.
type Config struct {
	App     AppConfig     `yaml:"app" json:"app"`
	Source  SourceConfig  `yaml:"source" json:"source"`
	Refresh RefreshConfig `yaml:"refresh" json:"refresh"`
	Export  ExportConfig  `yaml:"export" json:"export"`
	UI      UIConfig      `yaml:"ui" json:"ui"`
}

// AppConfig describes the application in help output.
type AppConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// SourceConfig selects where snapshots come from. File wins over URL.
type SourceConfig struct {
	URL       string        `yaml:"url" json:"url"`
	Character string        `yaml:"character" json:"character"`
	File      string        `yaml:"file" json:"file"`
	Format    string        `yaml:"format" json:"format"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	Watch     bool          `yaml:"watch" json:"watch"`
}

// RefreshConfig controls the refresh timer.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// ExportConfig controls copy and export output.
type ExportConfig struct {
	Format string `yaml:"format" json:"format"`
}

// UIConfig controls the terminal UI.
type UIConfig struct {
	Theme   string           `yaml:"theme" json:"theme"`
	NoColor bool             `yaml:"no_color" json:"no_color"`
	Themes  map[string]Theme `yaml:"themes" json:"themes"`
}

// Theme holds lipgloss color strings for each UI element.
type Theme struct {
	Header         string `yaml:"header" json:"header"`
	Key            string `yaml:"key" json:"key"`
	Value          string `yaml:"value" json:"value"`
	Glyph          string `yaml:"glyph" json:"glyph"`
	Notice         string `yaml:"notice" json:"notice"`
	Match          string `yaml:"match" json:"match"`
	CurrentMatch   string `yaml:"current_match" json:"current_match"`
	CurrentMatchBg string `yaml:"current_match_bg" json:"current_match_bg"`
	SelectedBg     string `yaml:"selected_bg" json:"selected_bg"`
	Status         string `yaml:"status" json:"status"`
	Error          string `yaml:"error" json:"error"`
}

// ActiveTheme returns the selected theme.
func (c Config) ActiveTheme() (Theme, bool) {
	t, ok := c.UI.Themes[c.UI.Theme]
	return t, ok
}
