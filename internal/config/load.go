package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// AppName names the config directory and the binary.
const AppName = "kvwatch"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultYAML returns a copy of the embedded default config.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Default decodes the embedded defaults.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, fmt.Errorf("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// ResolvePath returns explicit when set, otherwise the XDG location
// ($XDG_CONFIG_HOME/kvwatch/config.yaml or ~/.config/kvwatch/config.yaml)
// if a file exists there, otherwise "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := ""
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate = filepath.Join(xdg, AppName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", AppName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// Load merges the user file at path (if any) over the defaults. Keys absent
// from the user file keep their default; a theme named in both is merged
// color by color.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return merge(cfg, data)
}

func merge(base Config, data []byte) (Config, error) {
	if strings.TrimSpace(string(data)) == "" {
		return base, nil
	}
	themes := make(map[string]Theme, len(base.UI.Themes))
	for name, t := range base.UI.Themes {
		themes[name] = t
	}

	// yaml.v3 only assigns keys present in the document, so decoding over
	// the defaults overlays them. Map entries are decoded fresh.
	cfg := base
	cfg.UI.Themes = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("decode config: %w", err)
	}
	for name, override := range cfg.UI.Themes {
		themes[name] = mergeTheme(themes[name], override)
	}
	cfg.UI.Themes = themes
	return cfg, nil
}

func mergeTheme(base, override Theme) Theme {
	pick := func(b, o string) string {
		if o != "" {
			return o
		}
		return b
	}
	return Theme{
		Header:         pick(base.Header, override.Header),
		Key:            pick(base.Key, override.Key),
		Value:          pick(base.Value, override.Value),
		Glyph:          pick(base.Glyph, override.Glyph),
		Notice:         pick(base.Notice, override.Notice),
		Match:          pick(base.Match, override.Match),
		CurrentMatch:   pick(base.CurrentMatch, override.CurrentMatch),
		CurrentMatchBg: pick(base.CurrentMatchBg, override.CurrentMatchBg),
		SelectedBg:     pick(base.SelectedBg, override.SelectedBg),
		Status:         pick(base.Status, override.Status),
		Error:          pick(base.Error, override.Error),
	}
}

// Validate checks values that would otherwise fail at runtime.
func (c Config) Validate() error {
	var errs []error
	if c.Refresh.Interval <= 0 {
		errs = append(errs, fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("source.timeout must be positive, got %s", c.Source.Timeout))
	}
	if c.Source.File == "" && strings.TrimSpace(c.Source.URL) == "" {
		errs = append(errs, errors.New("one of source.url or source.file is required"))
	}
	switch strings.ToLower(c.Source.Format) {
	case "", "auto", "json", "yaml", "yml", "toml":
	default:
		errs = append(errs, fmt.Errorf("source.format %q: valid values are auto, json, yaml, toml", c.Source.Format))
	}
	switch strings.ToLower(c.Export.Format) {
	case "", "json", "yaml", "yml":
	default:
		errs = append(errs, fmt.Errorf("export.format %q: valid values are json, yaml", c.Export.Format))
	}
	if _, ok := c.ActiveTheme(); !ok {
		errs = append(errs, fmt.Errorf("ui.theme %q is not defined", c.UI.Theme))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// ThemeNames lists the defined themes in order.
func (c Config) ThemeNames() []string {
	names := make([]string, 0, len(c.UI.Themes))
	for name := range c.UI.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
