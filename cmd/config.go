package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvwatch/internal/config"
	"github.com/oakwood-commons/kvwatch/internal/export"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
)

var configOutput string

// configCmd groups configuration-related subcommands similar to gh-style CLIs.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kvwatch configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the merged configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConfigGet(cmd)
	},
}

var configThemesCmd = &cobra.Command{
	Use:     "themes",
	Aliases: []string{"theme"},
	Short:   "List available themes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runThemesList(cmd)
	},
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in default configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := cmd.OutOrStdout().Write(config.DefaultYAML())
		return err
	},
}

func init() { //nolint:gochecknoinits
	configGetCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "output format: yaml|json")
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configThemesCmd)
	configCmd.AddCommand(configDefaultCmd)
}

func runConfigGet(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	format, err := export.ParseFormat(configOutput)
	if err != nil {
		return err
	}
	// Round-trip through the loader so JSON output keeps the YAML key order.
	v, err := loader.Load(raw, loader.FormatYAML)
	if err != nil {
		return err
	}
	text, err := export.Encode(v, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

func runThemesList(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, name := range cfg.ThemeNames() {
		marker := "  "
		if name == cfg.UI.Theme {
			marker = "* "
		}
		b.WriteString(marker + name + "\n")
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}
