package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvwatch/internal/export"
	"github.com/oakwood-commons/kvwatch/internal/inspector"
	"github.com/oakwood-commons/kvwatch/pkg/logger"
)

var (
	exportPath       string
	exportExpression string
	exportFormat     string
	exportClipboard  bool

	// copyToClipboard is replaced in tests.
	copyToClipboard = export.Clipboard
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch one snapshot and print it, a subtree or a CEL expression",
	Example: `  kvwatch export --path PlayerUnit.Life
  kvwatch export --expression '_.PlayerUnit.Life * 2' --output-format yaml
  kvwatch export --file state.json --clipboard`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runExport(cmd)
	},
}

func init() { //nolint:gochecknoinits
	f := exportCmd.Flags()
	f.StringVar(&exportPath, "path", "", "dotted path of the subtree to export (e.g. PlayerUnit.Life)")
	f.StringVarP(&exportExpression, "expression", "e", "", "CEL expression over the snapshot, with '_' as the root")
	f.StringVar(&exportFormat, "output-format", "", "json|yaml (default from config)")
	f.BoolVar(&exportClipboard, "clipboard", false, "copy the result to the clipboard instead of printing it")
	exportCmd.MarkFlagsMutuallyExclusive("path", "expression")
}

func runExport(cmd *cobra.Command) error {
	log := *logger.FromContext(rootCtx)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output-format") {
		cfg.Export.Format = exportFormat
	}
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}
	src, _, err := sourceFromConfig(cfg, log)
	if err != nil {
		return err
	}
	snap, err := fetchOnce(rootCtx, src, cfg.Source.Timeout)
	if err != nil {
		return err
	}
	session := inspector.New(export.New(format, nil), log)
	if err := session.Rebuild(snap.value); err != nil {
		return err
	}

	var text string
	switch {
	case exportExpression != "":
		text, err = session.ExportExpression(exportExpression)
	case exportPath != "":
		text, err = session.ExportPath(exportPath)
	default:
		text, err = session.ExportAll()
	}
	if err != nil {
		return err
	}
	if exportClipboard {
		if err := copyToClipboard(text); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.ErrOrStderr(), "Copied!")
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
