package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvwatch/internal/config"
	"github.com/oakwood-commons/kvwatch/internal/export"
	"github.com/oakwood-commons/kvwatch/internal/inspector"
	"github.com/oakwood-commons/kvwatch/internal/refresh"
	"github.com/oakwood-commons/kvwatch/internal/snapshot"
	"github.com/oakwood-commons/kvwatch/internal/source"
	"github.com/oakwood-commons/kvwatch/internal/tree"
	"github.com/oakwood-commons/kvwatch/internal/ui"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
	"github.com/oakwood-commons/kvwatch/pkg/logger"
	"github.com/oakwood-commons/kvwatch/pkg/settings"
)

var (
	configFile string
	debug      bool
	logFile    string
	noColor    bool

	// source flags, shared by the root and export commands
	sourceURL    string
	character    string
	sourceFile   string
	sourceFormat string
	timeout      time.Duration

	interval       time.Duration
	themeName      string
	output         string
	noWatch        bool
	renderSnapshot bool
	startKeys      []string
	snapshotWidth  int
	snapshotHeight int
)

var (
	rootCtx     = context.Background()
	runSettings = settings.NewCliParams()

	stdoutIsPiped = func() bool { stat, _ := os.Stdout.Stat(); return (stat.Mode() & os.ModeCharDevice) == 0 }
	openLogFile   = func(path string) (io.Writer, error) {
		return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}
	// runInteractive starts the terminal UI; tests replace it.
	runInteractive = ui.Run
)

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName + " [file]",
	Short: "Live inspector for hierarchical debug data",
	Long: `kvwatch polls a debug endpoint (or re-reads a file) and shows the snapshot
as a collapsible tree that refreshes in place. Expanded branches, the search
term and the current match survive every refresh.`,
	Example: "\n  kvwatch --url http://localhost:8087 --character nullref\n  kvwatch state.json\n  kvwatch state.yaml -o tree\n  kvwatch --url http://localhost:8087 --snapshot --press '/life<CR>'\n",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			// Set marks the flag changed so the file wins over the config.
			if err := cmd.Flags().Set("file", args[0]); err != nil {
				return fmt.Errorf("source file %q: %w", args[0], err)
			}
		}
		return runInspect(cmd)
	},
	SilenceUsage: true,
}

// rootPersistentPreRunE is assigned in init: it compares against rootCmd,
// which would otherwise make rootCmd's initializer refer to itself.
func rootPersistentPreRunE(cmd *cobra.Command, _ []string) error {
	runSettings = settings.NewCliParams()
	runSettings.NoColor = noColor
	runSettings.LogFile = logFile
	runSettings.ConfigPath = config.ResolvePath(configFile)
	runSettings.Interactive = cmd == rootCmd && output == "" && !renderSnapshot && !stdoutIsPiped()
	if debug {
		runSettings.MinLogLevel = -1
	}

	var opts []logger.Option
	switch {
	case logFile != "":
		w, err := openLogFile(logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		opts = append(opts, logger.WithOutput(w))
	case !runSettings.LogToStderr():
		opts = append(opts, logger.WithOutput(io.Discard))
	}
	lgr := logger.Get(runSettings.MinLogLevel, opts...)
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	rootCtx = logger.WithLogger(settings.IntoContext(base, runSettings), lgr)
	return nil
}

func init() { //nolint:gochecknoinits
	rootCmd.PersistentPreRunE = rootPersistentPreRunE

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/kvwatch/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "log at debug level")
	pf.StringVar(&logFile, "log-file", "", "append JSON logs to this file (the interactive UI logs nowhere otherwise)")
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.StringVar(&sourceURL, "url", "", "base URL of the debug endpoint (default from config)")
	pf.StringVar(&character, "character", "", "character id sent as characterName (default $"+source.CharacterEnv+" or "+source.DefaultCharacter+")")
	pf.StringVar(&sourceFile, "file", "", "read snapshots from this JSON, YAML or TOML file instead of the endpoint")
	pf.StringVar(&sourceFormat, "format", "", "input format of --file: auto|json|yaml|toml")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout (default from config)")

	f := rootCmd.Flags()
	f.DurationVar(&interval, "interval", 0, "refresh interval (default from config)")
	f.StringVar(&themeName, "theme", "", "theme name (see 'kvwatch config themes')")
	f.StringVarP(&output, "output", "o", "", "print one snapshot and exit: tree|json|yaml")
	f.BoolVar(&noWatch, "no-watch", false, "do not refresh when --file changes on disk")
	f.BoolVar(&renderSnapshot, "snapshot", false, "render a single UI frame and exit; honors --width/--height and --press")
	f.StringArrayVar(&startKeys, "press", nil, "simulate keys on startup, applied once the first snapshot is shown. Use <Key> for special keys (e.g. <CR>, <Esc>, <F1>); literal text types normally")
	f.IntVar(&snapshotWidth, "width", 0, "UI width in columns (0 = terminal width)")
	f.IntVar(&snapshotHeight, "height", 0, "UI height in rows (0 = terminal height)")

	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig merges defaults, the config file and changed flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(runSettings.ConfigPath)
	if err != nil {
		return cfg, err
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("url") {
		cfg.Source.URL = sourceURL
		cfg.Source.File = ""
	}
	if changed("character") {
		cfg.Source.Character = character
	}
	if changed("file") {
		cfg.Source.File = sourceFile
	}
	if changed("format") {
		cfg.Source.Format = sourceFormat
	}
	if changed("timeout") {
		cfg.Source.Timeout = timeout
	}
	if changed("interval") {
		cfg.Refresh.Interval = interval
	}
	if changed("theme") {
		cfg.UI.Theme = themeName
	}
	if changed("no-watch") {
		cfg.Source.Watch = !noWatch
	}
	if noColor {
		cfg.UI.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// sourceFromConfig builds the snapshot source. A file wins over the URL.
func sourceFromConfig(cfg config.Config, log logr.Logger) (refresh.Source, string, error) {
	if cfg.Source.File != "" {
		format, err := loader.ParseFormat(cfg.Source.Format)
		if err != nil {
			return nil, "", err
		}
		return source.NewFile(cfg.Source.File, format), "", nil
	}
	who := source.ResolveCharacter(cfg.Source.Character)
	h, err := source.NewHTTP(cfg.Source.URL, who, cfg.Source.Timeout, log)
	if err != nil {
		return nil, "", err
	}
	return h, who, nil
}

func newSession(cfg config.Config, log logr.Logger) (*inspector.Session, error) {
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return nil, err
	}
	return inspector.New(export.New(format, nil), log), nil
}

// fetchOnce loads one snapshot for the non-interactive modes.
func fetchOnce(ctx context.Context, src refresh.Source, limit time.Duration) (fetched, error) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()
	v, err := src.Fetch(ctx)
	if err != nil {
		return fetched{}, &refresh.FetchError{Seq: 1, Err: err}
	}
	return fetched{value: v, at: time.Now()}, nil
}

func runInspect(cmd *cobra.Command) error {
	log := *logger.FromContext(rootCtx)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	src, who, err := sourceFromConfig(cfg, log)
	if err != nil {
		return err
	}
	session, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	th, _ := cfg.ActiveTheme()
	styles := ui.NewStyles(th, cfg.UI.NoColor)
	out := cmd.OutOrStdout()

	switch {
	case output != "":
		snap, err := fetchOnce(rootCtx, src, cfg.Source.Timeout)
		if err != nil {
			return err
		}
		if err := session.Rebuild(snap.value); err != nil {
			return err
		}
		text, err := renderOutput(session, output)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, text)
		return err

	case renderSnapshot:
		m := ui.NewModel(session, staticInterval(cfg.Refresh.Interval), styles)
		m.AppName = cfg.App.Name
		m.Character = who
		m.Copy = func(string) error { return nil }
		w, h := snapshotWidth, snapshotHeight
		if w <= 0 {
			w = 80
		}
		if h <= 0 {
			h = 24
		}
		m.Update(tea.WindowSizeMsg{Width: w, Height: h})
		snap, err := fetchOnce(rootCtx, src, cfg.Source.Timeout)
		if err != nil {
			m.Update(ui.FetchErrorMsg{Err: err})
		} else {
			m.Update(ui.SnapshotMsg{Value: snap.value, At: snap.at})
		}
		ui.ApplyStartupKeys(m, startKeys)
		_, err = fmt.Fprintln(out, m.Render())
		return err
	}

	log.V(1).Info("starting inspector", logger.SourceKey, describeSource(cfg, who), "interval", cfg.Refresh.Interval.String())
	watch := ""
	if cfg.Source.File != "" && cfg.Source.Watch {
		watch = cfg.Source.File
	}
	err = runInteractive(rootCtx, ui.RunOptions{
		Session:   session,
		Source:    src,
		Interval:  cfg.Refresh.Interval,
		WatchFile: watch,
		Styles:    styles,
		AppName:   cfg.App.Name,
		Character: who,
		StartKeys: startKeys,
		Width:     snapshotWidth,
		Height:    snapshotHeight,
		Log:       log,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func renderOutput(session *inspector.Session, format string) (string, error) {
	switch strings.ToLower(format) {
	case "tree":
		return strings.TrimRight(session.Render(tree.RenderOptions{ShowCollapsed: true}), "\n"), nil
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", fmt.Errorf("output %q: valid values are tree, json, yaml", format)
	}
	v, _ := session.Snapshot()
	return export.Encode(v, f)
}

func describeSource(cfg config.Config, who string) string {
	if cfg.Source.File != "" {
		return cfg.Source.File
	}
	return cfg.Source.URL + " (" + who + ")"
}

type fetched struct {
	value snapshot.Value
	at    time.Time
}

// staticInterval reports a fixed interval for single-frame renders.
type staticInterval time.Duration

func (s staticInterval) SetInterval(time.Duration) error { return nil }
func (s staticInterval) Interval() time.Duration         { return time.Duration(s) }
func (s staticInterval) Trigger()                        {}
