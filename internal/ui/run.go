package ui

import (
	"context"
	"errors"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"
	"golang.org/x/term"

	"github.com/oakwood-commons/kvwatch/internal/inspector"
	"github.com/oakwood-commons/kvwatch/internal/refresh"
	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

// RunOptions configures an interactive session.
type RunOptions struct {
	Session  *inspector.Session
	Source   refresh.Source
	Interval time.Duration
	// WatchFile, when set, triggers a fetch whenever the file is written.
	WatchFile string
	Styles    Styles
	AppName   string
	Character string
	StartKeys []string
	// Width and Height force a window size; 0 auto-detects.
	Width  int
	Height int
	Log    logr.Logger
	// ProgramOptions are passed to tea.NewProgram (custom IO in tests).
	ProgramOptions []tea.ProgramOption
}

// Run shows the inspector until the user quits or ctx is cancelled. Fetched
// snapshots and fetch failures reach the model as messages, so all session
// mutation happens inside Update.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Session == nil || opts.Source == nil {
		return errors.New("ui: session and source are required")
	}
	log := opts.Log.WithName("ui")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var prog *tea.Program
	sink := refresh.SinkFuncs{
		OnApply: func(v snapshot.Value) { prog.Send(SnapshotMsg{Value: v, At: time.Now()}) },
		OnFail:  func(err error) { prog.Send(FetchErrorMsg{Err: err}) },
	}
	ctrl := refresh.New(opts.Source, sink, opts.Log)

	m := NewModel(opts.Session, ctrl, opts.Styles)
	m.AppName = opts.AppName
	m.Character = opts.Character

	progOpts := append([]tea.ProgramOption{tea.WithContext(ctx)}, opts.ProgramOptions...)
	if opts.Width > 0 || opts.Height > 0 {
		w, h := windowSize(opts.Width, opts.Height)
		m.Width, m.Height = w, h
		progOpts = append(progOpts, tea.WithWindowSize(w, h))
	}
	if len(opts.StartKeys) > 0 {
		if opts.Session.Loaded() {
			ApplyStartupKeys(m, opts.StartKeys)
		} else {
			m.DeferStartupKeys(opts.StartKeys)
		}
	}
	prog = tea.NewProgram(m, progOpts...)

	if err := ctrl.Start(ctx, opts.Interval); err != nil {
		return err
	}
	defer ctrl.Stop()
	if opts.WatchFile != "" {
		if err := ctrl.Watch(ctx, opts.WatchFile); err != nil {
			log.Error(err, "file watch disabled", "path", opts.WatchFile)
		}
	}

	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// windowSize fills a zero dimension from the terminal, then from 80x24.
func windowSize(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if width <= 0 {
				width = w
			}
			if height <= 0 {
				height = h
			}
		}
	}
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	return width, height
}
