package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/kvwatch/internal/source"
	"github.com/oakwood-commons/kvwatch/pkg/loader"
	"github.com/oakwood-commons/kvwatch/pkg/logger"
)

var (
	serveAddr   string
	serveFormat string

	// serveReady is called with the bound address; tests use it to find
	// an ephemeral port.
	serveReady = func(addr string) {}
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve FILE",
	Short: "Serve a snapshot file as " + source.DebugDataPath + " for local testing",
	Long: `serve answers GET ` + source.DebugDataPath + `?characterName=<id> with the contents of FILE
as JSON, re-reading it on every request. Requests without characterName get
400 "Character name is required"; an unreadable file gets 500.`,
	Example: "  kvwatch serve testdata/player.json --addr :8087",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args[0])
	},
}

func init() { //nolint:gochecknoinits
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8087", "listen address")
	serveCmd.Flags().StringVar(&serveFormat, "format", "", "input format of FILE: auto|json|yaml|toml")
}

func runServe(cmd *cobra.Command, path string) error {
	log := *logger.FromContext(rootCtx)
	format, err := loader.ParseFormat(serveFormat)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           source.NewHandler(source.NewFile(path, format), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	addr := ln.Addr().String()
	log.Info("serving snapshot", logger.SourceKey, path, "addr", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "serving %s at http://%s%s\n", path, addr, source.DebugDataPath)
	serveReady(addr)

	select {
	case err := <-errc:
		return err
	case <-rootCtx.Done():
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
