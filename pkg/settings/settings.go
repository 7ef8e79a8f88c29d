// Package settings provides build metadata, per-run options and context
// helpers used across the kvwatch CLI.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "kvwatch"

// VersionInformation is populated at build time via ldflags and holds the
// commit hash, semantic version, and build timestamp of the running binary.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build, including the commit hash,
// build version, and build timestamp.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the options of a single invocation that are decided before any
// subcommand runs.
type Run struct {
	MinLogLevel int8
	ConfigPath  string
	LogFile     string
	NoColor     bool
	// Interactive is false when output is a pipe or a one-shot render was
	// requested; logs may then go to standard error.
	Interactive bool
}

// NewCliParams returns the defaults for a CLI run: info logging, color on,
// interactive.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		NoColor:     false,
		Interactive: true,
	}
}

// LogToStderr reports whether log entries may be written to standard error
// without corrupting the terminal UI.
func (r *Run) LogToStderr() bool {
	return r.LogFile == "" && !r.Interactive
}
