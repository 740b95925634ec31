package exec

import (
	"errors"
	"fmt"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
	"github.com/QuesmaOrg/demo-webr-ggplot/history"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// DefaultDataDir is the interpreter's working directory.
const DefaultDataDir = "/home/web_user"

// DefaultPackages are installed by Init when Options.DefaultPackages is nil.
var DefaultPackages = []string{"ggplot2", "dplyr", "ggrepel"}

// RunMode selects what happens when the session is already busy.
type RunMode string

// Run modes.
const (
	// RunModeQueue waits until the session is free.
	RunModeQueue RunMode = "queue"

	// RunModeReject fails with ErrBusy.
	RunModeReject RunMode = "reject"
)

// Errors returned by the notebook.
var (
	ErrSessionRequired  = errors.New("exec: Session is required")
	ErrBusy             = errors.New("exec: an evaluation is already running")
	ErrNotInitialized   = errors.New("exec: notebook not initialized")
	ErrInvalidName      = errors.New("exec: invalid file name")
	ErrVariableNotFound = errors.New("exec: variable not found")
	ErrNoSources        = errors.New("exec: no data sources configured")
	ErrInstall          = errors.New("exec: package installation failed")
)

// Logger is an optional interface for notebook events.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options configures a Notebook.
type Options struct {
	// Session is the interpreter session.
	// Required.
	Session runtime.Session

	// Executor options such as code.WithWidth or code.WithPlotClasses.
	// The notebook logger is passed to the executor unless an option here
	// sets one.
	Executor []code.Option

	// RunMode controls concurrent callers.
	// Default: RunModeQueue
	RunMode RunMode

	// DataDir is where uploaded files are written.
	// Default: DefaultDataDir
	DataDir string

	// Sources provides files for Fetch. Optional.
	Sources *datasource.Registry

	// History records every Run. Optional.
	History history.Recorder

	// Logger receives notebook events. Optional.
	Logger Logger

	// DefaultPackages are installed by Init.
	// Default: DefaultPackages; an empty non-nil slice installs nothing.
	DefaultPackages []string
}

// validate checks that required fields are set.
func (o *Options) validate() error {
	if o.Session == nil {
		return ErrSessionRequired
	}
	switch o.RunMode {
	case "", RunModeQueue, RunModeReject:
	default:
		return fmt.Errorf("%w: unknown run mode %q", code.ErrConfiguration, o.RunMode)
	}
	return nil
}

// applyDefaults sets default values for unset optional fields.
func (o *Options) applyDefaults() {
	if o.RunMode == "" {
		o.RunMode = RunModeQueue
	}
	if o.DataDir == "" {
		o.DataDir = DefaultDataDir
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	if o.DefaultPackages == nil {
		o.DefaultPackages = append([]string(nil), DefaultPackages...)
	}
}
