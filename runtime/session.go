package runtime

import (
	"context"
	"time"
)

// Session is one live interpreter session.
//
// Contract:
// - Concurrency: callers serialize access; implementations need not be safe for concurrent evaluation.
// - Context: transport-bound methods honor cancellation; the interpreter itself may not be interruptible.
// - Errors: interpreter-raised errors are returned as *EvalError; transport errors wrap backend sentinels.
// - Ownership: handles stay valid for the lifetime of the session.
type Session interface {
	// Init establishes the session and reports version metadata.
	Init(ctx context.Context) (VersionInfo, error)

	// Capture evaluates code and collects its output according to opts.
	Capture(ctx context.Context, code string, opts CaptureOptions) (CaptureResult, error)

	// Eval evaluates code without capturing output and returns its value.
	Eval(ctx context.Context, code string) (Handle, error)

	// Bind assigns the value behind h to name in the global workspace.
	Bind(ctx context.Context, name string, h Handle) error

	// Unbind removes name from the global workspace.
	Unbind(ctx context.Context, name string) error

	// ToNative converts h to a host value: string, []string, []bool,
	// []float64 or nil. Objects without a native form return an error.
	ToNative(ctx context.Context, h Handle) (any, error)

	// FS exposes the interpreter's virtual filesystem.
	FS() FileSystem

	// InstallPackages installs interpreter packages by name.
	InstallPackages(ctx context.Context, names ...string) error

	// Close releases the session.
	Close() error
}

// FileSystem is the interpreter's virtual filesystem.
type FileSystem interface {
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	ReadDir(ctx context.Context, dir string) ([]FileInfo, error)
	Remove(ctx context.Context, path string) error
}

// FileInfo describes one entry of the interpreter filesystem.
type FileInfo struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"isDir,omitempty"`
}

// VersionInfo is returned by Session.Init.
type VersionInfo struct {
	// Interpreter is the language version string, e.g. "R version 4.4.1".
	Interpreter string `json:"interpreter"`

	// Runtime is the embedding runtime version, e.g. the webR release.
	Runtime string `json:"runtime"`

	// StartedAt records when the session became ready.
	StartedAt time.Time `json:"startedAt"`
}
