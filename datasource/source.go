package datasource

import (
	"context"
	"errors"
	"time"
)

// Common errors for source operations.
var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrSourceDisabled    = errors.New("source disabled")
	ErrFileNotFound      = errors.New("file not found in source")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
)

// FileInfo describes one file offered by a source.
type FileInfo struct {
	// Name is the file name within the source.
	Name string `json:"name"`

	// Size in bytes, zero when unknown.
	Size int64 `json:"size"`

	// ModTime is the last modification time, zero when unknown.
	ModTime time.Time `json:"modTime,omitempty"`

	// Source is the name of the source offering the file.
	Source string `json:"source,omitempty"`
}

// Source is a provider of data files that can be uploaded into a notebook.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
// - Errors: use ErrFileNotFound/ErrSourceDisabled/ErrSourceUnavailable/ErrFileTooLarge where applicable.
type Source interface {
	// Kind returns the source type (e.g., "local", "web", "s3").
	Kind() string

	// Name returns the unique instance name for this source.
	Name() string

	// Enabled returns whether this source is currently enabled.
	Enabled() bool

	// List returns the files available from this source.
	List(ctx context.Context) ([]FileInfo, error)

	// Fetch returns the content of the named file.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Start prepares the source (check directories, connect clients, ...).
	Start(ctx context.Context) error

	// Stop releases resources held by the source.
	Stop() error
}

// Factory creates source instances.
type Factory func(name string) (Source, error)
