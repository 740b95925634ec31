package exec

import (
	"time"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
)

// RunResult represents the outcome of one Notebook.Run.
type RunResult struct {
	// ID identifies the run in the history.
	ID string `json:"id"`

	// Messages produced by this run, in display order.
	Messages []code.DisplayMessage `json:"messages"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"-"`

	// DurationMs is Duration in milliseconds.
	DurationMs int64 `json:"durationMs"`

	// Success is false when the code raised an error.
	Success bool `json:"success"`
}

// OK returns true if the code ran without error.
func (r RunResult) OK() bool {
	return r.Success
}

// UploadResult describes a file written to the interpreter filesystem.
type UploadResult struct {
	// Name is the file name relative to the data directory.
	Name string `json:"name"`

	// Path is the absolute path inside the interpreter.
	Path string `json:"path"`

	// Size in bytes.
	Size int64 `json:"size"`

	// Preview is set for CSV files that parsed.
	Preview *datasource.CSVPreview `json:"preview,omitempty"`
}

// InspectMode selects how Inspect renders a variable.
type InspectMode string

// Inspect modes.
const (
	InspectPrint     InspectMode = "print"
	InspectSummary   InspectMode = "summary"
	InspectStructure InspectMode = "str"
)
