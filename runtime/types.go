package runtime

// SignalKind is the raw kind reported for a captured signal.
type SignalKind string

// Signal kinds produced by the capture facility.
const (
	KindStdout  SignalKind = "stdout"
	KindStderr  SignalKind = "stderr"
	KindMessage SignalKind = "message"
	KindWarning SignalKind = "warning"
	KindError   SignalKind = "error"
)

// IsCondition reports whether k is one of the diagnostic condition kinds.
func (k SignalKind) IsCondition() bool {
	switch k {
	case KindMessage, KindWarning, KindError:
		return true
	default:
		return false
	}
}

// Interpreter-level type names reported in Handle.Type.
const (
	TypeNull      = "NULL"
	TypeClosure   = "closure"
	TypeBuiltin   = "builtin"
	TypeSpecial   = "special"
	TypeCharacter = "character"
)

// Handle references a value living inside the interpreter.
type Handle struct {
	// ID identifies the object within the session.
	ID string `json:"id"`

	// Type is the interpreter's typeof() for the object.
	Type string `json:"type,omitempty"`
}

// IsZero reports whether h references nothing.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// Signal is one captured output item.
//
// Data is either a string (already-textual payload), a Handle (an object
// that still lives in the interpreter, e.g. a condition) or nil.
type Signal struct {
	Kind SignalKind
	Data any
}

// CaptureOptions configures Session.Capture.
type CaptureOptions struct {
	// Autoprint prints visible top-level values as R's console would.
	Autoprint bool `json:"withAutoprint"`

	// CaptureStreams collects stdout and stderr.
	CaptureStreams bool `json:"captureStreams"`

	// CaptureConditions lists the condition classes to collect.
	CaptureConditions []SignalKind `json:"captureConditions,omitempty"`

	// CaptureGraphics records plots drawn during evaluation.
	CaptureGraphics bool `json:"captureGraphics"`

	// Env names the evaluation environment; "global" for the workspace.
	Env string `json:"env,omitempty"`
}

// EnvGlobal is the global workspace environment.
const EnvGlobal = "global"

// CaptureResult is the outcome of a successful Session.Capture.
type CaptureResult struct {
	// Signals are the captured outputs in capture order.
	Signals []Signal

	// Images are the recorded plots in drawing order.
	Images []Image

	// Value is the value of the final expression, nil when there is none.
	Value *Handle

	// Visible is false when the final value was returned invisibly.
	Visible bool
}

// Image is a raster image recorded by the graphics device.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}
