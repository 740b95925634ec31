package runtime

import "errors"

// Sentinel errors shared by session backends.
var (
	// ErrSessionClosed is returned by calls made after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotInitialized is returned when a session is used before Init.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrEvaluation classifies errors raised by the interpreter while
	// evaluating code.
	ErrEvaluation = errors.New("evaluation error")

	// ErrNoNativeValue is returned by ToNative for objects that have no
	// host representation.
	ErrNoNativeValue = errors.New("object has no native representation")

	// ErrUnsupported is returned for operations a backend does not offer.
	ErrUnsupported = errors.New("operation not supported")
)

// EvalError is an error raised inside the interpreter.
type EvalError struct {
	// Message is the interpreter's error text, possibly carrying the
	// interpreter's own message-channel prefix.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the interpreter message.
func (e *EvalError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *EvalError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEvaluation.
func (e *EvalError) Is(target error) bool {
	return target == ErrEvaluation
}
