package code

import (
	"errors"
	"strings"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// Sentinel errors for error classification.
var (
	// ErrEvaluation indicates that code evaluated without capture failed.
	ErrEvaluation = errors.New("evaluation failed")

	// ErrConfiguration indicates an invalid or incomplete configuration.
	ErrConfiguration = errors.New("configuration error")
)

// DefaultErrorMarker is the prefix the interpreter's message channel puts in
// front of error text.
const DefaultErrorMarker = "!! "

// errorText converts a capture failure into display text.
func errorText(err error, marker string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var evalErr *runtime.EvalError
	if errors.As(err, &evalErr) {
		msg = evalErr.Message
	}
	if marker != "" {
		msg = strings.TrimPrefix(msg, marker)
	}
	return msg
}

// moreInformative reports whether enriched should replace raw.
func moreInformative(enriched, raw string) bool {
	return strings.TrimSpace(enriched) != "" && len(enriched) > len(raw)
}
