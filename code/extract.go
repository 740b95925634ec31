package code

import (
	"context"
	"fmt"
	"strings"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// PlaceholderUnavailable is returned when no extraction strategy worked.
const PlaceholderUnavailable = "unable to display output"

// conditionTemplate strips a condition object down to its message inside the
// interpreter. %s is the quoted temporary name.
const conditionTemplate = `local({
  x <- get(%s, envir = globalenv())
  if (is.character(x)) {
    paste(x, collapse = "\n")
  } else if (inherits(x, "condition") && !is.null(x$message)) {
    paste(as.character(x$message), collapse = "\n")
  } else if (inherits(x, "condition")) {
    conditionMessage(x)
  } else {
    paste(as.character(x), collapse = "\n")
  }
})`

// Extractor turns captured signals into display text.
//
// Direct conversion is tried first; condition objects are reduced to their
// message inside the interpreter so the console does not show the call
// expression; anything else is printed through the Serializer.
type Extractor struct {
	session    runtime.Session
	serializer *Serializer
}

// NewExtractor returns an Extractor for s.
func NewExtractor(s runtime.Session, serializer *Serializer) *Extractor {
	if serializer == nil {
		serializer = NewSerializer(s)
	}
	return &Extractor{session: s, serializer: serializer}
}

// Extract returns the display text of sig. It never fails.
func (e *Extractor) Extract(ctx context.Context, sig runtime.Signal) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = PlaceholderUnavailable
		}
	}()

	switch v := sig.Data.(type) {
	case string:
		return v
	case nil:
		return ""
	case runtime.Handle:
		return e.fromHandle(ctx, sig.Kind, v)
	case *runtime.Handle:
		if v == nil {
			return ""
		}
		return e.fromHandle(ctx, sig.Kind, *v)
	case []string:
		return strings.Join(v, "\n")
	default:
		return PlaceholderUnavailable
	}
}

func (e *Extractor) fromHandle(ctx context.Context, kind runtime.SignalKind, h runtime.Handle) string {
	if h.IsZero() {
		return ""
	}

	if native, err := e.session.ToNative(ctx, h); err == nil {
		if lines, ok := textLines(native); ok && len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}

	if kind.IsCondition() {
		if msg, err := e.conditionMessage(ctx, h); err == nil {
			return msg
		}
	}

	lines, err := e.serializer.PrintLines(ctx, h)
	if err != nil {
		return PlaceholderUnavailable
	}
	if len(lines) == 0 {
		return PlaceholderEmpty
	}
	return strings.Join(lines, "\n")
}

func (e *Extractor) conditionMessage(ctx context.Context, h runtime.Handle) (string, error) {
	var msg string
	err := withBinding(ctx, e.session, h, func(name string) error {
		lines, err := evalLines(ctx, e.session, fmt.Sprintf(conditionTemplate, rString(name)))
		if err != nil {
			return err
		}
		msg = strings.Join(lines, "\n")
		return nil
	})
	return msg, err
}
