package code

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// Placeholders returned when a value cannot be turned into text.
const (
	PlaceholderSerializeFailed = "serialization failed"
	PlaceholderEmpty           = "object could not be serialized"
)

// PrintOptions are extra arguments forwarded verbatim to print(), keyed by
// argument name, e.g. {"digits": "3", "max": "20"}.
type PrintOptions map[string]string

// args renders the options as a trailing argument list in key order.
func (o PrintOptions) args() string {
	if len(o) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s = %s", k, o[k])
	}
	return b.String()
}

// Serializer renders interpreter values using the interpreter's own print
// routines. Output is meant for display only.
type Serializer struct {
	session runtime.Session
}

// NewSerializer returns a Serializer for s.
func NewSerializer(s runtime.Session) *Serializer {
	return &Serializer{session: s}
}

// Serialize prints h and returns the captured lines joined by newlines.
func (s *Serializer) Serialize(ctx context.Context, h runtime.Handle) string {
	return s.render(ctx, h, "print", "")
}

// SerializeWith is Serialize with extra print arguments.
func (s *Serializer) SerializeWith(ctx context.Context, h runtime.Handle, opts PrintOptions) string {
	return s.render(ctx, h, "print", opts.args())
}

// Summary returns the captured output of summary().
func (s *Serializer) Summary(ctx context.Context, h runtime.Handle) string {
	return s.render(ctx, h, "summary", "")
}

// Structure returns the captured output of str().
func (s *Serializer) Structure(ctx context.Context, h runtime.Handle) string {
	return s.render(ctx, h, "str", "")
}

// PrintLines returns the raw lines print() produces for h.
func (s *Serializer) PrintLines(ctx context.Context, h runtime.Handle) ([]string, error) {
	return s.capture(ctx, h, "print", "")
}

func (s *Serializer) render(ctx context.Context, h runtime.Handle, fn, args string) string {
	lines, err := s.capture(ctx, h, fn, args)
	if err != nil {
		return PlaceholderSerializeFailed
	}
	if len(lines) == 0 {
		return PlaceholderEmpty
	}
	return strings.Join(lines, "\n")
}

func (s *Serializer) capture(ctx context.Context, h runtime.Handle, fn, args string) ([]string, error) {
	var lines []string
	err := withBinding(ctx, s.session, h, func(name string) error {
		var err error
		lines, err = evalLines(ctx, s.session, fmt.Sprintf("capture.output(%s(%s%s))", fn, quoteName(name), args))
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}
