package code

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// TempPrefix starts every temporary workspace name. The colon keeps the
// names out of reach of ordinary identifiers and the leading dot hides them
// from ls().
const TempPrefix = ".notebook:tmp:"

func tempName() string {
	return TempPrefix + uuid.NewString()
}

// quoteName renders name as a backtick-quoted symbol.
func quoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

var rEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// rString renders s as a double-quoted string literal.
func rString(s string) string {
	return `"` + rEscaper.Replace(s) + `"`
}

// rStrings renders values as a character vector constructor.
func rStrings(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = rString(v)
	}
	return "c(" + strings.Join(quoted, ", ") + ")"
}

// textLines interprets a native value as lines of text.
func textLines(native any) ([]string, bool) {
	switch v := native.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

// withBinding binds h to a fresh temporary name, runs fn with that name and
// removes the binding on every path, including after ctx is done. Unbind
// failures are ignored.
func withBinding(ctx context.Context, s runtime.Session, h runtime.Handle, fn func(name string) error) error {
	name := tempName()
	defer func() {
		_ = s.Unbind(context.WithoutCancel(ctx), name)
	}()
	if err := s.Bind(ctx, name, h); err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	return fn(name)
}

// evalLines evaluates code and converts the result to text lines.
func evalLines(ctx context.Context, s runtime.Session, code string) ([]string, error) {
	h, err := s.Eval(ctx, code)
	if err != nil {
		return nil, err
	}
	native, err := s.ToNative(ctx, h)
	if err != nil {
		return nil, err
	}
	lines, ok := textLines(native)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", runtime.ErrNoNativeValue, native)
	}
	return lines, nil
}

// evalBool evaluates code and reads the first element of a logical result.
func evalBool(ctx context.Context, s runtime.Session, code string) (bool, error) {
	h, err := s.Eval(ctx, code)
	if err != nil {
		return false, err
	}
	native, err := s.ToNative(ctx, h)
	if err != nil {
		return false, err
	}
	switch v := native.(type) {
	case bool:
		return v, nil
	case []bool:
		return len(v) > 0 && v[0], nil
	default:
		return false, fmt.Errorf("%w: got %T", runtime.ErrNoNativeValue, native)
	}
}
