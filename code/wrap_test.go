package code

import (
	"strings"
	"testing"
)

func TestWrap_EmbedsUserCodeOnOwnLines(t *testing.T) {
	wrapped := Wrap("x <- 1 # trailing comment")
	if !strings.Contains(wrapped, "withCallingHandlers({\nx <- 1 # trailing comment\n}") {
		t.Errorf("user code not isolated on its own lines:\n%s", wrapped)
	}
}

func TestWrap_InitializesWarningBuffer(t *testing.T) {
	wrapped := Wrap("1")
	want := `assign(".notebook:warnings", character(0), envir = globalenv())`
	if !strings.HasPrefix(wrapped, want) {
		t.Errorf("wrapped code should start with %s, got:\n%s", want, wrapped)
	}
}

func TestWrap_ClearsPreviousError(t *testing.T) {
	wrapped := Wrap("1")
	reset := `rm(list = intersect(c(".notebook:error"), ls(globalenv(), all.names = TRUE)), envir = globalenv())`
	i := strings.Index(wrapped, reset)
	if i < 0 {
		t.Fatalf("wrapped code does not clear %s:\n%s", ErrorName, wrapped)
	}
	if j := strings.Index(wrapped, "withCallingHandlers"); i > j {
		t.Errorf("error binding cleared after user code runs:\n%s", wrapped)
	}
}

func TestWrap_DoesNotMuffleWarnings(t *testing.T) {
	wrapped := Wrap("warning('w')")
	if strings.Contains(wrapped, "muffleWarning") || strings.Contains(wrapped, "tryCatch") {
		t.Errorf("wrapper must let warnings propagate:\n%s", wrapped)
	}
	if !strings.Contains(wrapped, "conditionMessage(w)") {
		t.Errorf("warning handler should record conditionMessage(w):\n%s", wrapped)
	}
}

func TestWrap_ErrorHandlerStoresEnrichedMessage(t *testing.T) {
	wrapped := Wrap("stop('boom')")
	for _, want := range []string{
		`paste0(msg, "\n\nIn addition: Warning message:\n", paste(warns, collapse = "\n"))`,
		`if (length(warns) > 0)`,
		`assign(".notebook:error", msg, envir = globalenv())`,
	} {
		if !strings.Contains(wrapped, want) {
			t.Errorf("wrapped code missing %s:\n%s", want, wrapped)
		}
	}
	if strings.Contains(wrapped, "stop(msg") {
		t.Errorf("error handler must not raise a new error:\n%s", wrapped)
	}
}

func TestWrap_EmptyCode(t *testing.T) {
	wrapped := Wrap("")
	if !strings.Contains(wrapped, "withCallingHandlers({\n\n}") {
		t.Errorf("empty code should produce an empty block:\n%s", wrapped)
	}
}

func TestReservedNamesAreNotIdentifiers(t *testing.T) {
	for _, name := range []string{WarningsName, ErrorName, TempPrefix} {
		if !strings.Contains(name, ":") {
			t.Errorf("%q should contain a character illegal in identifiers", name)
		}
	}
}

func TestRString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`a"b`, `"a\"b"`},
		{`back\slash`, `"back\\slash"`},
		{"two\nlines", `"two\nlines"`},
	}
	for _, tt := range tests {
		if got := rString(tt.in); got != tt.want {
			t.Errorf("rString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRStrings(t *testing.T) {
	got := rStrings([]string{"ggplot", "gg"})
	if got != `c("ggplot", "gg")` {
		t.Errorf("rStrings() = %s", got)
	}
}
