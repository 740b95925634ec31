package code

import (
	"fmt"
	"strings"
)

// Reserved workspace names used by wrapped code.
const (
	// WarningsName holds the warning messages raised so far in the
	// current evaluation.
	WarningsName = ".notebook:warnings"

	// ErrorName holds the warning-enriched error message after an
	// evaluation fails.
	ErrorName = ".notebook:error"
)

// WarningSeparator joins an error message and the warnings that preceded it.
const WarningSeparator = "\n\nIn addition: Warning message:\n"

// Wrap returns code that evaluates userCode while recording every warning in
// WarningsName. Warnings keep propagating to the capture facility. When an
// error escapes, its message plus the recorded warnings is stored in
// ErrorName and the original error continues unchanged. A leftover ErrorName
// from an earlier evaluation is removed before userCode runs.
func Wrap(userCode string) string {
	warnings := rString(WarningsName)

	var b strings.Builder
	fmt.Fprintf(&b, "assign(%s, character(0), envir = globalenv())\n", warnings)
	b.WriteString(removeGlobals(ErrorName))
	b.WriteString("\n")
	b.WriteString("withCallingHandlers({\n")
	b.WriteString(userCode)
	b.WriteString("\n}, warning = function(w) {\n")
	fmt.Fprintf(&b, "  assign(%[1]s, c(get(%[1]s, envir = globalenv()), conditionMessage(w)), envir = globalenv())\n", warnings)
	b.WriteString("}, error = function(e) {\n")
	b.WriteString("  msg <- conditionMessage(e)\n")
	fmt.Fprintf(&b, "  warns <- get(%s, envir = globalenv())\n", warnings)
	fmt.Fprintf(&b, "  if (length(warns) > 0) msg <- paste0(msg, %s, paste(warns, collapse = \"\\n\"))\n", rString(WarningSeparator))
	fmt.Fprintf(&b, "  assign(%s, msg, envir = globalenv())\n", rString(ErrorName))
	b.WriteString("})\n")
	return b.String()
}

// reservedCleanup removes the wrapper's reserved names if present.
func reservedCleanup() string {
	return removeGlobals(WarningsName, ErrorName)
}

// removeGlobals removes those of names that are bound in the workspace.
func removeGlobals(names ...string) string {
	return fmt.Sprintf("rm(list = intersect(%s, ls(globalenv(), all.names = TRUE)), envir = globalenv())",
		rStrings(names))
}

// enrichedLookup reads ErrorName, or character(0) when it is unset.
func enrichedLookup() string {
	name := rString(ErrorName)
	return fmt.Sprintf("if (exists(%[1]s, envir = globalenv(), inherits = FALSE)) get(%[1]s, envir = globalenv()) else character(0)", name)
}
