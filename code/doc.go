// Package code turns one block of user code into an ordered list of display
// messages by running it against an interpreter [runtime.Session].
//
// # Pipeline
//
// The [Executor] drives a single evaluation:
//
//   - Preparing: fixes the interpreter's print width and warning display,
//     then wraps the code with [Wrap] so warnings raised before a fatal error
//     are kept alongside it.
//   - Capturing: one [runtime.Session.Capture] call with autoprint, stream,
//     condition and graphics capture enabled in the global workspace.
//   - Draining: every captured signal becomes a [DisplayMessage] through the
//     [Extractor] and [Classify]; every plot becomes a [CategoryPlot] message;
//     the final value is appended last when the [ResultPolicy] accepts it.
//   - Failed: the error text is cleaned, replaced by the warning-enriched
//     variant left behind by the wrapper when that one is more informative,
//     and reported as exactly one [CategoryError] message.
//
// Execute never returns an error. [ExecuteResult].Success mirrors the
// presence of the error message.
//
// # Workspace discipline
//
// Everything this package writes into the interpreter's global workspace is
// temporary: values are bound under names starting with [TempPrefix] only for
// the duration of one print or inspection, and the wrapper's reserved names
// ([WarningsName], [ErrorName]) are removed at the end of every evaluation.
// Removal is best-effort and never masks the primary result.
//
// # Concurrency
//
// An Executor assumes at most one evaluation in flight against its session.
// Callers that can trigger concurrent runs must serialize them; exec.Notebook
// does this with a single-slot semaphore.
package code
