// Package runtime defines the contract between the notebook and the sandboxed
// statistical-language interpreter that actually evaluates user code.
//
// The interpreter lives outside the Go process (a webR worker in the reference
// deployment). Values that stay inside the interpreter are referenced through
// opaque [Handle]s; the notebook moves them across the boundary only through
// [Session.ToNative] or by printing them inside the interpreter.
//
// # Session
//
// A [Session] is long-lived and stateful. All evaluations share one global
// workspace, so callers must serialize requests: implementations are not
// required to support concurrent evaluation.
//
// # Capture
//
// [Session.Capture] is the single long-running call of an evaluation. It
// evaluates code with the requested [CaptureOptions] and returns every
// captured [Signal] in order, the recorded plot [Image]s and the final value.
// Autoprint applies to every top-level expression except the last one, whose
// value is returned in [CaptureResult.Value] together with its visibility so
// the caller decides whether it is worth printing.
//
// # Backends
//
//   - remote: a webR worker reached through a request/response client
//     (WebSocket transport included)
//   - runtimetest: a scripted in-memory session for tests
package runtime
