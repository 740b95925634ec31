package code

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime/backend/shared"
)

// captureOptions is the fixed capture configuration of every evaluation.
func captureOptions() runtime.CaptureOptions {
	return runtime.CaptureOptions{
		Autoprint:      true,
		CaptureStreams: true,
		CaptureConditions: []runtime.SignalKind{
			runtime.KindMessage,
			runtime.KindWarning,
			runtime.KindError,
		},
		CaptureGraphics: true,
		Env:             runtime.EnvGlobal,
	}
}

// Executor runs user code against a session and collects display messages.
//
// Contract:
// - Concurrency: one Execute at a time per session; callers serialize.
// - Context: passed to every session call; the core offers no cancellation of its own.
//   Workspace cleanup runs detached from cancellation.
// - Errors: Execute never returns an error; failures become an error message.
//   Success is false when the evaluation failed or captured an error condition.
// - Ownership: the returned ExecuteResult is caller-owned.
type Executor struct {
	session    runtime.Session
	serializer *Serializer
	extractor  *Extractor
	policy     *ResultPolicy
	cfg        Config
}

// NewExecutor creates an Executor for s.
// Returns ErrConfiguration if s is nil or an option is invalid.
func NewExecutor(s runtime.Session, opts ...Option) (*Executor, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: missing required fields: Session", ErrConfiguration)
	}
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	serializer := NewSerializer(s)
	return &Executor{
		session:    s,
		serializer: serializer,
		extractor:  NewExtractor(s, serializer),
		policy:     NewResultPolicy(s, serializer, cfg.PlotClasses),
		cfg:        cfg,
	}, nil
}

// Serializer returns the executor's value serializer.
func (e *Executor) Serializer() *Serializer {
	return e.serializer
}

// Execute runs code and returns its display messages.
func (e *Executor) Execute(ctx context.Context, code string) (result ExecuteResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.cleanupReserved(ctx)
			result = e.finish(start, append(result.Messages,
				TextMessage(CategoryError, fmt.Sprintf("internal error: %v", r))), false)
		}
	}()

	e.prepare(ctx)
	outcome, err := e.session.Capture(ctx, Wrap(code), captureOptions())
	if err != nil {
		return e.fail(ctx, start, outcome, err)
	}

	messages := make([]DisplayMessage, 0, len(outcome.Signals)+len(outcome.Images)+1)
	messages = e.drainSignals(ctx, messages, outcome.Signals, false)
	messages = appendPlots(messages, outcome.Images)
	if e.policy.ShouldDisplay(ctx, outcome.Value, outcome.Visible) {
		messages = append(messages, TextMessage(CategoryStdout, e.serializer.Serialize(ctx, *outcome.Value)))
	}

	e.cleanupReserved(ctx)
	return e.finish(start, messages, !hasError(outcome.Signals))
}

// EvalQuiet evaluates code without capturing output.
// Failures are wrapped with ErrEvaluation.
func (e *Executor) EvalQuiet(ctx context.Context, code string) error {
	if _, err := e.session.Eval(ctx, code); err != nil {
		return fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	return nil
}

// Exists reports whether name is bound in the global workspace.
// Failures are reported as false.
func (e *Executor) Exists(ctx context.Context, name string) bool {
	ok, err := evalBool(ctx, e.session,
		fmt.Sprintf("exists(%s, envir = globalenv(), inherits = FALSE)", rString(name)))
	return err == nil && ok
}

// Lookup returns a handle to the global binding name.
func (e *Executor) Lookup(ctx context.Context, name string) (runtime.Handle, error) {
	h, err := e.session.Eval(ctx, fmt.Sprintf("get(%s, envir = globalenv())", rString(name)))
	if err != nil {
		return runtime.Handle{}, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	return h, nil
}

func (e *Executor) prepare(ctx context.Context) {
	if _, err := e.session.Eval(ctx, fmt.Sprintf("options(width = %d, warn = 1)", e.cfg.Width)); err != nil {
		e.cfg.Logger.Warn("setting interpreter options failed", "error", err)
	}
}

// fail builds the result of a failed capture. Signals delivered with the
// error are kept; captured error conditions are dropped in favor of the
// single enriched error message.
func (e *Executor) fail(ctx context.Context, start time.Time, partial runtime.CaptureResult, err error) ExecuteResult {
	messages := e.drainSignals(ctx, nil, partial.Signals, true)
	messages = appendPlots(messages, partial.Images)

	text := errorText(err, e.cfg.ErrorMarker)
	if enriched := e.enrichedMessage(ctx); moreInformative(enriched, text) {
		text = enriched
	}
	e.cleanupReserved(ctx)

	messages = append(messages, TextMessage(CategoryError, text))
	return e.finish(start, messages, false)
}

func (e *Executor) drainSignals(ctx context.Context, messages []DisplayMessage, signals []runtime.Signal, skipErrors bool) []DisplayMessage {
	for _, sig := range signals {
		if skipErrors && sig.Kind == runtime.KindError {
			continue
		}
		messages = append(messages, TextMessage(Classify(sig.Kind), e.extractor.Extract(ctx, sig)))
	}
	return messages
}

// enrichedMessage and cleanupReserved run even when ctx is done, so an
// interrupted evaluation still reports its error and leaves no reserved names.
func (e *Executor) enrichedMessage(ctx context.Context) string {
	lines, err := evalLines(context.WithoutCancel(ctx), e.session, enrichedLookup())
	if err != nil {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (e *Executor) cleanupReserved(ctx context.Context) {
	if _, err := e.session.Eval(context.WithoutCancel(ctx), reservedCleanup()); err != nil {
		e.cfg.Logger.Warn("removing reserved bindings failed", "error", err)
	}
}

func hasError(signals []runtime.Signal) bool {
	for _, sig := range signals {
		if sig.Kind == runtime.KindError {
			return true
		}
	}
	return false
}

func (e *Executor) finish(start time.Time, messages []DisplayMessage, success bool) ExecuteResult {
	duration := time.Since(start)
	e.cfg.Logger.Info("evaluation finished",
		"durationMs", duration.Milliseconds(),
		"messages", len(messages),
		"success", success)
	return ExecuteResult{
		Messages:   messages,
		Duration:   duration,
		DurationMs: duration.Milliseconds(),
		Success:    success,
	}
}

func appendPlots(messages []DisplayMessage, images []runtime.Image) []DisplayMessage {
	for _, img := range images {
		messages = append(messages, DisplayMessage{Category: CategoryPlot, Plot: newPlot(img)})
	}
	return messages
}

func newPlot(img runtime.Image) *Plot {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = shared.SniffImageType(img.Data)
	}
	return &Plot{
		MIMEType: mimeType,
		Data:     img.Data,
		Width:    img.Width,
		Height:   img.Height,
		URI:      shared.DataURI(mimeType, img.Data),
	}
}
