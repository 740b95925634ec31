// Package remote provides a runtime.Session backed by an interpreter worker
// reached over a request/response transport.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime/backend/shared"
)

// Errors for remote backend operations.
var (
	// ErrClientNotConfigured is returned when no remote client is configured.
	ErrClientNotConfigured = errors.New("remote client not configured")

	// ErrRemoteExecutionFailed is returned when the worker reports a
	// non-evaluation failure or answers with a malformed response.
	ErrRemoteExecutionFailed = errors.New("remote execution failed")

	// ErrConnectionClosed is returned for calls on a closed connection.
	ErrConnectionClosed = errors.New("remote connection closed")
)

// Default call timeouts.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultCaptureTimeout = 5 * time.Minute
)

// Logger is the interface for logging.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Client executes remote requests.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Call must honor cancellation and deadlines.
// - Errors: transport failures are returned as errors; worker failures
// arrive in Response.Error.
type Client interface {
	Call(ctx context.Context, req Request) (Response, error)
}

// EndpointProvider optionally exposes the configured endpoint for diagnostics.
type EndpointProvider interface {
	Endpoint() string
}

// Config configures a remote backend.
type Config struct {
	// Client executes remote requests.
	// Required.
	Client Client

	// Timeout bounds every call except capture.
	// Default: 30s
	Timeout time.Duration

	// CaptureTimeout bounds capture calls.
	// Default: 5m
	CaptureTimeout time.Duration

	// Logger is an optional logger for backend events.
	Logger Logger
}

// Backend is a runtime.Session whose interpreter lives in a remote worker.
type Backend struct {
	client         Client
	timeout        time.Duration
	captureTimeout time.Duration
	logger         Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a new remote backend with the given configuration.
func New(cfg Config) *Backend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	captureTimeout := cfg.CaptureTimeout
	if captureTimeout == 0 {
		captureTimeout = DefaultCaptureTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Backend{
		client:         cfg.Client,
		timeout:        timeout,
		captureTimeout: captureTimeout,
		logger:         logger,
	}
}

// Init implements runtime.Session.
func (b *Backend) Init(ctx context.Context) (runtime.VersionInfo, error) {
	start := time.Now()
	var res InitResult
	if err := b.call(ctx, OpInit, nil, b.timeout, &res); err != nil {
		return runtime.VersionInfo{}, err
	}
	b.logger.Info("remote session initialized",
		"endpoint", b.endpoint(),
		"interpreter", res.Interpreter,
		"durationMs", time.Since(start).Milliseconds())
	return runtime.VersionInfo{
		Interpreter: res.Interpreter,
		Runtime:     res.Runtime,
		StartedAt:   start,
	}, nil
}

// Capture implements runtime.Session. An evaluation error is returned as a
// *runtime.EvalError together with whatever the worker captured before it.
func (b *Backend) Capture(ctx context.Context, code string, opts runtime.CaptureOptions) (runtime.CaptureResult, error) {
	resp, err := b.roundTrip(ctx, OpCapture, CaptureParams{Code: code, Options: opts}, b.captureTimeout)
	if err != nil {
		return runtime.CaptureResult{}, err
	}

	var result runtime.CaptureResult
	if len(resp.Result) > 0 {
		var payload CaptureResult
		if err := json.Unmarshal(resp.Result, &payload); err != nil {
			return runtime.CaptureResult{}, fmt.Errorf("%w: decode capture result: %v", ErrRemoteExecutionFailed, err)
		}
		result = b.mapCapture(payload)
	}
	if resp.Error != nil {
		return result, mapRemoteError(resp.Error)
	}
	if len(resp.Result) == 0 {
		return runtime.CaptureResult{}, fmt.Errorf("%w: missing result", ErrRemoteExecutionFailed)
	}
	return result, nil
}

// Eval implements runtime.Session.
func (b *Backend) Eval(ctx context.Context, code string) (runtime.Handle, error) {
	var h HandlePayload
	if err := b.call(ctx, OpEval, CodeParams{Code: code}, b.timeout, &h); err != nil {
		return runtime.Handle{}, err
	}
	return h.handle(), nil
}

// Bind implements runtime.Session.
func (b *Backend) Bind(ctx context.Context, name string, h runtime.Handle) error {
	p := handlePayload(h)
	return b.call(ctx, OpBind, BindParams{Name: name, Handle: &p}, b.timeout, nil)
}

// Unbind implements runtime.Session.
func (b *Backend) Unbind(ctx context.Context, name string) error {
	return b.call(ctx, OpUnbind, BindParams{Name: name}, b.timeout, nil)
}

// ToNative implements runtime.Session.
func (b *Backend) ToNative(ctx context.Context, h runtime.Handle) (any, error) {
	var res NativeResult
	if err := b.call(ctx, OpToNative, HandleParams{Handle: handlePayload(h)}, b.timeout, &res); err != nil {
		return nil, err
	}
	return decodeNative(res.Value)
}

// FS implements runtime.Session.
func (b *Backend) FS() runtime.FileSystem {
	return fileSystem{b: b}
}

// InstallPackages implements runtime.Session.
func (b *Backend) InstallPackages(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	start := time.Now()
	if err := b.call(ctx, OpInstall, InstallParams{Packages: names}, b.captureTimeout, nil); err != nil {
		return err
	}
	b.logger.Info("packages installed", "packages", names, "durationMs", time.Since(start).Milliseconds())
	return nil
}

// Close implements runtime.Session. It closes the client when it is an
// io.Closer. Calling Close twice is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if closer, ok := b.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var _ runtime.Session = (*Backend)(nil)

func (b *Backend) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// roundTrip sends one request and returns the raw response.
func (b *Backend) roundTrip(ctx context.Context, op string, params any, timeout time.Duration) (Response, error) {
	if b.client == nil {
		return Response{}, ErrClientNotConfigured
	}
	if b.isClosed() {
		return Response{}, runtime.ErrSessionClosed
	}

	req := Request{Op: op}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Response{}, fmt.Errorf("encode %s params: %w", op, err)
		}
		req.Params = raw
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := b.client.Call(ctx, req)
	if err != nil {
		b.logger.Warn("remote call failed", "op", op, "error", err)
		return Response{}, err
	}
	return resp, nil
}

// call performs a request and decodes its result into out when non-nil.
func (b *Backend) call(ctx context.Context, op string, params any, timeout time.Duration, out any) error {
	resp, err := b.roundTrip(ctx, op, params, timeout)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return mapRemoteError(resp.Error)
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("%w: %s: missing result", ErrRemoteExecutionFailed, op)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", ErrRemoteExecutionFailed, op, err)
	}
	return nil
}

func (b *Backend) mapCapture(payload CaptureResult) runtime.CaptureResult {
	result := runtime.CaptureResult{Visible: payload.Visible}
	if len(payload.Signals) > 0 {
		result.Signals = make([]runtime.Signal, 0, len(payload.Signals))
		for _, sig := range payload.Signals {
			result.Signals = append(result.Signals, mapSignal(sig))
		}
	}
	for i, img := range payload.Images {
		decoded, err := shared.DecodeImage(img.Data, img.MIMEType, img.Width, img.Height)
		if err != nil {
			b.logger.Warn("dropping undecodable image", "index", i, "error", err)
			continue
		}
		result.Images = append(result.Images, decoded)
	}
	if payload.Value != nil {
		h := payload.Value.handle()
		result.Value = &h
	}
	return result
}

func (b *Backend) endpoint() string {
	if provider, ok := b.client.(EndpointProvider); ok {
		return provider.Endpoint()
	}
	return ""
}

func mapSignal(sig SignalPayload) runtime.Signal {
	switch {
	case sig.Handle != nil:
		return runtime.Signal{Kind: sig.Kind, Data: sig.Handle.handle()}
	case sig.Text != nil:
		return runtime.Signal{Kind: sig.Kind, Data: *sig.Text}
	default:
		return runtime.Signal{Kind: sig.Kind}
	}
}

func mapRemoteError(e *RemoteError) error {
	switch e.Code {
	case CodeEval:
		return &runtime.EvalError{Message: e.Message}
	case CodeNoNative:
		return fmt.Errorf("%w: %s", runtime.ErrNoNativeValue, e.Message)
	default:
		return fmt.Errorf("%w: %w", ErrRemoteExecutionFailed, e)
	}
}

// decodeNative converts a JSON value into the native shapes runtime.Session
// documents: string, []string, []bool, []float64 or nil.
func decodeNative(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: decode native value: %v", ErrRemoteExecutionFailed, err)
	}
	switch x := v.(type) {
	case nil, string:
		return x, nil
	case bool:
		return []bool{x}, nil
	case float64:
		return []float64{x}, nil
	case []any:
		return decodeVector(x)
	default:
		return nil, fmt.Errorf("%w: unsupported native value %T", runtime.ErrNoNativeValue, v)
	}
}

func decodeVector(items []any) (any, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	switch items[0].(type) {
	case string:
		out := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixed vector", runtime.ErrNoNativeValue)
			}
			out[i] = s
		}
		return out, nil
	case bool:
		out := make([]bool, len(items))
		for i, item := range items {
			v, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: mixed vector", runtime.ErrNoNativeValue)
			}
			out[i] = v
		}
		return out, nil
	case float64:
		out := make([]float64, len(items))
		for i, item := range items {
			v, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: mixed vector", runtime.ErrNoNativeValue)
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported element %T", runtime.ErrNoNativeValue, items[0])
	}
}

type fileSystem struct {
	b *Backend
}

func (f fileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	return f.b.call(ctx, OpFSWrite, FileParams{Path: path, Data: data}, f.b.timeout, nil)
}

func (f fileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var res FileData
	if err := f.b.call(ctx, OpFSRead, FileParams{Path: path}, f.b.timeout, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (f fileSystem) ReadDir(ctx context.Context, dir string) ([]runtime.FileInfo, error) {
	var entries []FileEntry
	if err := f.b.call(ctx, OpFSList, FileParams{Path: dir}, f.b.timeout, &entries); err != nil {
		return nil, err
	}
	out := make([]runtime.FileInfo, len(entries))
	for i, e := range entries {
		out[i] = runtime.FileInfo{Name: e.Name, Size: e.Size, IsDir: e.IsDir}
	}
	return out, nil
}

func (f fileSystem) Remove(ctx context.Context, path string) error {
	return f.b.call(ctx, OpFSRemove, FileParams{Path: path}, f.b.timeout, nil)
}
