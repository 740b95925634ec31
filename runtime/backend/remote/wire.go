package remote

import (
	"encoding/json"
	"fmt"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// Operation names understood by a worker.
const (
	OpInit     = "init"
	OpCapture  = "capture"
	OpEval     = "eval"
	OpBind     = "bind"
	OpUnbind   = "unbind"
	OpToNative = "toNative"
	OpFSWrite  = "fs.write"
	OpFSRead   = "fs.read"
	OpFSList   = "fs.list"
	OpFSRemove = "fs.remove"
	OpInstall  = "install"
)

// Remote error codes with a local meaning.
const (
	// CodeEval marks interpreter errors raised by user or generated code.
	CodeEval = "eval"

	// CodeNoNative marks values without a native representation.
	CodeNoNative = "no_native"
)

// Request is the wire request to a worker.
type Request struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the wire response from a worker.
// A failed capture may carry both Result (the partial outcome) and Error.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// RemoteError describes an error reported by the worker.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HandlePayload references a worker-side value.
type HandlePayload struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

func (h HandlePayload) handle() runtime.Handle {
	return runtime.Handle{ID: h.ID, Type: h.Type}
}

func handlePayload(h runtime.Handle) HandlePayload {
	return HandlePayload{ID: h.ID, Type: h.Type}
}

// InitResult is the result of OpInit.
type InitResult struct {
	Interpreter string `json:"interpreter"`
	Runtime     string `json:"runtime"`
}

// CaptureParams are the parameters of OpCapture.
type CaptureParams struct {
	Code    string                 `json:"code"`
	Options runtime.CaptureOptions `json:"options"`
}

// SignalPayload is one captured signal. Text carries plain payloads,
// Handle references objects that stay in the worker.
type SignalPayload struct {
	Kind   runtime.SignalKind `json:"type"`
	Text   *string            `json:"text,omitempty"`
	Handle *HandlePayload     `json:"handle,omitempty"`
}

// ImagePayload is one captured image with base64 or data URI content.
type ImagePayload struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// CaptureResult is the result of OpCapture.
type CaptureResult struct {
	Signals []SignalPayload `json:"output"`
	Images  []ImagePayload  `json:"images,omitempty"`
	Value   *HandlePayload  `json:"result,omitempty"`
	Visible bool            `json:"visible"`
}

// CodeParams are the parameters of OpEval.
type CodeParams struct {
	Code string `json:"code"`
}

// BindParams are the parameters of OpBind and OpUnbind.
type BindParams struct {
	Name   string         `json:"name"`
	Handle *HandlePayload `json:"handle,omitempty"`
}

// HandleParams are the parameters of OpToNative.
type HandleParams struct {
	Handle HandlePayload `json:"handle"`
}

// NativeResult is the result of OpToNative.
type NativeResult struct {
	Value json.RawMessage `json:"value"`
}

// FileParams are the parameters of the fs.* operations.
// Data is base64 encoded on the wire.
type FileParams struct {
	Path string `json:"path"`
	Data []byte `json:"data,omitempty"`
}

// FileData is the result of OpFSRead.
type FileData struct {
	Data []byte `json:"data"`
}

// FileEntry is one element of the OpFSList result.
type FileEntry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"isDir,omitempty"`
}

// InstallParams are the parameters of OpInstall.
type InstallParams struct {
	Packages []string `json:"packages"`
}
