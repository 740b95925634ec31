// Package toolserver exposes a notebook as an MCP server.
package toolserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/exec"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// Default server identity.
const (
	DefaultName    = "notebook"
	DefaultVersion = "0.1.0"
)

// Tool names.
const (
	ToolRunCode         = "run_code"
	ToolUploadFile      = "upload_file"
	ToolInstallPackages = "install_packages"
	ToolListFiles       = "list_files"
	ToolInspect         = "inspect"
)

// ErrNotebookRequired is returned by New without a notebook.
var ErrNotebookRequired = errors.New("toolserver: notebook is required")

// Notebook is the part of exec.Notebook the tools use.
type Notebook interface {
	Run(ctx context.Context, src string) (exec.RunResult, error)
	Upload(ctx context.Context, name string, data []byte) (exec.UploadResult, error)
	Fetch(ctx context.Context, source, name string) (exec.UploadResult, error)
	Install(ctx context.Context, packages ...string) error
	Files(ctx context.Context) ([]runtime.FileInfo, error)
	Inspect(ctx context.Context, name string, mode exec.InspectMode) (string, error)
}

var _ Notebook = (*exec.Notebook)(nil)

// Logger is an optional interface for tool call logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options configures the server.
type Options struct {
	// Name and Version identify the server to clients.
	Name    string
	Version string

	// Logger receives one line per tool call.
	Logger Logger
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
}

// Server serves notebook tools over MCP.
type Server struct {
	nb     Notebook
	server *mcp.Server
	logger Logger
}

// New creates a server for nb with all tools registered.
func New(nb Notebook, opts Options) (*Server, error) {
	if nb == nil {
		return nil, ErrNotebookRequired
	}
	opts.applyDefaults()

	s := &Server{
		nb:     nb,
		server: mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		logger: opts.Logger,
	}
	s.register()
	return s, nil
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves on t until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// RunCodeInput is the argument of run_code.
type RunCodeInput struct {
	Code string `json:"code" jsonschema:"R code to evaluate in the notebook workspace"`
}

// UploadFileInput is the argument of upload_file.
type UploadFileInput struct {
	Name    string `json:"name" jsonschema:"file name inside the data directory, or the file to fetch when source is set"`
	Content string `json:"content,omitempty" jsonschema:"file content"`
	Source  string `json:"source,omitempty" jsonschema:"data source to fetch the file from instead of content"`
}

// InstallPackagesInput is the argument of install_packages.
type InstallPackagesInput struct {
	Packages []string `json:"packages" jsonschema:"package names"`
}

// ListFilesInput is the argument of list_files.
type ListFilesInput struct{}

// InspectInput is the argument of inspect.
type InspectInput struct {
	Name string `json:"name" jsonschema:"variable name in the global workspace"`
	Mode string `json:"mode,omitempty" jsonschema:"print, summary or str; defaults to print"`
}

func (s *Server) register() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolRunCode,
		Description: "Evaluate R code and return console output and plots",
	}, s.runCode)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolUploadFile,
		Description: "Write a data file into the notebook's working directory",
	}, s.uploadFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolInstallPackages,
		Description: "Install R packages into the session",
	}, s.installPackages)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolListFiles,
		Description: "List files in the notebook's working directory",
	}, s.listFiles)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolInspect,
		Description: "Print, summarize or show the structure of a workspace variable",
	}, s.inspect)
}

func (s *Server) runCode(ctx context.Context, _ *mcp.CallToolRequest, in RunCodeInput) (*mcp.CallToolResult, any, error) {
	res, err := s.nb.Run(ctx, in.Code)
	if err != nil {
		return s.failure(ToolRunCode, err), nil, nil
	}
	s.logger.Info("tool call", "tool", ToolRunCode, "success", res.Success, "durationMs", res.DurationMs)
	return &mcp.CallToolResult{Content: Contents(res.Messages), IsError: !res.Success}, nil, nil
}

func (s *Server) uploadFile(ctx context.Context, _ *mcp.CallToolRequest, in UploadFileInput) (*mcp.CallToolResult, any, error) {
	var (
		res exec.UploadResult
		err error
	)
	if in.Source != "" {
		res, err = s.nb.Fetch(ctx, in.Source, in.Name)
	} else {
		res, err = s.nb.Upload(ctx, in.Name, []byte(in.Content))
	}
	if err != nil {
		return s.failure(ToolUploadFile, err), nil, nil
	}

	text := fmt.Sprintf("Wrote %s (%d bytes)", res.Path, res.Size)
	if res.Preview != nil {
		text += "\n" + res.Preview.Summary()
	}
	s.logger.Info("tool call", "tool", ToolUploadFile, "path", res.Path)
	return textResult(text), nil, nil
}

func (s *Server) installPackages(ctx context.Context, _ *mcp.CallToolRequest, in InstallPackagesInput) (*mcp.CallToolResult, any, error) {
	if err := s.nb.Install(ctx, in.Packages...); err != nil {
		return s.failure(ToolInstallPackages, err), nil, nil
	}
	s.logger.Info("tool call", "tool", ToolInstallPackages, "packages", in.Packages)
	return textResult("Installed packages: " + strings.Join(in.Packages, ", ")), nil, nil
}

func (s *Server) listFiles(ctx context.Context, _ *mcp.CallToolRequest, _ ListFilesInput) (*mcp.CallToolResult, any, error) {
	files, err := s.nb.Files(ctx)
	if err != nil {
		return s.failure(ToolListFiles, err), nil, nil
	}
	if len(files) == 0 {
		return textResult("No files"), nil, nil
	}
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s\t%d\n", f.Name, f.Size)
	}
	return textResult(strings.TrimSuffix(b.String(), "\n")), nil, nil
}

func (s *Server) inspect(ctx context.Context, _ *mcp.CallToolRequest, in InspectInput) (*mcp.CallToolResult, any, error) {
	mode := exec.InspectMode(in.Mode)
	if mode == "" {
		mode = exec.InspectPrint
	}
	text, err := s.nb.Inspect(ctx, in.Name, mode)
	if err != nil {
		return s.failure(ToolInspect, err), nil, nil
	}
	return textResult(text), nil, nil
}

func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool call failed", "tool", tool, "error", err)
	res := textResult(err.Error())
	res.IsError = true
	return res
}

// Contents converts display messages to MCP content. Plots become images;
// text messages of other categories than stdout carry their category.
func Contents(messages []code.DisplayMessage) []mcp.Content {
	out := make([]mcp.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Category == code.CategoryPlot {
			if msg.Plot == nil {
				continue
			}
			out = append(out, &mcp.ImageContent{Data: msg.Plot.Data, MIMEType: msg.Plot.MIMEType})
			continue
		}
		text := msg.Text
		if msg.Category != code.CategoryStdout {
			text = fmt.Sprintf("[%s] %s", msg.Category, msg.Text)
		}
		out = append(out, &mcp.TextContent{Text: text})
	}
	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
