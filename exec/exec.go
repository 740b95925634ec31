package exec

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource/web"
	"github.com/QuesmaOrg/demo-webr-ggplot/history"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// Notebook runs code against one interpreter session and keeps its console
// log.
//
// Contract:
// - Concurrency: safe for concurrent use; session access is single-flight per RunMode.
// - Context: bounds waiting for the session and the session calls themselves.
// - Errors: evaluation failures are reported in RunResult, not as errors.
type Notebook struct {
	session  runtime.Session
	executor *code.Executor
	catalog  *datasource.Catalog
	opts     Options

	// sem admits one session operation at a time.
	sem *semaphore.Weighted

	mu          sync.Mutex
	messages    []code.DisplayMessage
	installed   map[string]struct{}
	initialized bool
	version     runtime.VersionInfo
}

// New creates a Notebook with the given options.
func New(opts Options) (*Notebook, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	executorOpts := append([]code.Option{code.WithLogger(opts.Logger)}, opts.Executor...)
	executor, err := code.NewExecutor(opts.Session, executorOpts...)
	if err != nil {
		return nil, err
	}

	var catalog *datasource.Catalog
	if opts.Sources != nil {
		catalog = datasource.NewCatalog(opts.Sources)
	}

	return &Notebook{
		session:   opts.Session,
		executor:  executor,
		catalog:   catalog,
		opts:      opts,
		sem:       semaphore.NewWeighted(1),
		installed: make(map[string]struct{}),
	}, nil
}

// Init initializes the session and installs the default packages. Calls
// after the first successful one return the same version information.
// Package installation failures are reported in the console log only.
func (n *Notebook) Init(ctx context.Context) (runtime.VersionInfo, error) {
	if err := n.acquire(ctx); err != nil {
		return runtime.VersionInfo{}, err
	}
	defer n.sem.Release(1)

	n.mu.Lock()
	if n.initialized {
		v := n.version
		n.mu.Unlock()
		return v, nil
	}
	n.mu.Unlock()

	version, err := n.session.Init(ctx)
	if err != nil {
		return runtime.VersionInfo{}, fmt.Errorf("init session: %w", err)
	}
	n.opts.Logger.Info("notebook initialized", "interpreter", version.Interpreter, "runtime", version.Runtime)

	if err := n.install(ctx, n.opts.DefaultPackages); err != nil {
		n.opts.Logger.Warn("installing default packages failed", "error", err)
	}

	n.mu.Lock()
	n.initialized = true
	n.version = version
	n.mu.Unlock()
	return version, nil
}

// Run executes code and appends its messages to the console log.
// The returned error is non-nil only when the code could not be started.
func (n *Notebook) Run(ctx context.Context, src string) (RunResult, error) {
	if err := n.begin(ctx); err != nil {
		return RunResult{}, err
	}
	defer n.sem.Release(1)

	res := n.executor.Execute(ctx, src)
	result := RunResult{
		ID:         uuid.NewString(),
		Messages:   res.Messages,
		Duration:   res.Duration,
		DurationMs: res.DurationMs,
		Success:    res.Success,
	}
	n.appendMessages(res.Messages...)

	if n.opts.History != nil {
		run := history.Run{
			ID:       result.ID,
			Code:     src,
			Messages: res.Messages,
			Success:  res.Success,
			Duration: res.Duration,
		}
		if err := n.opts.History.Record(context.WithoutCancel(ctx), run); err != nil {
			n.opts.Logger.Warn("recording run failed", "id", result.ID, "error", err)
		}
	}
	return result, nil
}

// Messages returns a copy of the console log.
func (n *Notebook) Messages() []code.DisplayMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.messages)
}

// ClearMessages empties the console log.
func (n *Notebook) ClearMessages() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
}

// Upload writes data to name inside the data directory.
func (n *Notebook) Upload(ctx context.Context, name string, data []byte) (UploadResult, error) {
	if err := validateName(name); err != nil {
		return UploadResult{}, err
	}
	if err := n.begin(ctx); err != nil {
		return UploadResult{}, err
	}
	defer n.sem.Release(1)
	return n.upload(ctx, name, data)
}

// Fetch copies name from the named data source into the data directory.
// URL names are stored under their last path element.
func (n *Notebook) Fetch(ctx context.Context, source, name string) (UploadResult, error) {
	if n.catalog == nil {
		return UploadResult{}, ErrNoSources
	}
	target := web.FileName(name)
	if err := validateName(target); err != nil {
		return UploadResult{}, err
	}
	if err := n.begin(ctx); err != nil {
		return UploadResult{}, err
	}
	defer n.sem.Release(1)

	data, err := n.catalog.FetchFrom(ctx, source, name)
	if err != nil {
		n.appendMessages(code.TextMessage(code.CategoryError, fmt.Sprintf("Failed to fetch %s from %s: %v", name, source, err)))
		return UploadResult{}, fmt.Errorf("fetch %s: %w", datasource.FormatFileID(source, name), err)
	}
	return n.upload(ctx, target, data)
}

// Files lists the data directory.
func (n *Notebook) Files(ctx context.Context) ([]runtime.FileInfo, error) {
	if err := n.begin(ctx); err != nil {
		return nil, err
	}
	defer n.sem.Release(1)

	files, err := n.session.FS().ReadDir(ctx, n.opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", n.opts.DataDir, err)
	}
	return files, nil
}

// RemoveFile deletes name from the data directory.
func (n *Notebook) RemoveFile(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := n.begin(ctx); err != nil {
		return err
	}
	defer n.sem.Release(1)

	if err := n.session.FS().Remove(ctx, n.dataPath(name)); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	n.appendMessages(code.TextMessage(code.CategoryInfo, "Removed "+name))
	return nil
}

// Install installs packages. Already installed and blank names are skipped.
func (n *Notebook) Install(ctx context.Context, packages ...string) error {
	if err := n.begin(ctx); err != nil {
		return err
	}
	defer n.sem.Release(1)
	return n.install(ctx, packages)
}

// Installed returns the installed packages in sorted order.
func (n *Notebook) Installed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.installed))
	for name := range n.installed {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Inspect renders the global variable name.
func (n *Notebook) Inspect(ctx context.Context, name string, mode InspectMode) (string, error) {
	switch mode {
	case InspectPrint, InspectSummary, InspectStructure:
	default:
		return "", fmt.Errorf("exec: unknown inspect mode %q", mode)
	}
	if err := n.begin(ctx); err != nil {
		return "", err
	}
	defer n.sem.Release(1)

	if !n.executor.Exists(ctx, name) {
		return "", fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}
	h, err := n.executor.Lookup(ctx, name)
	if err != nil {
		return "", err
	}

	s := n.executor.Serializer()
	switch mode {
	case InspectSummary:
		return s.Summary(ctx, h), nil
	case InspectStructure:
		return s.Structure(ctx, h), nil
	default:
		return s.Serialize(ctx, h), nil
	}
}

// Exists reports whether name is bound in the global workspace.
func (n *Notebook) Exists(ctx context.Context, name string) (bool, error) {
	if err := n.begin(ctx); err != nil {
		return false, err
	}
	defer n.sem.Release(1)
	return n.executor.Exists(ctx, name), nil
}

// Close closes the session.
func (n *Notebook) Close() error {
	return n.session.Close()
}

// acquire takes the session slot according to the run mode.
func (n *Notebook) acquire(ctx context.Context) error {
	if n.opts.RunMode == RunModeReject {
		if !n.sem.TryAcquire(1) {
			return ErrBusy
		}
		return nil
	}
	return n.sem.Acquire(ctx, 1)
}

// begin takes the session slot of an initialized notebook.
func (n *Notebook) begin(ctx context.Context) error {
	n.mu.Lock()
	ready := n.initialized
	n.mu.Unlock()
	if !ready {
		return ErrNotInitialized
	}
	return n.acquire(ctx)
}

func (n *Notebook) upload(ctx context.Context, name string, data []byte) (UploadResult, error) {
	target := n.dataPath(name)
	if err := n.session.FS().WriteFile(ctx, target, data); err != nil {
		n.appendMessages(code.TextMessage(code.CategoryError, fmt.Sprintf("Failed to upload %s: %v", name, err)))
		return UploadResult{}, fmt.Errorf("write %s: %w", target, err)
	}

	result := UploadResult{Name: name, Path: target, Size: int64(len(data))}
	text := fmt.Sprintf("Uploaded %s (%d bytes)", name, len(data))
	if datasource.IsCSV(name) {
		preview, err := datasource.Preview(data)
		if err != nil {
			n.opts.Logger.Warn("csv preview failed", "file", name, "error", err)
		} else {
			result.Preview = &preview
			text = fmt.Sprintf("Uploaded %s: %s", name, preview.Summary())
		}
	}
	n.opts.Logger.Info("file uploaded", "path", target, "size", len(data))
	n.appendMessages(code.TextMessage(code.CategorySuccess, text))
	return result, nil
}

func (n *Notebook) install(ctx context.Context, packages []string) error {
	pending := n.pendingPackages(packages)
	if len(pending) == 0 {
		return nil
	}
	list := strings.Join(pending, ", ")
	if err := n.session.InstallPackages(ctx, pending...); err != nil {
		n.appendMessages(code.TextMessage(code.CategoryError, fmt.Sprintf("Failed to install packages %s: %v", list, err)))
		return fmt.Errorf("%w: %s: %w", ErrInstall, list, err)
	}

	n.mu.Lock()
	for _, name := range pending {
		n.installed[name] = struct{}{}
	}
	n.mu.Unlock()
	n.appendMessages(code.TextMessage(code.CategorySuccess, "Installed packages: "+list))
	return nil
}

func (n *Notebook) pendingPackages(packages []string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, name := range packages {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(out, name) {
			continue
		}
		if _, ok := n.installed[name]; ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (n *Notebook) appendMessages(msgs ...code.DisplayMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msgs...)
}

func (n *Notebook) dataPath(name string) string {
	return path.Join(n.opts.DataDir, name)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
