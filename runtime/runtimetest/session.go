// Package runtimetest provides a scripted in-memory runtime.Session.
//
// The fake understands the small set of code shapes the notebook generates
// (print capture, inherits checks, workspace lookups, the warning wrapper) and
// replays scripted capture outcomes for user code. It records every call so
// tests can assert on workspace hygiene.
package runtimetest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/QuesmaOrg/demo-webr-ggplot/runtime"
)

// Object is an interpreter value known to the fake.
type Object struct {
	// Type is reported as Handle.Type.
	Type string

	// Class is used by inherits().
	Class []string

	// Native is returned by ToNative unless NoNative is set.
	Native   any
	NoNative bool

	// Print, Summary and Str are the lines the matching routine produces.
	// A nil Print with PrintErr unset produces no lines.
	Print    []string
	PrintErr error
	Summary  []string
	Str      []string

	// Condition marks condition objects; Message is their $message field.
	Condition        bool
	Message          *string
	ConditionMessage string

	// AsCharacter is the result of as.character(); nil makes it fail.
	AsCharacter []string
}

// Text returns a character object holding lines.
func Text(lines ...string) *Object {
	return &Object{Type: runtime.TypeCharacter, Native: lines, Print: quoteLines(lines)}
}

// Bool returns a logical object.
func Bool(v bool) *Object {
	return &Object{Type: "logical", Native: []bool{v}}
}

// Condition returns a condition object whose $message is msg.
func Condition(class string, msg string) *Object {
	m := msg
	return &Object{
		Type:             "list",
		Class:            []string{class, "condition"},
		NoNative:         true,
		Condition:        true,
		Message:          &m,
		ConditionMessage: msg,
		Print:            []string{fmt.Sprintf("<%s in eval(expr): %s>", class, msg)},
	}
}

func quoteLines(lines []string) []string {
	if len(lines) == 0 {
		return []string{"character(0)"}
	}
	quoted := make([]string, len(lines))
	for i, l := range lines {
		quoted[i] = strconv.Quote(l)
	}
	return []string{"[1] " + strings.Join(quoted, " ")}
}

// Script is the scripted outcome of one Capture call.
type Script struct {
	Signals  []runtime.Signal
	Images   []runtime.Image
	Value    *Object
	Visible  bool
	Warnings []string

	// Error, when set, makes the evaluation fail with this message after
	// Signals were produced.
	Error string

	// Unhandled makes Error bypass the wrapper's error handler, as an
	// interrupt does.
	Unhandled bool

	// Globals are assigned into the workspace by the evaluation.
	Globals map[string]*Object
}

// Session is a scripted runtime.Session. Like a remote client, every call
// fails with ctx.Err() once ctx is done.
type Session struct {
	mu sync.Mutex

	objects map[string]*Object
	globals map[string]string
	nextID  int

	scripts []scriptEntry
	failOn  []failEntry

	// ErrorPrefix is prepended to scripted error messages, mimicking the
	// interpreter's message channel.
	ErrorPrefix string

	// UnbindErr makes every Unbind fail after removing the binding.
	UnbindErr error

	// BindErr makes every Bind fail.
	BindErr error

	// CaptureErr makes every Capture fail without running a script.
	CaptureErr error

	// CaptureDelay blocks Capture for the given duration.
	CaptureDelay time.Duration

	files     map[string][]byte
	installed []string
	installOK map[string]bool
	closed    bool

	evals    []string
	captures []CaptureCall
	inits    int
}

type scriptEntry struct {
	match  string
	script Script
}

type failEntry struct {
	match string
	err   error
}

// CaptureCall records one Capture invocation.
type CaptureCall struct {
	Code    string
	Options runtime.CaptureOptions
}

// New returns an empty fake session.
func New() *Session {
	return &Session{
		objects: make(map[string]*Object),
		globals: make(map[string]string),
		files:   make(map[string][]byte),
	}
}

// Add registers obj and returns its handle.
func (s *Session) Add(obj *Object) runtime.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(obj)
}

func (s *Session) addLocked(obj *Object) runtime.Handle {
	s.nextID++
	id := fmt.Sprintf("obj-%d", s.nextID)
	s.objects[id] = obj
	return runtime.Handle{ID: id, Type: obj.Type}
}

// SetGlobal binds obj to name in the workspace.
func (s *Session) SetGlobal(name string, obj *Object) runtime.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.addLocked(obj)
	s.globals[name] = h.ID
	return h
}

// Globals returns the bound workspace names in sorted order.
func (s *Session) Globals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.globals))
	for name := range s.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Leaked returns workspace names starting with prefix.
func (s *Session) Leaked(prefix string) []string {
	var leaked []string
	for _, name := range s.Globals() {
		if strings.HasPrefix(name, prefix) {
			leaked = append(leaked, name)
		}
	}
	return leaked
}

// On scripts the outcome of Capture calls whose code contains match.
// Later registrations win over earlier ones.
func (s *Session) On(match string, script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts = append(s.scripts, scriptEntry{match: match, script: script})
}

// FailOn makes Eval calls whose code contains match fail with err.
func (s *Session) FailOn(match string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = append(s.failOn, failEntry{match: match, err: err})
}

// Evals returns the code of every Eval call so far.
func (s *Session) Evals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.evals...)
}

// Captures returns every Capture call so far.
func (s *Session) Captures() []CaptureCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CaptureCall(nil), s.captures...)
}

// Installed returns the packages installed so far.
func (s *Session) Installed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.installed...)
}

// InitCalls returns how often Init was called.
func (s *Session) InitCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inits
}

// FailInstall makes installation of name fail.
func (s *Session) FailInstall(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.installOK == nil {
		s.installOK = make(map[string]bool)
	}
	s.installOK[name] = false
}

// Init implements runtime.Session.
func (s *Session) Init(_ context.Context) (runtime.VersionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return runtime.VersionInfo{}, runtime.ErrSessionClosed
	}
	s.inits++
	return runtime.VersionInfo{
		Interpreter: "R version 4.4.1 (runtimetest)",
		Runtime:     "runtimetest",
		StartedAt:   time.Now(),
	}, nil
}

// Capture implements runtime.Session.
func (s *Session) Capture(ctx context.Context, code string, opts runtime.CaptureOptions) (runtime.CaptureResult, error) {
	if err := ctx.Err(); err != nil {
		return runtime.CaptureResult{}, err
	}
	if s.CaptureDelay > 0 {
		select {
		case <-time.After(s.CaptureDelay):
		case <-ctx.Done():
			return runtime.CaptureResult{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return runtime.CaptureResult{}, runtime.ErrSessionClosed
	}
	s.captures = append(s.captures, CaptureCall{Code: code, Options: opts})
	if s.CaptureErr != nil {
		return runtime.CaptureResult{}, s.CaptureErr
	}

	wrapper := parseWrapper(code)
	for _, name := range wrapper.removed {
		delete(s.globals, name)
	}

	script, ok := s.findScript(code)
	if !ok {
		return runtime.CaptureResult{}, &runtime.EvalError{Message: s.ErrorPrefix + "no script for code"}
	}

	if wrapper.warningsName != "" {
		s.globals[wrapper.warningsName] = s.addLocked(Text(script.Warnings...)).ID
	}
	for name, obj := range script.Globals {
		s.globals[name] = s.addLocked(obj).ID
	}

	result := runtime.CaptureResult{
		Signals: append([]runtime.Signal(nil), script.Signals...),
		Images:  append([]runtime.Image(nil), script.Images...),
	}

	if script.Error != "" {
		if wrapper.errorName != "" && !script.Unhandled {
			msg := script.Error
			if len(script.Warnings) > 0 {
				msg += wrapper.separator + strings.Join(script.Warnings, "\n")
			}
			s.globals[wrapper.errorName] = s.addLocked(Text(msg)).ID
		}
		return result, &runtime.EvalError{Message: s.ErrorPrefix + script.Error}
	}

	if script.Value != nil {
		h := s.addLocked(script.Value)
		result.Value = &h
		result.Visible = script.Visible
	}
	return result, nil
}

func (s *Session) findScript(code string) (Script, bool) {
	for i := len(s.scripts) - 1; i >= 0; i-- {
		if strings.Contains(code, s.scripts[i].match) {
			return s.scripts[i].script, true
		}
	}
	return Script{}, false
}

// Eval implements runtime.Session.
func (s *Session) Eval(ctx context.Context, code string) (runtime.Handle, error) {
	if err := ctx.Err(); err != nil {
		return runtime.Handle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return runtime.Handle{}, runtime.ErrSessionClosed
	}
	s.evals = append(s.evals, code)
	for _, f := range s.failOn {
		if strings.Contains(code, f.match) {
			return runtime.Handle{}, f.err
		}
	}

	obj, err := s.interpret(code)
	if err != nil {
		return runtime.Handle{}, err
	}
	return s.addLocked(obj), nil
}

// Bind implements runtime.Session.
func (s *Session) Bind(ctx context.Context, name string, h runtime.Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return runtime.ErrSessionClosed
	}
	if s.BindErr != nil {
		return s.BindErr
	}
	if _, ok := s.objects[h.ID]; !ok {
		return fmt.Errorf("unknown handle %q", h.ID)
	}
	s.globals[name] = h.ID
	return nil
}

// Unbind implements runtime.Session.
func (s *Session) Unbind(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return runtime.ErrSessionClosed
	}
	delete(s.globals, name)
	return s.UnbindErr
}

// ToNative implements runtime.Session.
func (s *Session) ToNative(ctx context.Context, h runtime.Handle) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[h.ID]
	if !ok {
		return nil, fmt.Errorf("unknown handle %q", h.ID)
	}
	if obj.NoNative {
		return nil, runtime.ErrNoNativeValue
	}
	return obj.Native, nil
}

// FS implements runtime.Session.
func (s *Session) FS() runtime.FileSystem {
	return fakeFS{s: s}
}

// InstallPackages implements runtime.Session.
func (s *Session) InstallPackages(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if ok, known := s.installOK[name]; known && !ok {
			return &runtime.EvalError{Message: fmt.Sprintf("package %q is not available", name)}
		}
	}
	s.installed = append(s.installed, names...)
	return nil
}

// Close implements runtime.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ runtime.Session = (*Session)(nil)

var (
	reCapture = regexp.MustCompile("^capture\\.output\\((print|summary|str)\\(`([^`]+)`(.*)\\)\\)$")
	reInherits = regexp.MustCompile("^inherits\\(`([^`]+)`, c\\((.*)\\)\\)$")
	reGetName  = regexp.MustCompile(`get\("([^"]+)", envir = globalenv\(\)\)`)
	reExists   = regexp.MustCompile(`^exists\("([^"]+)", envir = globalenv\(\), inherits = FALSE\)$`)
	reLookup   = regexp.MustCompile(`^if \(exists\("([^"]+)"`)
	reRemove   = regexp.MustCompile(`^rm\(list = intersect\(c\((.*)\), ls\(`)
	reQuoted   = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// interpret evaluates the code shapes the notebook generates.
func (s *Session) interpret(code string) (*Object, error) {
	switch {
	case strings.HasPrefix(code, "options("):
		return &Object{Type: "list", Native: nil}, nil

	case reCapture.MatchString(code):
		m := reCapture.FindStringSubmatch(code)
		obj, err := s.globalLocked(m[2])
		if err != nil {
			return nil, err
		}
		var lines []string
		switch m[1] {
		case "print":
			if obj.PrintErr != nil {
				return nil, obj.PrintErr
			}
			lines = obj.Print
		case "summary":
			lines = obj.Summary
		case "str":
			lines = obj.Str
		}
		return &Object{Type: runtime.TypeCharacter, Native: append([]string{}, lines...)}, nil

	case reInherits.MatchString(code):
		m := reInherits.FindStringSubmatch(code)
		obj, err := s.globalLocked(m[1])
		if err != nil {
			return nil, err
		}
		for _, class := range unquoteAll(m[2]) {
			for _, have := range obj.Class {
				if class == have {
					return Bool(true), nil
				}
			}
		}
		return Bool(false), nil

	case strings.HasPrefix(code, "local({"):
		m := reGetName.FindStringSubmatch(code)
		if m == nil {
			return nil, &runtime.EvalError{Message: "malformed condition lookup"}
		}
		obj, err := s.globalLocked(m[1])
		if err != nil {
			return nil, err
		}
		switch {
		case obj.Type == runtime.TypeCharacter:
			lines, _ := obj.Native.([]string)
			return Text(strings.Join(lines, "\n")), nil
		case obj.Condition && obj.Message != nil:
			return Text(*obj.Message), nil
		case obj.Condition:
			return Text(obj.ConditionMessage), nil
		case obj.AsCharacter != nil:
			return Text(strings.Join(obj.AsCharacter, "\n")), nil
		default:
			return nil, &runtime.EvalError{Message: "cannot coerce to character"}
		}

	case reLookup.MatchString(code):
		m := reLookup.FindStringSubmatch(code)
		id, ok := s.globals[m[1]]
		if !ok {
			return Text(), nil
		}
		return s.objects[id], nil

	case reExists.MatchString(code):
		m := reExists.FindStringSubmatch(code)
		_, ok := s.globals[m[1]]
		return Bool(ok), nil

	case reRemove.MatchString(code):
		m := reRemove.FindStringSubmatch(code)
		for _, name := range unquoteAll(m[1]) {
			delete(s.globals, name)
		}
		return &Object{Type: runtime.TypeNull}, nil

	case reGetName.MatchString(code) && strings.HasPrefix(code, "get("):
		m := reGetName.FindStringSubmatch(code)
		return s.globalLocked(m[1])
	}
	return nil, &runtime.EvalError{Message: fmt.Sprintf("runtimetest: unsupported code %q", code)}
}

func (s *Session) globalLocked(name string) (*Object, error) {
	id, ok := s.globals[name]
	if !ok {
		return nil, &runtime.EvalError{Message: fmt.Sprintf("object '%s' not found", name)}
	}
	return s.objects[id], nil
}

func unquoteAll(list string) []string {
	var out []string
	for _, m := range reQuoted.FindAllStringSubmatch(list, -1) {
		v, err := strconv.Unquote(`"` + m[1] + `"`)
		if err != nil {
			v = m[1]
		}
		out = append(out, v)
	}
	return out
}

type wrapperInfo struct {
	warningsName string
	errorName    string
	separator    string
	removed      []string
}

var (
	reWarningsInit = regexp.MustCompile(`^assign\("([^"]+)", character\(0\)`)
	reErrorAssign  = regexp.MustCompile(`assign\("([^"]+)", msg, envir`)
	reSeparator    = regexp.MustCompile(`paste0\(msg, "((?:[^"\\]|\\.)*)"`)
	reReset        = regexp.MustCompile(`(?m)^rm\(list = intersect\(c\((.*)\), ls\(`)
)

// parseWrapper recovers the reserved names and separator from wrapped code.
func parseWrapper(code string) wrapperInfo {
	var w wrapperInfo
	if m := reWarningsInit.FindStringSubmatch(code); m != nil {
		w.warningsName = m[1]
	}
	if m := reErrorAssign.FindStringSubmatch(code); m != nil {
		w.errorName = m[1]
	}
	for _, m := range reReset.FindAllStringSubmatch(code, -1) {
		w.removed = append(w.removed, unquoteAll(m[1])...)
	}
	if m := reSeparator.FindStringSubmatch(code); m != nil {
		if sep, err := strconv.Unquote(`"` + m[1] + `"`); err == nil {
			w.separator = sep
		}
	}
	return w
}

type fakeFS struct {
	s *Session
}

func (f fakeFS) WriteFile(_ context.Context, path string, data []byte) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.files[path] = append([]byte(nil), data...)
	return nil
}

func (f fakeFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	data, ok := f.s.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", path)
	}
	return append([]byte(nil), data...), nil
}

func (f fakeFS) ReadDir(_ context.Context, dir string) ([]runtime.FileInfo, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []runtime.FileInfo
	for path, data := range f.s.files {
		name, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		out = append(out, runtime.FileInfo{Name: name, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeFS) Remove(_ context.Context, path string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.files[path]; !ok {
		return fmt.Errorf("%s: no such file", path)
	}
	delete(f.s.files, path)
	return nil
}
