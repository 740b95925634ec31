// Package local provides a datasource.Source backed by a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
)

// Kind is the source kind of local directories.
const Kind = "local"

// Source serves the regular files of one directory.
type Source struct {
	name string
	dir  string

	mu      sync.RWMutex
	enabled bool
}

// New creates a local source for dir.
func New(name, dir string) *Source {
	return &Source{name: name, dir: dir, enabled: true}
}

// Factory returns a datasource.Factory creating sources for dir.
func Factory(dir string) datasource.Factory {
	return func(name string) (datasource.Source, error) {
		if dir == "" {
			return nil, fmt.Errorf("local source %q: directory is required", name)
		}
		return New(name, dir), nil
	}
}

// Kind returns the source kind.
func (s *Source) Kind() string {
	return Kind
}

// Name returns the source instance name.
func (s *Source) Name() string {
	return s.name
}

// Dir returns the served directory.
func (s *Source) Dir() string {
	return s.dir
}

// Enabled returns whether the source is enabled.
func (s *Source) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled enables or disables the source.
func (s *Source) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// List returns the regular files of the directory sorted by name.
// Hidden files are skipped.
func (s *Source) List(_ context.Context) ([]datasource.FileInfo, error) {
	if !s.Enabled() {
		return nil, datasource.ErrSourceDisabled
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, err)
	}
	out := make([]datasource.FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, datasource.FileInfo{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Source:  s.name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Fetch reads the named file. Names that leave the directory are rejected.
func (s *Source) Fetch(_ context.Context, name string) ([]byte, error) {
	if !s.Enabled() {
		return nil, datasource.ErrSourceDisabled
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %s", datasource.ErrFileNotFound, name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", datasource.ErrFileNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Start checks that the directory exists.
func (s *Source) Start(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", datasource.ErrSourceUnavailable, s.dir)
	}
	return nil
}

// Stop is a no-op for local sources.
func (s *Source) Stop() error {
	return nil
}

var _ datasource.Source = (*Source)(nil)
