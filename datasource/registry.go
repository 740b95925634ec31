package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrSourceExists is returned when registering a duplicate source.
var ErrSourceExists = errors.New("source already registered")

// Registry manages source instances.
type Registry struct {
	mu        sync.RWMutex
	sources   map[string]Source
	factories map[string]Factory
}

// NewRegistry creates a new source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:   make(map[string]Source),
		factories: make(map[string]Factory),
	}
}

// RegisterFactory registers a factory for a source kind.
func (r *Registry) RegisterFactory(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == "" || factory == nil {
		return
	}
	r.factories[kind] = factory
}

// Create builds a source of the given kind with its registered factory and
// registers it under name.
func (r *Registry) Create(kind, name string) (Source, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no factory for source kind %q", kind)
	}

	s, err := factory(name)
	if err != nil {
		return nil, fmt.Errorf("create %s source %q: %w", kind, name, err)
	}
	if err := r.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) error {
	if s == nil {
		return fmt.Errorf("source is nil")
	}
	name := s.Name()
	if name == "" {
		return fmt.Errorf("source name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("%w: %s", ErrSourceExists, name)
	}
	r.sources[name] = s
	return nil
}

// Unregister stops and removes a source from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.sources[name]; exists {
		_ = s.Stop()
		delete(r.sources, name)
	}
}

// Get retrieves a source by name.
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// List returns all sources sorted by name.
func (r *Registry) List() []Source {
	r.mu.RLock()
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ListEnabled returns enabled sources only.
func (r *Registry) ListEnabled() []Source {
	all := r.List()
	out := make([]Source, 0, len(all))
	for _, s := range all {
		if s.Enabled() {
			out = append(out, s)
		}
	}
	return out
}

// ListByKind returns sources matching the given kind.
func (r *Registry) ListByKind(kind string) []Source {
	all := r.List()
	out := make([]Source, 0, len(all))
	for _, s := range all {
		if s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

// Names returns source names in sorted order.
func (r *Registry) Names() []string {
	all := r.List()
	out := make([]string, 0, len(all))
	for _, s := range all {
		out = append(out, s.Name())
	}
	return out
}

// StartAll starts all enabled sources.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, s := range r.ListEnabled() {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start source %s: %w", s.Name(), err)
		}
	}
	return nil
}

// StopAll stops all sources and returns the joined errors.
func (r *Registry) StopAll() error {
	var errs []error
	for _, s := range r.List() {
		if err := s.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop source %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
