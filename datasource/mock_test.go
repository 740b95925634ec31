package datasource

import (
	"context"
	"fmt"
)

type mockSource struct {
	kind    string
	name    string
	enabled bool
	files   map[string][]byte

	started  int
	stopped  int
	startErr error
	stopErr  error
	listErr  error
}

func (m *mockSource) Kind() string  { return m.kind }
func (m *mockSource) Name() string  { return m.name }
func (m *mockSource) Enabled() bool { return m.enabled }

func (m *mockSource) List(_ context.Context) ([]FileInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]FileInfo, 0, len(m.files))
	for name, data := range m.files {
		out = append(out, FileInfo{Name: name, Size: int64(len(data))})
	}
	return out, nil
}

func (m *mockSource) Fetch(_ context.Context, name string) ([]byte, error) {
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return data, nil
}

func (m *mockSource) Start(_ context.Context) error {
	m.started++
	return m.startErr
}

func (m *mockSource) Stop() error {
	m.stopped++
	return m.stopErr
}
