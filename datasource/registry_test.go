package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	s := &mockSource{kind: "local", name: "samples", enabled: true}

	require.NoError(t, registry.Register(s))
	err := registry.Register(s)
	assert.ErrorIs(t, err, ErrSourceExists)

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&mockSource{kind: "local"}))
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&mockSource{kind: "local", name: "samples", enabled: true}))

	got, ok := registry.Get("samples")
	require.True(t, ok)
	assert.Equal(t, "samples", got.Name())

	_, ok = registry.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(&mockSource{kind: "local", name: "c", enabled: true})
	_ = registry.Register(&mockSource{kind: "web", name: "a", enabled: true})
	_ = registry.Register(&mockSource{kind: "s3", name: "b", enabled: false})

	assert.Len(t, registry.List(), 3)
	assert.Len(t, registry.ListEnabled(), 2)
	assert.Equal(t, []string{"a", "b", "c"}, registry.Names())
}

func TestRegistry_ListByKind(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(&mockSource{kind: "local", name: "local1", enabled: true})
	_ = registry.Register(&mockSource{kind: "local", name: "local2", enabled: true})
	_ = registry.Register(&mockSource{kind: "web", name: "web1", enabled: true})

	assert.Len(t, registry.ListByKind("local"), 2)
	assert.Len(t, registry.ListByKind("web"), 1)
	assert.Empty(t, registry.ListByKind("s3"))
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	s := &mockSource{kind: "local", name: "samples", enabled: true}
	_ = registry.Register(s)

	registry.Unregister("samples")

	_, ok := registry.Get("samples")
	assert.False(t, ok)
	assert.Equal(t, 1, s.stopped)
}

func TestRegistry_Create(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterFactory("local", func(name string) (Source, error) {
		return &mockSource{kind: "local", name: name, enabled: true}, nil
	})
	registry.RegisterFactory("broken", func(string) (Source, error) {
		return nil, errors.New("no credentials")
	})

	s, err := registry.Create("local", "samples")
	require.NoError(t, err)
	assert.Equal(t, "samples", s.Name())
	_, ok := registry.Get("samples")
	assert.True(t, ok)

	_, err = registry.Create("local", "samples")
	assert.ErrorIs(t, err, ErrSourceExists)

	_, err = registry.Create("unknown", "x")
	assert.Error(t, err)

	_, err = registry.Create("broken", "y")
	assert.ErrorContains(t, err, "no credentials")
}

func TestRegistry_StartStopAll(t *testing.T) {
	registry := NewRegistry()
	on := &mockSource{kind: "local", name: "on", enabled: true}
	off := &mockSource{kind: "local", name: "off", enabled: false}
	_ = registry.Register(on)
	_ = registry.Register(off)

	require.NoError(t, registry.StartAll(context.Background()))
	assert.Equal(t, 1, on.started)
	assert.Equal(t, 0, off.started)

	require.NoError(t, registry.StopAll())
	assert.Equal(t, 1, on.stopped)
	assert.Equal(t, 1, off.stopped)
}

func TestRegistry_StartAllError(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(&mockSource{kind: "s3", name: "bucket", enabled: true, startErr: ErrSourceUnavailable})

	err := registry.StartAll(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorContains(t, err, "bucket")
}

func TestRegistry_StopAllJoinsErrors(t *testing.T) {
	registry := NewRegistry()
	first := errors.New("first")
	second := errors.New("second")
	_ = registry.Register(&mockSource{kind: "local", name: "a", stopErr: first})
	_ = registry.Register(&mockSource{kind: "local", name: "b", stopErr: second})

	err := registry.StopAll()
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}
