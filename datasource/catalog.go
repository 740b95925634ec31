package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFileID is returned for malformed file IDs.
var ErrInvalidFileID = errors.New("invalid file ID format")

// Catalog combines the files of all enabled sources. Files are addressed by
// IDs of the form "source:name".
type Catalog struct {
	registry *Registry
}

// NewCatalog creates a catalog over registry.
func NewCatalog(registry *Registry) *Catalog {
	return &Catalog{registry: registry}
}

// ListAll returns the files of every enabled source with Source filled in.
func (c *Catalog) ListAll(ctx context.Context) ([]FileInfo, error) {
	all := make([]FileInfo, 0)
	for _, s := range c.registry.ListEnabled() {
		files, err := s.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.Name(), err)
		}
		for i := range files {
			if files[i].Source == "" {
				files[i].Source = s.Name()
			}
			all = append(all, files[i])
		}
	}
	return all, nil
}

// Fetch returns the content of the file with the given ID.
func (c *Catalog) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	sourceName, name, err := ParseFileID(fileID)
	if err != nil {
		return nil, err
	}
	return c.FetchFrom(ctx, sourceName, name)
}

// FetchFrom returns the content of name from the named source.
func (c *Catalog) FetchFrom(ctx context.Context, sourceName, name string) ([]byte, error) {
	s, ok := c.registry.Get(sourceName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceName)
	}
	if !s.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrSourceDisabled, sourceName)
	}
	return s.Fetch(ctx, name)
}

// ParseFileID splits a file ID into source and file name.
func ParseFileID(id string) (sourceName, name string, err error) {
	sourceName, name, ok := strings.Cut(id, ":")
	if !ok || sourceName == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidFileID, id)
	}
	return sourceName, name, nil
}

// FormatFileID builds a file ID from source and file name.
func FormatFileID(sourceName, name string) string {
	if sourceName == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", sourceName, name)
}
