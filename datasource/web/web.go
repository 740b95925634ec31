// Package web provides a datasource.Source that downloads files over HTTP.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
)

// Kind is the source kind of web sources.
const Kind = "web"

// Defaults for Config.
const (
	DefaultCacheSize = 64
	DefaultCacheTTL  = 10 * time.Minute
	DefaultMaxBytes  = 50 << 20
	DefaultTimeout   = 30 * time.Second
)

// Config configures a web source.
type Config struct {
	// BaseURL is joined with relative file names. Absolute http(s) names
	// are fetched as given.
	BaseURL string

	// Files are the names reported by List. The web offers no directory
	// listing, so only configured names are advertised.
	Files []string

	// Client performs the requests. Default: a client with DefaultTimeout.
	Client *http.Client

	// CacheSize is the number of bodies kept in memory. Default: 64
	CacheSize int

	// CacheTTL is how long a cached body stays valid. Default: 10m
	CacheTTL time.Duration

	// MaxBytes rejects larger bodies. Default: 50 MiB
	MaxBytes int64
}

// Source fetches files from the web with an in-memory cache.
type Source struct {
	name     string
	base     *url.URL
	files    []string
	client   *http.Client
	cache    *expirable.LRU[string, []byte]
	maxBytes int64

	mu      sync.RWMutex
	enabled bool
}

// New creates a web source.
func New(name string, cfg Config) (*Source, error) {
	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("web source %q: parse base url: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("web source %q: unsupported scheme %q", name, u.Scheme)
		}
		base = u
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &Source{
		name:     name,
		base:     base,
		files:    append([]string(nil), cfg.Files...),
		client:   cfg.Client,
		cache:    expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
		maxBytes: cfg.MaxBytes,
		enabled:  true,
	}, nil
}

// Factory returns a datasource.Factory creating web sources from cfg.
func Factory(cfg Config) datasource.Factory {
	return func(name string) (datasource.Source, error) {
		return New(name, cfg)
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

// List returns the configured file names.
func (s *Source) List(_ context.Context) ([]datasource.FileInfo, error) {
	if !s.Enabled() {
		return nil, datasource.ErrSourceDisabled
	}
	out := make([]datasource.FileInfo, 0, len(s.files))
	for _, f := range s.files {
		info := datasource.FileInfo{Name: f, Source: s.name}
		if data, ok := s.cache.Peek(s.resolveOrEmpty(f)); ok {
			info.Size = int64(len(data))
		}
		out = append(out, info)
	}
	return out, nil
}

// Fetch downloads name, serving repeated requests from the cache.
func (s *Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	if !s.Enabled() {
		return nil, datasource.ErrSourceDisabled
	}
	target, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	if data, ok := s.cache.Get(target); ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", datasource.ErrFileNotFound, name)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s returned %s", datasource.ErrSourceUnavailable, target, resp.Status)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", datasource.ErrFileTooLarge, name, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", datasource.ErrFileTooLarge, name, s.maxBytes)
	}
	s.cache.Add(target, data)
	return data, nil
}

// Start is a no-op for web sources.
func (s *Source) Start(_ context.Context) error {
	return nil
}

// Stop drops cached bodies.
func (s *Source) Stop() error {
	s.cache.Purge()
	return nil
}

func (s *Source) resolve(name string) (string, error) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		if _, err := url.Parse(name); err != nil {
			return "", fmt.Errorf("%w: %v", datasource.ErrFileNotFound, err)
		}
		return name, nil
	}
	if s.base == nil {
		return "", fmt.Errorf("%w: %s (no base url)", datasource.ErrFileNotFound, name)
	}
	if name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", datasource.ErrFileNotFound, name)
	}
	u := *s.base
	u.Path = path.Join("/", u.Path, name)
	return u.String(), nil
}

func (s *Source) resolveOrEmpty(name string) string {
	target, err := s.resolve(name)
	if err != nil {
		return ""
	}
	return target
}

// FileName returns the last path element of a URL or name, for use as the
// upload target name.
func FileName(name string) string {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	base := path.Base(name)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

var _ datasource.Source = (*Source)(nil)

