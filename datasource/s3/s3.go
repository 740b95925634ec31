// Package s3 provides a datasource.Source serving objects of an S3 bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
)

// Kind is the source kind of S3 sources.
const Kind = "s3"

// DefaultMaxBytes bounds fetched objects.
const DefaultMaxBytes = 50 << 20

// Config configures an S3 source.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// Prefix limits the source to keys below it, e.g. "datasets/".
	Prefix string

	// MaxBytes rejects larger objects. Default: 50 MiB
	MaxBytes int64
}

// Source serves the objects below a bucket prefix. It is read-only.
type Source struct {
	name     string
	client   *minio.Client
	bucket   string
	prefix   string
	maxBytes int64

	mu      sync.RWMutex
	enabled bool
}

// New creates an S3 source.
func New(name string, cfg Config) (*Source, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Source{
		name:     name,
		client:   client,
		bucket:   bucket,
		prefix:   normalizePrefix(cfg.Prefix),
		maxBytes: maxBytes,
		enabled:  true,
	}, nil
}

// Factory returns a datasource.Factory creating S3 sources from cfg.
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

// List returns the objects directly below the prefix sorted by name.
func (s *Source) List(ctx context.Context) ([]datasource.FileInfo, error) {
	if !s.Enabled() {
		return nil, datasource.ErrSourceDisabled
	}
	out := make([]datasource.FileInfo, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, datasource.FileInfo{
			Name:    name,
			Size:    obj.Size,
			ModTime: obj.LastModified,
			Source:  s.name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Fetch downloads the object for name.
func (s *Source) Fetch(ctx context.Context, name string) ([]byte, error) {
	if !s.Enabled() {
		return nil, datasource.ErrSourceDisabled
	}
	key, err := s.objectKey(name)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, s.maxBytes+1))
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: %s", datasource.ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", datasource.ErrFileTooLarge, name, s.maxBytes)
	}
	return data, nil
}

// Start checks that the bucket exists.
func (s *Source) Start(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %v", datasource.ErrSourceUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %s does not exist", datasource.ErrSourceUnavailable, s.bucket)
	}
	return nil
}

// Stop is a no-op; the minio client holds no long-lived connections of its own.
func (s *Source) Stop() error {
	return nil
}

func (s *Source) objectKey(name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" || path.Clean(name) != name || strings.HasPrefix(name, "../") || name == ".." {
		return "", fmt.Errorf("%w: %q", datasource.ErrFileNotFound, name)
	}
	return s.prefix + name, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

var _ datasource.Source = (*Source)(nil)
