package s3

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
)

const noSuchKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

// fakeS3 serves objects of bucket "datasets" with path-style addressing.
// Requests for the bucket itself answer HEAD with 200 and list-type=2
// with a ListObjectsV2 result.
func fakeS3(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := strings.CutPrefix(r.URL.Path, "/datasets/")
		if !ok && r.URL.Path == "/datasets" {
			key, ok = "", true
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if key == "" {
			if r.URL.Query().Has("list-type") {
				w.Header().Set("Content-Type", "application/xml")
				_, _ = w.Write([]byte(listResult(objects, r.URL.Query().Get("prefix"), r.URL.Query().Get("delimiter"))))
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}
		body, ok := objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(noSuchKey))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func listResult(objects map[string]string, prefix, delimiter string) string {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>datasets</Name><Prefix>%s</Prefix><MaxKeys>1000</MaxKeys>", prefix)
	fmt.Fprintf(&b, "<Delimiter>%s</Delimiter><IsTruncated>false</IsTruncated>", delimiter)
	seen := map[string]bool{}
	var common []string
	count := 0
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, delimiter); delimiter != "" && i >= 0 {
			p := prefix + rest[:i+len(delimiter)]
			if !seen[p] {
				seen[p] = true
				common = append(common, p)
			}
			continue
		}
		count++
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified>", k)
		fmt.Fprintf(&b, `<ETag>"d41d8cd98f00b204e9800998ecf8427e"</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`, len(objects[k]))
	}
	for _, p := range common {
		fmt.Fprintf(&b, "<CommonPrefixes><Prefix>%s</Prefix></CommonPrefixes>", p)
	}
	fmt.Fprintf(&b, "<KeyCount>%d</KeyCount></ListBucketResult>", count+len(common))
	return b.String()
}

func testConfig(srv *httptest.Server) Config {
	return Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "datasets",
		Prefix:    "/public/",
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no endpoint", cfg: Config{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{name: "no credentials", cfg: Config{Endpoint: "localhost:9000", Bucket: "c"}},
		{name: "no bucket", cfg: Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("s3", tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSource_ObjectKey(t *testing.T) {
	s, err := New("bucket", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "c", Prefix: "/public/"})
	require.NoError(t, err)

	key, err := s.objectKey("penguins.csv")
	require.NoError(t, err)
	assert.Equal(t, "public/penguins.csv", key)

	for _, bad := range []string{"", "..", "../x", "a/../../x", "a//b"} {
		_, err := s.objectKey(bad)
		assert.ErrorIs(t, err, datasource.ErrFileNotFound, "objectKey(%q)", bad)
	}
}

func TestSource_Fetch(t *testing.T) {
	srv := fakeS3(t, map[string]string{"public/penguins.csv": "species\nAdelie\n"})
	s, err := New("bucket", testConfig(srv))
	require.NoError(t, err)
	ctx := context.Background()

	data, err := s.Fetch(ctx, "penguins.csv")
	require.NoError(t, err)
	assert.Equal(t, "species\nAdelie\n", string(data))

	_, err = s.Fetch(ctx, "missing.csv")
	assert.ErrorIs(t, err, datasource.ErrFileNotFound)

	s.SetEnabled(false)
	_, err = s.Fetch(ctx, "penguins.csv")
	assert.ErrorIs(t, err, datasource.ErrSourceDisabled)
}

func TestSource_List(t *testing.T) {
	srv := fakeS3(t, map[string]string{
		"public/penguins.csv":    "species\nAdelie\n",
		"public/mtcars.csv":      "mpg\n21\n",
		"public/nested/iris.csv": "x",
		"private/secret.csv":     "x",
	})
	s, err := New("bucket", testConfig(srv))
	require.NoError(t, err)
	ctx := context.Background()

	files, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "mtcars.csv", files[0].Name)
	assert.Equal(t, "penguins.csv", files[1].Name)
	assert.Equal(t, int64(len("species\nAdelie\n")), files[1].Size)
	assert.Equal(t, "bucket", files[1].Source)
	assert.Equal(t, 2024, files[1].ModTime.Year())

	s.SetEnabled(false)
	files, err = s.List(ctx)
	assert.ErrorIs(t, err, datasource.ErrSourceDisabled)
	assert.Empty(t, files)
}

func TestSource_FetchTooLarge(t *testing.T) {
	srv := fakeS3(t, map[string]string{"public/big.csv": strings.Repeat("x", 32)})
	cfg := testConfig(srv)
	cfg.MaxBytes = 8
	s, err := New("bucket", cfg)
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), "big.csv")
	assert.ErrorIs(t, err, datasource.ErrFileTooLarge)
}

func TestSource_Start(t *testing.T) {
	srv := fakeS3(t, nil)
	s, err := New("bucket", testConfig(srv))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	cfg := testConfig(srv)
	cfg.Bucket = "other"
	missing, err := New("other", cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, missing.Start(context.Background()), datasource.ErrSourceUnavailable)
}

func TestFactory(t *testing.T) {
	registry := datasource.NewRegistry()
	registry.RegisterFactory(Kind, Factory(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "c"}))

	s, err := registry.Create(Kind, "bucket")
	require.NoError(t, err)
	assert.Equal(t, Kind, s.Kind())
	assert.Equal(t, "bucket", s.Name())
}
