package exec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource/local"
	"github.com/QuesmaOrg/demo-webr-ggplot/history"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime/runtimetest"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Info(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(string, ...any) {}

type mockRecorder struct {
	mu   sync.Mutex
	runs []history.Run
	err  error
}

func (r *mockRecorder) Record(_ context.Context, run history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return r.err
}

func printable(lines ...string) *runtimetest.Object {
	return &runtimetest.Object{Type: "double", NoNative: true, Print: lines}
}

// newNotebook returns an initialized notebook without default packages.
func newNotebook(t *testing.T, fake *runtimetest.Session, opts Options) *Notebook {
	t.Helper()
	opts.Session = fake
	if opts.DefaultPackages == nil {
		opts.DefaultPackages = []string{}
	}
	nb, err := New(opts)
	require.NoError(t, err)
	_, err = nb.Init(context.Background())
	require.NoError(t, err)
	return nb
}

func TestNew_MissingSession(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Session: runtimetest.New(), RunMode: "parallel"})
	assert.ErrorIs(t, err, code.ErrConfiguration)

	_, err = New(Options{Session: runtimetest.New(), Executor: []code.Option{code.WithWidth(-1)}})
	assert.ErrorIs(t, err, code.ErrConfiguration)
}

func TestNotebook_RequiresInit(t *testing.T) {
	nb, err := New(Options{Session: runtimetest.New()})
	require.NoError(t, err)

	_, err = nb.Run(context.Background(), "1 + 1")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = nb.Files(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNotebook_InitInstallsDefaults(t *testing.T) {
	fake := runtimetest.New()
	nb, err := New(Options{Session: fake})
	require.NoError(t, err)

	v, err := nb.Init(context.Background())
	require.NoError(t, err)
	assert.Contains(t, v.Interpreter, "R version")
	assert.Equal(t, DefaultPackages, fake.Installed())
	assert.Equal(t, []string{"dplyr", "ggplot2", "ggrepel"}, nb.Installed())
	assert.Equal(t, []code.DisplayMessage{
		code.TextMessage(code.CategorySuccess, "Installed packages: ggplot2, dplyr, ggrepel"),
	}, nb.Messages())

	_, err = nb.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.InitCalls())
	assert.Len(t, fake.Installed(), 3)
}

func TestNotebook_InitInstallFailure(t *testing.T) {
	fake := runtimetest.New()
	fake.FailInstall("ggrepel")
	logger := &recordingLogger{}
	nb, err := New(Options{Session: fake, Logger: logger})
	require.NoError(t, err)

	_, err = nb.Init(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nb.Installed())
	msgs := nb.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, code.CategoryError, msgs[0].Category)
	assert.Contains(t, msgs[0].Text, "ggplot2, dplyr, ggrepel")
	assert.Contains(t, logger.warns, "installing default packages failed")
}

func TestNotebook_Run(t *testing.T) {
	fake := runtimetest.New()
	fake.On("1 + 1", runtimetest.Script{Value: printable("[1] 2"), Visible: true})
	nb := newNotebook(t, fake, Options{})

	res, err := nb.Run(context.Background(), "1 + 1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, []code.DisplayMessage{code.TextMessage(code.CategoryStdout, "[1] 2")}, res.Messages)
	assert.Equal(t, res.Messages, nb.Messages())
}

func TestNotebook_RunError(t *testing.T) {
	fake := runtimetest.New()
	fake.On("y + 1", runtimetest.Script{Error: "object 'y' not found"})
	nb := newNotebook(t, fake, Options{})

	res, err := nb.Run(context.Background(), "y + 1")
	require.NoError(t, err)
	assert.False(t, res.OK())
	require.Len(t, res.Messages, 1)
	assert.Equal(t, code.TextMessage(code.CategoryError, "object 'y' not found"), res.Messages[0])
}

func TestNotebook_ExecutorOptions(t *testing.T) {
	fake := runtimetest.New()
	fake.On("1", runtimetest.Script{})
	nb := newNotebook(t, fake, Options{Executor: []code.Option{code.WithWidth(120)}})

	_, err := nb.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Contains(t, fake.Evals(), "options(width = 120, warn = 1)")
}

func TestNotebook_RunRecordsHistory(t *testing.T) {
	fake := runtimetest.New()
	fake.On("1 + 1", runtimetest.Script{Value: printable("[1] 2"), Visible: true})
	rec := &mockRecorder{}
	nb := newNotebook(t, fake, Options{History: rec})

	res, err := nb.Run(context.Background(), "1 + 1")
	require.NoError(t, err)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, res.ID, run.ID)
	assert.Equal(t, "1 + 1", run.Code)
	assert.True(t, run.Success)
	assert.Equal(t, res.Messages, run.Messages)
}

func TestNotebook_HistoryFailureIsLogged(t *testing.T) {
	fake := runtimetest.New()
	fake.On("1", runtimetest.Script{})
	logger := &recordingLogger{}
	nb := newNotebook(t, fake, Options{History: &mockRecorder{err: errors.New("disk full")}, Logger: logger})

	res, err := nb.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Contains(t, logger.warns, "recording run failed")
}

func TestNotebook_RunHistoryStore(t *testing.T) {
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	fake := runtimetest.New()
	fake.On("1 + 1", runtimetest.Script{Value: printable("[1] 2"), Visible: true})
	nb := newNotebook(t, fake, Options{History: store})

	res, err := nb.Run(context.Background(), "1 + 1")
	require.NoError(t, err)

	got, err := store.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 + 1", got.Code)
	assert.Equal(t, res.Messages, got.Messages)
}

func TestNotebook_RejectWhenBusy(t *testing.T) {
	fake := runtimetest.New()
	fake.On("1", runtimetest.Script{})
	nb := newNotebook(t, fake, Options{RunMode: RunModeReject})

	require.NoError(t, nb.sem.Acquire(context.Background(), 1))
	_, err := nb.Run(context.Background(), "1")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = nb.Upload(context.Background(), "a.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrBusy)

	nb.sem.Release(1)
	_, err = nb.Run(context.Background(), "1")
	assert.NoError(t, err)
}

func TestNotebook_QueueWaitsForSlot(t *testing.T) {
	fake := runtimetest.New()
	fake.On("1", runtimetest.Script{})
	nb := newNotebook(t, fake, Options{})

	require.NoError(t, nb.sem.Acquire(context.Background(), 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := nb.Run(ctx, "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() {
		_, err := nb.Run(context.Background(), "1")
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	nb.sem.Release(1)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queued run did not start after release")
	}
}

func TestNotebook_ConcurrentRunsSerialized(t *testing.T) {
	fake := runtimetest.New()
	fake.CaptureDelay = 5 * time.Millisecond
	fake.On("x", runtimetest.Script{Value: printable("[1] 1"), Visible: true})
	nb := newNotebook(t, fake, Options{})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := nb.Run(context.Background(), "x")
			assert.NoError(t, err)
			assert.True(t, res.OK())
		}()
	}
	wg.Wait()

	assert.Len(t, fake.Captures(), 5)
	assert.Len(t, nb.Messages(), 5)
	assert.Empty(t, fake.Leaked(".notebook:"))
}

func TestNotebook_UploadCSV(t *testing.T) {
	nb := newNotebook(t, runtimetest.New(), Options{})

	res, err := nb.Upload(context.Background(), "data.csv", []byte("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, "/home/web_user/data.csv", res.Path)
	assert.EqualValues(t, 12, res.Size)
	require.NotNil(t, res.Preview)
	assert.Equal(t, []string{"a", "b"}, res.Preview.Columns)
	assert.Equal(t, 2, res.Preview.RowCount)
	assert.Equal(t, []code.DisplayMessage{
		code.TextMessage(code.CategorySuccess, "Uploaded data.csv: 2 rows x 2 columns (a, b)"),
	}, nb.Messages())

	files, err := nb.Files(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "data.csv", files[0].Name)
}

func TestNotebook_UploadText(t *testing.T) {
	nb := newNotebook(t, runtimetest.New(), Options{DataDir: "/data"})

	res, err := nb.Upload(context.Background(), "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/data/notes.txt", res.Path)
	assert.Nil(t, res.Preview)
	assert.Equal(t, "Uploaded notes.txt (5 bytes)", nb.Messages()[0].Text)
}

func TestNotebook_UploadMalformedCSV(t *testing.T) {
	logger := &recordingLogger{}
	nb := newNotebook(t, runtimetest.New(), Options{Logger: logger})

	res, err := nb.Upload(context.Background(), "empty.csv", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Preview)
	assert.Contains(t, logger.warns, "csv preview failed")
}

func TestNotebook_UploadInvalidName(t *testing.T) {
	nb := newNotebook(t, runtimetest.New(), Options{})

	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.csv", `a\b.csv`} {
		t.Run(name, func(t *testing.T) {
			_, err := nb.Upload(context.Background(), name, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestNotebook_RemoveFile(t *testing.T) {
	nb := newNotebook(t, runtimetest.New(), Options{})
	ctx := context.Background()

	_, err := nb.Upload(ctx, "a.txt", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, nb.RemoveFile(ctx, "a.txt"))

	files, err := nb.Files(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Error(t, nb.RemoveFile(ctx, "a.txt"))
}

func TestNotebook_Fetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cars.csv"), []byte("mpg,cyl\n21,6\n"), 0o644))

	reg := datasource.NewRegistry()
	require.NoError(t, reg.Register(local.New("samples", dir)))
	fake := runtimetest.New()
	nb := newNotebook(t, fake, Options{Sources: reg})
	ctx := context.Background()

	res, err := nb.Fetch(ctx, "samples", "cars.csv")
	require.NoError(t, err)
	assert.Equal(t, "/home/web_user/cars.csv", res.Path)
	require.NotNil(t, res.Preview)
	assert.Equal(t, 1, res.Preview.RowCount)

	_, err = nb.Fetch(ctx, "missing", "cars.csv")
	assert.ErrorIs(t, err, datasource.ErrSourceNotFound)
	last := nb.Messages()[len(nb.Messages())-1]
	assert.Equal(t, code.CategoryError, last.Category)

	_, err = nb.Fetch(ctx, "samples", "absent.csv")
	assert.ErrorIs(t, err, datasource.ErrFileNotFound)
}

func TestNotebook_FetchWithoutSources(t *testing.T) {
	nb := newNotebook(t, runtimetest.New(), Options{})
	_, err := nb.Fetch(context.Background(), "samples", "cars.csv")
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestNotebook_Install(t *testing.T) {
	fake := runtimetest.New()
	nb := newNotebook(t, fake, Options{})
	ctx := context.Background()

	require.NoError(t, nb.Install(ctx, "tidyr", "tidyr", " ", "readr"))
	assert.Equal(t, []string{"tidyr", "readr"}, fake.Installed())
	assert.Equal(t, []string{"readr", "tidyr"}, nb.Installed())

	require.NoError(t, nb.Install(ctx, "tidyr"))
	assert.Len(t, fake.Installed(), 2)

	fake.FailInstall("nope")
	err := nb.Install(ctx, "nope")
	assert.ErrorIs(t, err, ErrInstall)
	msgs := nb.Messages()
	assert.Equal(t, code.CategoryError, msgs[len(msgs)-1].Category)
}

func TestNotebook_Inspect(t *testing.T) {
	fake := runtimetest.New()
	fake.SetGlobal("df", &runtimetest.Object{
		Type:     "list",
		NoNative: true,
		Print:    []string{"  x", "1 1"},
		Summary:  []string{"       x", " Min.   :1"},
		Str:      []string{"'data.frame':\t1 obs. of  1 variable:", " $ x: num 1"},
	})
	nb := newNotebook(t, fake, Options{})
	ctx := context.Background()

	tests := []struct {
		mode InspectMode
		want string
	}{
		{mode: InspectPrint, want: "  x\n1 1"},
		{mode: InspectSummary, want: "       x\n Min.   :1"},
		{mode: InspectStructure, want: "'data.frame':\t1 obs. of  1 variable:\n $ x: num 1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got, err := nb.Inspect(ctx, "df", tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := nb.Inspect(ctx, "missing", InspectPrint)
	assert.ErrorIs(t, err, ErrVariableNotFound)
	_, err = nb.Inspect(ctx, "df", "head")
	assert.Error(t, err)
	assert.Empty(t, fake.Leaked(code.TempPrefix))
}

func TestNotebook_Exists(t *testing.T) {
	fake := runtimetest.New()
	fake.SetGlobal("x", printable("[1] 1"))
	nb := newNotebook(t, fake, Options{})

	ok, err := nb.Exists(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = nb.Exists(context.Background(), "y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotebook_ClearMessages(t *testing.T) {
	nb := newNotebook(t, runtimetest.New(), Options{})
	_, err := nb.Upload(context.Background(), "a.txt", []byte("x"))
	require.NoError(t, err)
	require.NotEmpty(t, nb.Messages())

	msgs := nb.Messages()
	msgs[0].Text = "changed"
	assert.NotEqual(t, "changed", nb.Messages()[0].Text)

	nb.ClearMessages()
	assert.Empty(t, nb.Messages())
}

func TestNotebook_Close(t *testing.T) {
	fake := runtimetest.New()
	nb := newNotebook(t, fake, Options{})
	require.NoError(t, nb.Close())

	fake.On("1", runtimetest.Script{})
	res, err := nb.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, res.OK())
}
