package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/savannah/internal/registry"
	"github.com/chmdznr/savannah/pkg/models"
)

type fakeArchive struct {
	mu      sync.Mutex
	stored  map[string]int64
	failGet error
	calls   int
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{stored: make(map[string]int64)}
}

func (f *fakeArchive) put(filetype, localPath string, overwrite bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	key := filetype + "/" + filepath.Base(localPath)
	if _, ok := f.stored[key]; ok && !overwrite {
		return 0, fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return 0, err
	}
	f.stored[key] = info.Size()
	return info.Size(), nil
}

func (f *fakeArchive) Add(_ context.Context, filetype, localPath string) (int64, error) {
	return f.put(filetype, localPath, false)
}

func (f *fakeArchive) Replace(_ context.Context, filetype, localPath string) (int64, error) {
	return f.put(filetype, localPath, true)
}

func (f *fakeArchive) Get(_ context.Context, filetype, name, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.failGet != nil {
		return 0, f.failGet
	}
	size, ok := f.stored[filetype+"/"+name]
	if !ok {
		return 0, errors.New("NoSuchKey")
	}
	return size, nil
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func newTestExecutor(a *fakeArchive, reg *registry.Registry) *Executor {
	e := NewExecutor(a, reg, nil, &Config{NumWorkers: 2, FirstTransactionID: 100})
	var mu sync.Mutex
	clock := time.UnixMilli(1_000)
	e.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}
	return e
}

func TestExecutor_RunUploadsAndDownloads(t *testing.T) {
	dir := t.TempDir()
	a := newFakeArchive()
	reg := registry.New()
	e := newTestExecutor(a, reg)

	jobs := []Job{
		{Type: models.TransactionAdd, Filetype: "raw", LocalPath: writeFile(t, dir, "a.fits", 10)},
		{Type: models.TransactionAdd, Filetype: "raw", LocalPath: writeFile(t, dir, "b.fits", 20)},
	}
	records, stats, err := e.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(2), stats.CompletedFiles)
	assert.Equal(t, int64(30), stats.CompletedSize)
	assert.Equal(t, int64(100), records[0].TransactionID())
	assert.Equal(t, int64(101), records[1].TransactionID())
	for _, rec := range records {
		assert.Equal(t, models.StateComplete, rec.State())
		assert.False(t, rec.StartTime().IsZero())
		assert.False(t, rec.EndTime().Before(rec.StartTime()))
		assert.Contains(t, rec.TransferTimeString(), "ms.")
	}

	got, _, err := e.Run(context.Background(), []Job{{Type: models.TransactionGet, Filetype: "raw", Name: "b.fits", DestDir: dir}})
	require.NoError(t, err)
	assert.Equal(t, models.StateComplete, got[0].State())
	assert.Equal(t, int64(20), got[0].FileSize())
	assert.Equal(t, 3, reg.Len())
}

func TestExecutor_RecordsFailures(t *testing.T) {
	dir := t.TempDir()
	a := newFakeArchive()
	reg := registry.New()
	e := newTestExecutor(a, reg)
	path := writeFile(t, dir, "a.fits", 10)

	_, _, err := e.Run(context.Background(), []Job{{Type: models.TransactionAdd, Filetype: "raw", LocalPath: path}})
	require.NoError(t, err)

	records, stats, err := e.Run(context.Background(), []Job{
		{Type: models.TransactionAdd, Filetype: "raw", LocalPath: path},
		{Type: models.TransactionReplace, Filetype: "raw", LocalPath: path},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateError, records[0].State())
	assert.Equal(t, "Cancelled", records[0].TransferTimeString())
	assert.Equal(t, models.StateComplete, records[1].State())
	assert.Equal(t, int64(1), stats.FailedFiles)
}

func TestExecutor_CancelledContextAborts(t *testing.T) {
	dir := t.TempDir()
	a := newFakeArchive()
	e := newTestExecutor(a, registry.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, stats, err := e.Run(ctx, []Job{
		{Type: models.TransactionAdd, Filetype: "raw", LocalPath: writeFile(t, dir, "a.fits", 1)},
		{Type: models.TransactionAdd, Filetype: "raw", LocalPath: writeFile(t, dir, "b.fits", 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.AbortedFiles)
	for _, rec := range records {
		assert.Equal(t, models.StateAborted, rec.State())
		assert.True(t, rec.StartTime().IsZero())
	}
	assert.Equal(t, 0, a.calls)
}

func TestExecutor_ContextCanceledDuringTransfer(t *testing.T) {
	a := newFakeArchive()
	a.failGet = fmt.Errorf("download: %w", context.Canceled)
	e := newTestExecutor(a, registry.New())

	records, _, err := e.Run(context.Background(), []Job{{Type: models.TransactionGet, Filetype: "raw", Name: "x", DestDir: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, models.StateAborted, records[0].State())
}

func TestExecutor_PrepareValidates(t *testing.T) {
	reg := registry.New()
	e := newTestExecutor(newFakeArchive(), reg)

	_, err := e.Prepare([]Job{{Type: models.TransactionAdd, Filetype: "raw", LocalPath: filepath.Join(t.TempDir(), "missing")}})
	assert.Error(t, err)

	_, err = e.Prepare([]Job{{Type: models.TransactionAdd, Filetype: "raw", LocalPath: t.TempDir()}})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = e.Prepare([]Job{{Type: models.TransactionGet, Filetype: "", Name: "x"}})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	assert.Equal(t, 0, reg.Len())
}

func TestJob_Filename(t *testing.T) {
	assert.Equal(t, "a.fits", Job{Type: models.TransactionAdd, LocalPath: "/tmp/x/a.fits"}.Filename())
	assert.Equal(t, "b.fits", Job{Type: models.TransactionGet, Name: "b.fits"}.Filename())
}

func TestIsAbortKey(t *testing.T) {
	assert.True(t, isAbortKey('q', 0))
	assert.True(t, isAbortKey('Q', 0))
	assert.False(t, isAbortKey('x', 0))
}

func TestExecutor_ZeroByteDownloadKeepsSize(t *testing.T) {
	a := newFakeArchive()
	a.stored["raw/empty.fits"] = 0
	e := newTestExecutor(a, registry.New())

	records, _, err := e.Run(context.Background(), []Job{{Type: models.TransactionGet, Filetype: "raw", Name: "empty.fits", DestDir: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, models.StateComplete, records[0].State())
	assert.Equal(t, int64(0), records[0].FileSize())
	assert.Equal(t, "0 bytes", records[0].FileSizeString())
}

func TestExecutor_FailedDownloadLeavesSizeUnspecified(t *testing.T) {
	a := newFakeArchive()
	a.failGet = errors.New("AccessDenied")
	e := newTestExecutor(a, registry.New())

	records, _, err := e.Run(context.Background(), []Job{{Type: models.TransactionGet, Filetype: "raw", Name: "x.fits", DestDir: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, models.StateError, records[0].State())
	assert.Equal(t, models.UnspecifiedSize, records[0].FileSize())
}
