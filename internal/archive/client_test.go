package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/savannah/pkg/models"
)

type storedObject struct {
	body        []byte
	meta        map[string]string
	contentType string
}

// s3Server is a minimal S3 endpoint holding objects in memory, keyed by
// "bucket/object".
type s3Server struct {
	mu      sync.Mutex
	objects map[string]storedObject
	status  int
	puts    int
}

func (s *s3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}

	switch r.Method {
	case http.MethodHead, http.MethodGet:
		obj, ok := s.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h := w.Header()
		h.Set("Content-Length", strconv.Itoa(len(obj.body)))
		h.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		h.Set("ETag", `"0123456789abcdef"`)
		for k, v := range obj.meta {
			h.Set("X-Amz-Meta-"+k, v)
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(obj.body)
		}
	case http.MethodPut:
		io.Copy(io.Discard, r.Body)
		obj := storedObject{meta: map[string]string{}, contentType: r.Header.Get("Content-Type")}
		if sum := r.Header.Get("X-Amz-Meta-Checksum"); sum != "" {
			obj.meta["Checksum"] = sum
		}
		s.objects[key] = obj
		s.puts++
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *s3Server) object(key string) (storedObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

func (s *s3Server) fail(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *s3Server) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func newTestClient(t *testing.T) (*Client, *s3Server) {
	t.Helper()
	stub := &s3Server{objects: make(map[string]storedObject)}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	mc, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return &Client{minioClient: mc, bucket: "archive", folder: "fei/"}, stub
}

func (s *s3Server) put(key string, body []byte, meta map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects["archive/"+key] = storedObject{body: body, meta: meta}
}

func TestClient_Add(t *testing.T) {
	c, stub := newTestClient(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("savannah"), 0o644))

	size, err := c.Add(context.Background(), "raw", path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	sum, err := FileChecksum(path)
	require.NoError(t, err)
	stored, ok := stub.object("archive/fei/raw/a.txt")
	require.True(t, ok)
	assert.Equal(t, sum, stored.meta["Checksum"])
	assert.Contains(t, stored.contentType, "text/plain")
	assert.Equal(t, 1, stub.putCount())

	_, err = c.Add(context.Background(), "raw", path)
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
	assert.Equal(t, 1, stub.putCount())

	_, err = c.Replace(context.Background(), "raw", path)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.putCount())
}

func TestClient_AddStatFailure(t *testing.T) {
	c, stub := newTestClient(t)
	stub.fail(http.StatusForbidden)
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("savannah"), 0o644))

	_, err := c.Add(context.Background(), "raw", path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrAlreadyExists)
	assert.Equal(t, 0, stub.putCount())
}

func TestClient_Get(t *testing.T) {
	body := []byte("savannah")
	sum, err := Checksum(strings.NewReader(string(body)))
	require.NoError(t, err)

	tests := []struct {
		name    string
		meta    map[string]string
		wantErr error
	}{
		{name: "verified", meta: map[string]string{"Checksum": sum}},
		{name: "no checksum", meta: nil},
		{name: "corrupt", meta: map[string]string{"Checksum": strings.Repeat("0", 64)}, wantErr: models.ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, stub := newTestClient(t)
			stub.put("fei/raw/a.fits", body, tt.meta)
			dir := t.TempDir()

			size, err := c.Get(context.Background(), "raw", "a.fits", dir)
			assert.Equal(t, int64(len(body)), size)

			entries, readErr := os.ReadDir(dir)
			require.NoError(t, readErr)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, entries, "nothing may be left behind")
				return
			}
			require.NoError(t, err)
			require.Len(t, entries, 1)
			got, readErr := os.ReadFile(filepath.Join(dir, "a.fits"))
			require.NoError(t, readErr)
			assert.Equal(t, body, got)
		})
	}
}

func TestClient_GetMissing(t *testing.T) {
	c, _ := newTestClient(t)
	dir := t.TempDir()

	_, err := c.Get(context.Background(), "raw", "missing.fits", dir)
	var resp minio.ErrorResponse
	require.ErrorAs(t, err, &resp)
	assert.Equal(t, "NoSuchKey", resp.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
