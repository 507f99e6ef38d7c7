package streaming

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/episodic/episodic/internal/testutil"
	"github.com/episodic/episodic/web"
)

type testServer struct {
	echo   *echo.Echo
	routes *Routes
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	templates, err := web.TemplatesFS()
	require.NoError(t, err)

	routes := NewRoutes(testutil.NopLogger())
	h, err := NewHandlers(routes, templates, testutil.NopLogger())
	require.NoError(t, err)

	e := echo.New()
	h.RegisterRoutes(e)
	return &testServer{echo: e, routes: routes, dir: t.TempDir()}
}

func (s *testServer) mountFile(t *testing.T, id int64, name string, size int) []byte {
	t.Helper()
	path := testutil.WriteFile(t, s.dir, name, size)
	s.routes.Register(path, id)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func (s *testServer) do(method, target, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestStream_NoRange(t *testing.T) {
	s := newTestServer(t)
	data := s.mountFile(t, 1, "episode.mp4", 1000)

	rec := s.do(http.MethodGet, "/stream/1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestStream_ClosedRange(t *testing.T) {
	s := newTestServer(t)
	data := s.mountFile(t, 1, "episode.mp4", 1000)

	rec := s.do(http.MethodGet, "/stream/1", "bytes=100-199")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 100-199/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, 100, rec.Body.Len())
	assert.Equal(t, data[100:200], rec.Body.Bytes())
}

func TestStream_OpenRange(t *testing.T) {
	s := newTestServer(t)
	data := s.mountFile(t, 1, "episode.mkv", 1000)

	rec := s.do(http.MethodGet, "/stream/1", "bytes=990-")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 990-999/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, data[990:], rec.Body.Bytes())
}

func TestStream_EndClamped(t *testing.T) {
	s := newTestServer(t)
	data := s.mountFile(t, 1, "episode.mkv", 1000)

	rec := s.do(http.MethodGet, "/stream/1", "bytes=900-100000")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 900-999/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, data[900:], rec.Body.Bytes())
}

func TestStream_MultiChunk(t *testing.T) {
	s := newTestServer(t)
	size := ChunkSize*2 + ChunkSize/2
	data := s.mountFile(t, 1, "big.mp4", size)

	start, end := 10, ChunkSize*2+100
	rec := s.do(http.MethodGet, "/stream/1", "bytes="+strconv.Itoa(start)+"-"+strconv.Itoa(end))

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, strconv.Itoa(end-start+1), rec.Header().Get("Content-Length"))
	assert.True(t, bytes.Equal(data[start:end+1], rec.Body.Bytes()), "body mismatch")
}

func TestStream_Unsatisfiable(t *testing.T) {
	s := newTestServer(t)
	s.mountFile(t, 1, "episode.mp4", 1000)

	for _, header := range []string{"bytes=1000-", "bytes=-100", "bytes=5-1", "bytes=0-1,4-5", "bytes=x-"} {
		t.Run(header, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/stream/1", header)

			assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
			assert.Equal(t, "bytes */1000", rec.Header().Get("Content-Range"))
			assert.Equal(t, 0, rec.Body.Len())
		})
	}
}

func TestStream_Head(t *testing.T) {
	s := newTestServer(t)
	s.mountFile(t, 1, "episode.mp4", 1000)

	rec := s.do(http.MethodHead, "/stream/1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, 0, rec.Body.Len())
}

func TestStream_NotMounted(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/stream/7", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/stream/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/page/7", "").Code)
}

func TestStream_FileRemovedAfterMount(t *testing.T) {
	s := newTestServer(t)
	s.mountFile(t, 1, "episode.mp4", 10)
	require.NoError(t, os.Remove(filepath.Join(s.dir, "episode.mp4")))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/stream/1", "").Code)
}

func TestPage(t *testing.T) {
	s := newTestServer(t)
	s.mountFile(t, 42, "Show - 01.MKV", 10)

	rec := s.do(http.MethodGet, "/page/42", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `src="/stream/42"`)
	assert.Contains(t, body, `type="video/mkv"`)
	assert.Contains(t, body, "Show - 01")
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
}

func TestCopyChunks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	written, err := copyChunks(ctx, &out, bytes.NewReader(make([]byte, 100)), 100)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), written)
}

func TestCopyChunks_ShortSource(t *testing.T) {
	var out bytes.Buffer
	written, err := copyChunks(context.Background(), &out, bytes.NewReader(make([]byte, 40)), 100)

	assert.NoError(t, err)
	assert.Equal(t, int64(40), written)
}
