package streaming

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ChunkSize is the largest block written to a client per read.
const ChunkSize = 1 << 20

var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

type pageData struct {
	Title     string
	StreamURL string
	MIMEType  string
}

// Handlers serves the playback page and the byte stream for mounted videos.
type Handlers struct {
	routes *Routes
	page   *template.Template
	logger zerolog.Logger
}

// NewHandlers creates streaming handlers. templates must contain player.html.
func NewHandlers(routes *Routes, templates fs.FS, logger zerolog.Logger) (*Handlers, error) {
	page, err := template.ParseFS(templates, "player.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse player template: %w", err)
	}
	return &Handlers{
		routes: routes,
		page:   page,
		logger: logger.With().Str("component", "streaming").Logger(),
	}, nil
}

// RegisterRoutes registers the page and stream routes.
func (h *Handlers) RegisterRoutes(e *echo.Echo) {
	e.GET("/page/:id", h.Page)
	e.GET("/stream/:id", h.Stream)
	e.HEAD("/stream/:id", h.Stream)
}

// Page renders the playback page.
// GET /page/:id
func (h *Handlers) Page(c echo.Context) error {
	m, err := h.mount(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, pageData{
		Title:     m.Title,
		StreamURL: StreamPath(m.ID),
		MIMEType:  MIMEType(m.Path),
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Stream serves the video file, honoring a single byte range.
// GET /stream/:id
func (h *Handlers) Stream(c echo.Context) error {
	m, err := h.mount(c)
	if err != nil {
		return err
	}

	// Each request owns its handle and read position.
	f, err := os.Open(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound, "video file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	size := info.Size()

	res := c.Response()
	header := res.Header()
	header.Set("Accept-Ranges", "bytes")

	rangeHeader := c.Request().Header.Get("Range")
	if rangeHeader == "" {
		header.Set(echo.HeaderContentType, MIMEType(m.Path))
		header.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
		res.WriteHeader(http.StatusOK)
		return h.send(c, f, size)
	}

	start, end, err := ParseRange(rangeHeader, size)
	if err != nil {
		h.logger.Debug().Str("range", rangeHeader).Int64("size", size).Msg("Rejected range request")
		header.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		return c.NoContent(http.StatusRequestedRangeNotSatisfiable)
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	length := end - start + 1
	header.Set(echo.HeaderContentType, MIMEType(m.Path))
	header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(length, 10))
	res.WriteHeader(http.StatusPartialContent)
	return h.send(c, f, length)
}

// send copies up to n bytes from r in bounded chunks. The response is
// already committed, so failures are logged rather than returned.
func (h *Handlers) send(c echo.Context, r io.Reader, n int64) error {
	if c.Request().Method == http.MethodHead {
		return nil
	}

	written, err := copyChunks(c.Request().Context(), c.Response(), r, n)
	if err != nil {
		h.logger.Debug().Err(err).
			Str("path", c.Request().URL.Path).
			Int64("written", written).
			Int64("wanted", n).
			Msg("Stream ended early")
	}
	return nil
}

// copyChunks writes at most n bytes from r to w, one chunk at a time,
// stopping early at EOF or when ctx is done.
func copyChunks(ctx context.Context, w io.Writer, r io.Reader, n int64) (int64, error) {
	bufp := chunkPool.Get().(*[]byte)
	defer chunkPool.Put(bufp)
	buf := *bufp

	flusher, _ := w.(http.Flusher)

	var written int64
	for written < n {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		want := n - written
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}

		read, rerr := r.Read(buf[:want])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return written, werr
			}
			written += int64(read)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
	return written, nil
}

func (h *Handlers) mount(c echo.Context) (Mount, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return Mount{}, echo.NewHTTPError(http.StatusNotFound, "video not found")
	}
	m, ok := h.routes.Lookup(id)
	if !ok {
		return Mount{}, echo.NewHTTPError(http.StatusNotFound, "video not found")
	}
	return m, nil
}
