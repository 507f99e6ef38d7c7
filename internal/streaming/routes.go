// Package streaming exposes completed videos over HTTP with byte-range
// support for seeking and resuming.
package streaming

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/library"
)

// VideoLister lists registered videos.
type VideoLister interface {
	List(ctx context.Context) ([]*library.Video, error)
}

// Mount is one mounted video.
type Mount struct {
	ID    int64  `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

// Routes is the in-memory set of mounted videos. It only grows for the
// lifetime of the process.
type Routes struct {
	mu     sync.RWMutex
	mounts map[int64]Mount
	logger zerolog.Logger
}

// NewRoutes creates an empty route set.
func NewRoutes(logger zerolog.Logger) *Routes {
	return &Routes{
		mounts: make(map[int64]Mount),
		logger: logger.With().Str("component", "routes").Logger(),
	}
}

// Register mounts path under id. It is a no-op when id is already mounted
// and reports whether a new route was added.
func (r *Routes) Register(path string, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mounts[id]; ok {
		return false
	}
	r.mounts[id] = Mount{ID: id, Path: path, Title: titleFromPath(path)}
	r.logger.Info().Int64("videoId", id).Str("path", path).Msg("Mounted video route")
	return true
}

// Lookup returns the mount for id.
func (r *Routes) Lookup(id int64) (Mount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mounts[id]
	return m, ok
}

// Has reports whether id is mounted.
func (r *Routes) Has(id int64) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Len returns the number of mounted routes.
func (r *Routes) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mounts)
}

// List returns every mount ordered by id.
func (r *Routes) List() []Mount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Mount, 0, len(r.mounts))
	for _, m := range r.mounts {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rebuild mounts every registered video whose file is currently on disk.
// Videos with missing files are skipped without error.
func (r *Routes) Rebuild(ctx context.Context, videos VideoLister) (int, error) {
	list, err := videos.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list videos: %w", err)
	}

	mounted := 0
	for _, v := range list {
		if !FileExists(v.Path) {
			r.logger.Debug().Int64("videoId", v.ID).Str("path", v.Path).Msg("Skipping video with missing file")
			continue
		}
		if r.Register(v.Path, v.ID) {
			mounted++
		}
	}

	r.logger.Info().Int("mounted", mounted).Int("videos", len(list)).Msg("Rebuilt video routes")
	return mounted, nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// MIMEType derives the media type from the file extension as video/<ext>.
func MIMEType(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return "application/octet-stream"
	}
	return "video/" + ext
}

// PagePath returns the playback page path for a video.
func PagePath(id int64) string {
	return fmt.Sprintf("/page/%d", id)
}

// StreamPath returns the byte stream path for a video.
func StreamPath(id int64) string {
	return fmt.Sprintf("/stream/%d", id)
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
