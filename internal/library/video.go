package library

import (
	"path/filepath"
	"strings"
	"time"
)

// Video is a confirmed-complete, playable release. ID is the release's
// torrent id; an entry is written once and never mutated.
type Video struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ext returns the lowercase file extension without the dot.
func (v *Video) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(v.Path), "."))
}
