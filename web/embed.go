// Package web holds the embedded HTML templates served to viewers.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplatesFS returns the embedded template filesystem rooted at templates/.
func TemplatesFS() (fs.FS, error) {
	return fs.Sub(templateFS, "templates")
}
