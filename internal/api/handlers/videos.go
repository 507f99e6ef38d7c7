package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/episodic/episodic/internal/library"
	"github.com/episodic/episodic/internal/streaming"
)

// VideoRegistry reads registered videos.
type VideoRegistry interface {
	List(ctx context.Context) ([]*library.Video, error)
	Get(ctx context.Context, id int64) (*library.Video, error)
	Count(ctx context.Context) (int64, error)
}

// MountChecker reports mounted routes.
type MountChecker interface {
	Has(id int64) bool
}

// VideoResponse is a registered video with its playback state.
type VideoResponse struct {
	*library.Video
	Format     string `json:"format"`
	Mounted    bool   `json:"mounted"`
	PagePath   string `json:"pagePath,omitempty"`
	StreamPath string `json:"streamPath,omitempty"`
}

// VideoHandler handles video registry requests.
type VideoHandler struct {
	registry VideoRegistry
	routes   MountChecker
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(registry VideoRegistry, routes MountChecker) *VideoHandler {
	return &VideoHandler{registry: registry, routes: routes}
}

// RegisterRoutes registers the video routes on g.
func (h *VideoHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

// List returns every registered video, newest first.
// GET /api/v1/videos
func (h *VideoHandler) List(c echo.Context) error {
	videos, err := h.registry.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, h.response(v))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one video.
// GET /api/v1/videos/:id
func (h *VideoHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid video id")
	}
	v, err := h.registry.Get(c.Request().Context(), id)
	if errors.Is(err, library.ErrVideoNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "video not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response(v))
}

func (h *VideoHandler) response(v *library.Video) VideoResponse {
	resp := VideoResponse{Video: v, Format: v.Ext(), Mounted: h.routes.Has(v.ID)}
	if resp.Mounted {
		resp.PagePath = streaming.PagePath(v.ID)
		resp.StreamPath = streaming.StreamPath(v.ID)
	}
	return resp
}
