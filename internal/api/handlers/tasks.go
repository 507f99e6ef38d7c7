package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/episodic/episodic/internal/downloader/types"
	notiftypes "github.com/episodic/episodic/internal/notification/types"
	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/taskstore"
)

// Orchestrator runs passes and accepts new requests.
type Orchestrator interface {
	RunPass(ctx context.Context) (*orchestrator.PassResult, error)
	LastPass() *orchestrator.PassResult
	Enqueue(ctx context.Context, req orchestrator.Request) (orchestrator.EnqueueResult, error)
}

// TaskLister returns a copy of the task store.
type TaskLister interface {
	Snapshot() []taskstore.Task
}

// TaskHandler handles download task requests.
type TaskHandler struct {
	orchestrator Orchestrator
	store        TaskLister
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(o Orchestrator, store TaskLister) *TaskHandler {
	return &TaskHandler{orchestrator: o, store: store}
}

// RegisterRoutes registers the task routes on g.
func (h *TaskHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/poll", h.Poll)
	g.GET("/poll/last", h.LastPass)
}

// List returns every pending task.
// GET /api/v1/tasks
func (h *TaskHandler) List(c echo.Context) error {
	status := taskstore.Status(c.QueryParam("status"))
	tasks := h.store.Snapshot()
	if status == "" {
		return c.JSON(http.StatusOK, tasks)
	}
	if !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}
	filtered := make([]taskstore.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			filtered = append(filtered, t)
		}
	}
	return c.JSON(http.StatusOK, filtered)
}

// CreateTaskRequest is the body of POST /api/v1/tasks. Exactly one of
// TorrentFile (base64) and TorrentURL is required.
type CreateTaskRequest struct {
	Subscriber  string `json:"subscriber"`
	TorrentID   int64  `json:"torrentId"`
	Title       string `json:"title"`
	TorrentFile string `json:"torrentFile,omitempty"`
	TorrentURL  string `json:"torrentUrl,omitempty"`
	Folder      string `json:"folder"`
}

// CreateTaskResponse reports the enqueue outcome.
type CreateTaskResponse struct {
	Outcome string          `json:"outcome"`
	Task    *taskstore.Task `json:"task,omitempty"`
}

// Create submits a release for a subscriber.
// POST /api/v1/tasks
func (h *TaskHandler) Create(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := notiftypes.ParseSubscriber(req.Subscriber); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TorrentID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "torrentId must be positive")
	}
	if strings.ContainsAny(req.Folder, `/\`) || req.Folder == ".." {
		return echo.NewHTTPError(http.StatusBadRequest, "folder must be a single path element")
	}

	var file []byte
	if req.TorrentFile != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.TorrentFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "torrentFile must be base64")
		}
		file = decoded
	}

	res, err := h.orchestrator.Enqueue(c.Request().Context(), orchestrator.Request{
		Subscriber:  req.Subscriber,
		TorrentID:   req.TorrentID,
		Title:       req.Title,
		TorrentFile: file,
		TorrentURL:  req.TorrentURL,
		Folder:      req.Folder,
	})
	switch {
	case errors.Is(err, orchestrator.ErrNoTorrent), errors.Is(err, types.ErrInvalidTorrent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrClientUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		return err
	}

	status := http.StatusOK
	if res.Outcome == orchestrator.Queued {
		status = http.StatusCreated
	}
	return c.JSON(status, CreateTaskResponse{Outcome: res.Outcome.String(), Task: res.Task})
}

// Poll runs one pass immediately.
// POST /api/v1/tasks/poll
func (h *TaskHandler) Poll(c echo.Context) error {
	result, err := h.orchestrator.RunPass(c.Request().Context())
	if errors.Is(err, orchestrator.ErrPassInProgress) {
		return errorJSON(c, http.StatusConflict, err)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// LastPass returns the most recent completed pass.
// GET /api/v1/tasks/poll/last
func (h *TaskHandler) LastPass(c echo.Context) error {
	last := h.orchestrator.LastPass()
	if last == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, last)
}
