// Package api wires the HTTP surface: JSON endpoints under /api/v1 and
// the playback routes.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/api/handlers"
	apimw "github.com/episodic/episodic/internal/api/middleware"
	"github.com/episodic/episodic/internal/config"
	"github.com/episodic/episodic/internal/streaming"
)

// Deps are the services the API exposes.
type Deps struct {
	Orchestrator handlers.Orchestrator
	Tasks        handlers.TaskLister
	Videos       handlers.VideoRegistry
	Routes       *streaming.Routes
	Streaming    *streaming.Handlers
	Scheduler    handlers.TaskScheduler
	Commands     handlers.Commands
	// ClientType names the configured torrent client for /status.
	ClientType string
}

// Server handles HTTP requests for episodic.
type Server struct {
	echo      *echo.Echo
	deps      Deps
	cfg       *config.Config
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		deps:      deps,
		cfg:       cfg,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("requestId", v.RequestID).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("requestId", v.RequestID).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Video bodies are already compressed and are read with ranges.
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/stream/")
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	if s.deps.Orchestrator != nil && s.deps.Tasks != nil {
		handlers.NewTaskHandler(s.deps.Orchestrator, s.deps.Tasks).RegisterRoutes(api.Group("/tasks"))
	}
	if s.deps.Videos != nil && s.deps.Routes != nil {
		handlers.NewVideoHandler(s.deps.Videos, s.deps.Routes).RegisterRoutes(api.Group("/videos"))
	}
	if s.deps.Scheduler != nil {
		handlers.NewSchedulerHandler(s.deps.Scheduler).RegisterRoutes(api.Group("/scheduler"))
	}
	if s.deps.Commands != nil {
		limiter := apimw.NewIPRateLimiter(apimw.DefaultRequestsPerMinute, apimw.DefaultBurst)
		handlers.NewCommandHandler(s.deps.Commands).RegisterRoutes(api.Group("/commands", limiter.Middleware()))
	}
	if s.deps.Streaming != nil {
		s.deps.Streaming.RegisterRoutes(s.echo)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Version    string `json:"version"`
	StartTime  string `json:"startTime"`
	ClientType string `json:"clientType,omitempty"`
	Tasks      int    `json:"tasks"`
	Videos     int64  `json:"videos"`
	Mounted    int    `json:"mounted"`
	PublicURL  string `json:"publicUrl,omitempty"`
	LastPass   any    `json:"lastPass,omitempty"`
}

func (s *Server) getStatus(c echo.Context) error {
	resp := StatusResponse{
		Version:    config.Version,
		StartTime:  s.startTime.Format(time.RFC3339),
		ClientType: s.deps.ClientType,
	}
	if s.cfg != nil {
		resp.PublicURL = s.cfg.Server.PublicURL
	}
	if s.deps.Tasks != nil {
		resp.Tasks = len(s.deps.Tasks.Snapshot())
	}
	if s.deps.Videos != nil {
		n, err := s.deps.Videos.Count(c.Request().Context())
		if err != nil {
			return err
		}
		resp.Videos = n
	}
	if s.deps.Routes != nil {
		resp.Mounted = s.deps.Routes.Len()
	}
	if s.deps.Orchestrator != nil {
		if last := s.deps.Orchestrator.LastPass(); last != nil {
			resp.LastPass = last
		}
	}
	return c.JSON(http.StatusOK, resp)
}
