package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	notiftypes "github.com/episodic/episodic/internal/notification/types"
)

// Commands executes chat commands.
type Commands interface {
	Sub(ctx context.Context, subscriber, args string) (string, error)
	Unsub(ctx context.Context, subscriber, args string) (string, error)
	ListSub(ctx context.Context, subscriber string) (string, error)
	Search(ctx context.Context, args string) (string, error)
	Download(ctx context.Context, subscriber, args string) (string, error)
}

// CommandRequest carries the chat identity and the raw argument text.
type CommandRequest struct {
	Subscriber string `json:"subscriber"`
	Args       string `json:"args"`
}

// CommandResponse is the reply to show in the chat.
type CommandResponse struct {
	Reply string `json:"reply"`
}

// CommandHandler exposes the chat commands over HTTP for a bot frontend.
type CommandHandler struct {
	commands Commands
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(commands Commands) *CommandHandler {
	return &CommandHandler{commands: commands}
}

// RegisterRoutes registers the command routes on g.
func (h *CommandHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sub", h.handle(true, h.commands.Sub))
	g.POST("/unsub", h.handle(true, h.commands.Unsub))
	g.POST("/listsub", h.handle(true, func(ctx context.Context, subscriber, _ string) (string, error) {
		return h.commands.ListSub(ctx, subscriber)
	}))
	g.POST("/search", h.handle(false, func(ctx context.Context, _, args string) (string, error) {
		return h.commands.Search(ctx, args)
	}))
	g.POST("/download", h.handle(true, h.commands.Download))
}

func (h *CommandHandler) handle(needSubscriber bool, run func(ctx context.Context, subscriber, args string) (string, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req CommandRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if needSubscriber {
			if _, err := notiftypes.ParseSubscriber(req.Subscriber); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
		}

		reply, err := run(c.Request().Context(), req.Subscriber, req.Args)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, CommandResponse{Reply: reply})
	}
}
