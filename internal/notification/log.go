package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/notification/types"
)

// LogNotifier writes notifications to the log. It is used when no chat
// provider is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("notifier", "log").Logger()}
}

func (n *LogNotifier) Type() types.NotifierType { return types.NotifierLog }
func (n *LogNotifier) Name() string             { return "log" }

func (n *LogNotifier) OnReady(_ context.Context, event types.ReadyEvent) error {
	n.logger.Info().
		Str("subscriber", event.Subscriber).
		Int64("torrentId", event.TorrentID).
		Str("url", event.URL).
		Msg(types.ReadyText(event))
	return nil
}

func (n *LogNotifier) SendMessage(_ context.Context, event types.MessageEvent) error {
	n.logger.Info().Str("subscriber", event.Subscriber).Msg(event.Text)
	return nil
}
