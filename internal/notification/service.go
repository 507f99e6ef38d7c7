// Package notification delivers ready and informational messages to
// subscribers through the configured provider.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/notification/types"
)

var ErrInvalidSettings = errors.New("invalid notification settings")

// Service wraps a notifier and fills in playback links.
type Service struct {
	notifier  types.Notifier
	publicURL string
	logger    zerolog.Logger
}

// NewService creates a notification service. publicURL is the externally
// reachable base of the HTTP server, e.g. http://example.com:8080.
func NewService(notifier types.Notifier, publicURL string, logger zerolog.Logger) *Service {
	return &Service{
		notifier:  notifier,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

// PageURL returns the public playback page URL for a release.
func (s *Service) PageURL(torrentID int64) string {
	return fmt.Sprintf("%s/page/%d", s.publicURL, torrentID)
}

// NotifyReady tells a subscriber that a release can be watched.
func (s *Service) NotifyReady(ctx context.Context, event types.ReadyEvent) error {
	if event.URL == "" {
		event.URL = s.PageURL(event.TorrentID)
	}
	if err := s.notifier.OnReady(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("notifier", s.notifier.Name()).
			Str("subscriber", event.Subscriber).
			Int64("torrentId", event.TorrentID).
			Msg("Failed to send ready notification")
		return fmt.Errorf("notify %s: %w", event.Subscriber, err)
	}
	s.logger.Info().
		Str("subscriber", event.Subscriber).
		Int64("torrentId", event.TorrentID).
		Str("title", event.Title).
		Msg("Ready notification sent")
	return nil
}

// Send delivers a free-form message.
func (s *Service) Send(ctx context.Context, subscriber, text string) error {
	if err := s.notifier.SendMessage(ctx, types.MessageEvent{Subscriber: subscriber, Text: text}); err != nil {
		return fmt.Errorf("send to %s: %w", subscriber, err)
	}
	return nil
}
