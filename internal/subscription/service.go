// Package subscription stores which tag sets each subscriber follows and
// decides which releases they are interested in.
package subscription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/database/sqlc"
	"github.com/episodic/episodic/internal/notification/types"
)

var (
	ErrAlreadySubscribed = errors.New("already subscribed to these tags")
	ErrNotSubscribed     = errors.New("not subscribed to these tags")
	ErrNoTags            = errors.New("no tags provided")
)

// Subscription is one tag set followed by one subscriber.
type Subscription struct {
	ID         int64    `json:"id"`
	Subscriber string   `json:"subscriber"`
	Tags       []string `json:"tags"`
}

// FolderName returns the download folder for releases matched by s.
func (s Subscription) FolderName() string {
	return FolderName(s.Tags)
}

// Service provides subscription operations.
type Service struct {
	queries *sqlc.Queries
	logger  zerolog.Logger
}

// NewService creates a new subscription service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		queries: sqlc.New(db),
		logger:  logger.With().Str("component", "subscription").Logger(),
	}
}

// Add subscribes subscriber to tags. Tag order is significant.
func (s *Service) Add(ctx context.Context, subscriber string, tags []string) error {
	encoded, err := s.validate(subscriber, tags)
	if err != nil {
		return err
	}

	n, err := s.queries.CreateSubscription(ctx, sqlc.CreateSubscriptionParams{
		Subscriber: subscriber,
		Tags:       encoded,
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	if n == 0 {
		return ErrAlreadySubscribed
	}

	s.logger.Info().Str("subscriber", subscriber).Strs("tags", tags).Msg("Subscribed")
	return nil
}

// Remove unsubscribes subscriber from exactly this tag set.
func (s *Service) Remove(ctx context.Context, subscriber string, tags []string) error {
	encoded, err := s.validate(subscriber, tags)
	if err != nil {
		return err
	}

	n, err := s.queries.DeleteSubscription(ctx, sqlc.DeleteSubscriptionParams{
		Subscriber: subscriber,
		Tags:       encoded,
	})
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if n == 0 {
		return ErrNotSubscribed
	}

	s.logger.Info().Str("subscriber", subscriber).Strs("tags", tags).Msg("Unsubscribed")
	return nil
}

// List returns the subscriber's subscriptions in creation order.
func (s *Service) List(ctx context.Context, subscriber string) ([]Subscription, error) {
	rows, err := s.queries.ListSubscriptionsBySubscriber(ctx, subscriber)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return s.convert(rows), nil
}

// All returns every subscription grouped by subscriber.
func (s *Service) All(ctx context.Context) ([]Subscription, error) {
	rows, err := s.queries.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return s.convert(rows), nil
}

func (s *Service) validate(subscriber string, tags []string) (string, error) {
	if _, err := types.ParseSubscriber(subscriber); err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", ErrNoTags
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(encoded), nil
}

func (s *Service) convert(rows []*sqlc.Subscription) []Subscription {
	subs := make([]Subscription, 0, len(rows))
	for _, row := range rows {
		var tags []string
		if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
			s.logger.Warn().Err(err).Int64("id", row.ID).Msg("Skipping subscription with unreadable tags")
			continue
		}
		subs = append(subs, Subscription{ID: row.ID, Subscriber: row.Subscriber, Tags: tags})
	}
	return subs
}
