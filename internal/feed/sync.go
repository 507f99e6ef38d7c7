package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	notiftypes "github.com/episodic/episodic/internal/notification/types"
	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/subscription"
)

// Source lists the newest releases.
type Source interface {
	Latest(ctx context.Context) ([]Release, error)
	BaseURL() string
}

// Subscriptions lists every subscription.
type Subscriptions interface {
	All(ctx context.Context) ([]subscription.Subscription, error)
}

// Enqueuer submits a release for one subscriber.
type Enqueuer interface {
	Enqueue(ctx context.Context, req orchestrator.Request) (orchestrator.EnqueueResult, error)
}

// Announcer tells a subscriber that a release can be watched.
type Announcer interface {
	NotifyReady(ctx context.Context, event notiftypes.ReadyEvent) error
}

// SyncResult summarizes one feed sync. Pending counts releases not yet
// delivered to every matching subscription, including ones left over from
// earlier syncs.
type SyncResult struct {
	Fetched int `json:"fetched"`
	New     int `json:"new"`
	Pending int `json:"pending"`
	Matched int `json:"matched"`
	Queued  int `json:"queued"`
}

// SyncService pulls the feed and queues releases that match subscriptions.
type SyncService struct {
	source        Source
	store         *Store
	subscriptions Subscriptions
	enqueuer      Enqueuer
	announcer     Announcer
	logger        zerolog.Logger
}

// NewSyncService creates a feed sync service.
func NewSyncService(source Source, store *Store, subs Subscriptions, enqueuer Enqueuer, announcer Announcer, logger zerolog.Logger) *SyncService {
	return &SyncService{
		source:        source,
		store:         store,
		subscriptions: subs,
		enqueuer:      enqueuer,
		announcer:     announcer,
		logger:        logger.With().Str("component", "feed-sync").Logger(),
	}
}

// Run fetches the feed once. A release is matched until every matching
// subscriber got a final outcome, so temporary failures are retried on the
// next run; a failure for one subscriber does not stop the others.
func (s *SyncService) Run(ctx context.Context) error {
	_, err := s.Sync(ctx)
	return err
}

// Sync is Run with a summary.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	releases, err := s.source.Latest(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch feed: %w", err)
	}
	result.Fetched = len(releases)

	pending := make([]Release, 0, len(releases))
	for _, r := range releases {
		created, err := s.store.Remember(ctx, r, r.TorrentURL(s.source.BaseURL()))
		if err != nil {
			return result, err
		}
		if created {
			result.New++
		} else {
			stored, err := s.store.Get(ctx, r.ID)
			if err != nil {
				return result, err
			}
			if stored.Synced {
				continue
			}
		}
		pending = append(pending, r)
	}
	result.Pending = len(pending)
	if len(pending) == 0 {
		s.logger.Debug().Msg("No new releases")
		return result, nil
	}
	s.logger.Info().Int("new", result.New).Int("pending", len(pending)).Msg("Feed updated")

	subs, err := s.subscriptions.All(ctx)
	if err != nil {
		return result, err
	}

	var errs []error
	for _, r := range pending {
		complete := true
		for _, sub := range subs {
			if !subscription.Match(sub.Tags, r.Title) {
				continue
			}
			delivered, err := s.store.Delivered(ctx, r.ID, sub.Subscriber)
			if err != nil {
				errs = append(errs, err)
				complete = false
				continue
			}
			if delivered {
				continue
			}
			result.Matched++
			outcome, err := s.deliver(ctx, sub, r)
			if err == nil {
				err = s.store.RecordDelivery(ctx, r.ID, sub.Subscriber, outcome.String())
			}
			if err != nil {
				errs = append(errs, err)
				complete = false
				continue
			}
			if outcome == orchestrator.Queued {
				result.Queued++
			}
		}
		if complete {
			if err := s.store.MarkSynced(ctx, r.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}

	s.logger.Info().
		Int("matched", result.Matched).
		Int("queued", result.Queued).
		Int("failed", len(errs)).
		Msg("Feed sync complete")
	return result, errors.Join(errs...)
}

func (s *SyncService) deliver(ctx context.Context, sub subscription.Subscription, r Release) (orchestrator.EnqueueOutcome, error) {
	logger := s.logger.With().
		Str("subscriber", sub.Subscriber).
		Int64("torrentId", r.ID).
		Logger()

	res, err := s.enqueuer.Enqueue(ctx, orchestrator.Request{
		Subscriber: sub.Subscriber,
		TorrentID:  r.ID,
		Title:      r.Title,
		TorrentURL: r.TorrentURL(s.source.BaseURL()),
		Folder:     sub.FolderName(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("title", r.Title).Msg("Failed to queue release, will retry")
		return res.Outcome, fmt.Errorf("queue %d for %s: %w", r.ID, sub.Subscriber, err)
	}

	switch res.Outcome {
	case orchestrator.AlreadyAvailable:
		if err := s.announcer.NotifyReady(ctx, notiftypes.ReadyEvent{
			Title:      r.Title,
			TorrentID:  r.ID,
			Subscriber: sub.Subscriber,
		}); err != nil {
			return res.Outcome, fmt.Errorf("announce %d to %s: %w", r.ID, sub.Subscriber, err)
		}
	case orchestrator.AlreadySubmitted:
		logger.Info().Str("title", r.Title).Msg("Release already in download queue")
	case orchestrator.Queued:
		logger.Info().Str("title", r.Title).Msg("Downloading release")
	}
	return res.Outcome, nil
}
