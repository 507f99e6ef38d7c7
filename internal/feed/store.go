package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/episodic/episodic/internal/database/sqlc"
)

// ErrReleaseNotFound is returned for release IDs never seen on the feed.
var ErrReleaseNotFound = errors.New("release not found")

// Store remembers every release seen on the feed or in search results.
type Store struct {
	queries *sqlc.Queries
}

// NewStore creates a release store.
func NewStore(db *sql.DB) *Store {
	return &Store{queries: sqlc.New(db)}
}

// Remember records r with its resolved torrent URL. It reports whether
// the release was new.
func (s *Store) Remember(ctx context.Context, r Release, torrentURL string) (bool, error) {
	n, err := s.queries.CreateRelease(ctx, sqlc.CreateReleaseParams{
		ID:         r.ID,
		Title:      r.Title,
		TorrentUrl: torrentURL,
		Size:       r.Size,
	})
	if err != nil {
		return false, fmt.Errorf("failed to store release %d: %w", r.ID, err)
	}
	return n > 0, nil
}

// StoredRelease is a release as persisted. Synced is set once every
// matching subscription received it from a feed sync.
type StoredRelease struct {
	Release
	TorrentURL string `json:"torrentUrl"`
	Synced     bool   `json:"synced"`
}

// Get returns a stored release.
func (s *Store) Get(ctx context.Context, id int64) (*StoredRelease, error) {
	row, err := s.queries.GetRelease(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReleaseNotFound
		}
		return nil, fmt.Errorf("failed to get release %d: %w", id, err)
	}
	return toStored(row), nil
}

// Recent returns up to limit releases, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]StoredRelease, error) {
	rows, err := s.queries.ListRecentReleases(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	out := make([]StoredRelease, 0, len(rows))
	for _, row := range rows {
		out = append(out, *toStored(row))
	}
	return out, nil
}

func toStored(row *sqlc.Release) *StoredRelease {
	return &StoredRelease{
		Release: Release{
			ID:    row.ID,
			Title: row.Title,
			Size:  row.Size,
		},
		TorrentURL: row.TorrentUrl,
		Synced:     row.SyncedAt.Valid,
	}
}

// MarkSynced records that a feed sync has delivered the release to every
// matching subscription.
func (s *Store) MarkSynced(ctx context.Context, id int64) error {
	if err := s.queries.MarkReleaseSynced(ctx, id); err != nil {
		return fmt.Errorf("failed to mark release %d synced: %w", id, err)
	}
	return nil
}

// Delivered reports whether the release already reached subscriber.
func (s *Store) Delivered(ctx context.Context, id int64, subscriber string) (bool, error) {
	n, err := s.queries.CountReleaseDeliveries(ctx, sqlc.CountReleaseDeliveriesParams{
		ReleaseID:  id,
		Subscriber: subscriber,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check delivery of release %d: %w", id, err)
	}
	return n > 0, nil
}

// RecordDelivery stores the final outcome of delivering a release to a
// subscriber.
func (s *Store) RecordDelivery(ctx context.Context, id int64, subscriber, outcome string) error {
	err := s.queries.CreateReleaseDelivery(ctx, sqlc.CreateReleaseDeliveryParams{
		ReleaseID:  id,
		Subscriber: subscriber,
		Outcome:    outcome,
	})
	if err != nil {
		return fmt.Errorf("failed to record delivery of release %d: %w", id, err)
	}
	return nil
}
