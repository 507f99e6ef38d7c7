// Package library is the durable video registry: the source of truth for
// which releases are complete and where their files live.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/database/sqlc"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrInvalidVideo  = errors.New("invalid video data")
)

// Service provides video registry operations.
type Service struct {
	db      *sql.DB
	queries *sqlc.Queries
	logger  zerolog.Logger
}

// NewService creates a new video registry service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		queries: sqlc.New(db),
		logger:  logger.With().Str("component", "library").Logger(),
	}
}

// Register inserts a video unless one with the same ID already exists.
// An existing row is never modified; created reports whether a row was added.
func (s *Service) Register(ctx context.Context, v Video) (created bool, err error) {
	if v.ID <= 0 || strings.TrimSpace(v.Path) == "" {
		return false, ErrInvalidVideo
	}

	n, err := s.queries.CreateVideo(ctx, sqlc.CreateVideoParams{
		ID:    v.ID,
		Title: v.Title,
		Path:  v.Path,
	})
	if err != nil {
		return false, fmt.Errorf("failed to register video %d: %w", v.ID, err)
	}

	if n > 0 {
		s.logger.Info().Int64("videoId", v.ID).Str("title", v.Title).Str("path", v.Path).Msg("Registered video")
	}
	return n > 0, nil
}

// Get retrieves a video by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Video, error) {
	row, err := s.queries.GetVideo(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return rowToVideo(row), nil
}

// List returns every registered video, newest first.
func (s *Service) List(ctx context.Context) ([]*Video, error) {
	rows, err := s.queries.ListVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	videos := make([]*Video, len(rows))
	for i, row := range rows {
		videos[i] = rowToVideo(row)
	}
	return videos, nil
}

// Count returns the number of registered videos.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.queries.CountVideos(ctx)
}

func rowToVideo(row *sqlc.Video) *Video {
	return &Video{
		ID:        row.ID,
		Title:     row.Title,
		Path:      row.Path,
		CreatedAt: row.CreatedAt,
	}
}
