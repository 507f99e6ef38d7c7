// Package orchestrator drives download tasks from submission to delivery.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/episodic/episodic/internal/downloader"
	"github.com/episodic/episodic/internal/library"
	notiftypes "github.com/episodic/episodic/internal/notification/types"
	"github.com/episodic/episodic/internal/streaming"
	"github.com/episodic/episodic/internal/taskstore"
)

// ErrPassInProgress is returned when a pass is requested while one runs.
var ErrPassInProgress = errors.New("task pass already in progress")

// Gateway submits torrents and reads their status.
type Gateway interface {
	Submit(ctx context.Context, torrentFile []byte, folder string) (downloader.SubmitResult, error)
	QueryStatus(ctx context.Context, hash string) (downloader.QueryResult, error)
}

// Registry records completed videos.
type Registry interface {
	Register(ctx context.Context, v library.Video) (bool, error)
}

// Router mounts completed videos for playback.
type Router interface {
	Register(path string, id int64) bool
	Has(id int64) bool
}

// Notifier delivers ready notifications.
type Notifier interface {
	NotifyReady(ctx context.Context, event notiftypes.ReadyEvent) error
}

// TorrentFetcher downloads .torrent files.
type TorrentFetcher interface {
	FetchTorrent(ctx context.Context, url string) ([]byte, error)
}

// Config configures the orchestrator.
type Config struct {
	// PollConcurrency bounds concurrent status queries within a pass.
	PollConcurrency int
}

// PassResult summarizes one pass over the task store.
type PassResult struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Tasks       int           `json:"tasks"`
	Unreachable int           `json:"unreachable"`
	Transitions int           `json:"transitions"`
	Failed      int           `json:"failed"`
	Purged      int           `json:"purged"`
}

// Service advances tasks through downloading, downloaded, wait_for_send
// and sent, and creates new tasks from submission requests.
type Service struct {
	gateway  Gateway
	store    *taskstore.Store
	registry Registry
	routes   Router
	notifier Notifier
	fetcher  TorrentFetcher
	cfg      Config
	logger   zerolog.Logger

	fileExists func(path string) bool

	running  sync.Mutex
	lastMu   sync.RWMutex
	lastPass *PassResult
}

// NewService creates a new orchestrator.
func NewService(
	gateway Gateway,
	store *taskstore.Store,
	registry Registry,
	routes Router,
	notifier Notifier,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if cfg.PollConcurrency <= 0 {
		cfg.PollConcurrency = 4
	}
	return &Service{
		gateway:    gateway,
		store:      store,
		registry:   registry,
		routes:     routes,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		fileExists: streaming.FileExists,
	}
}

// SetFetcher sets the fetcher used for requests that carry a torrent URL.
func (s *Service) SetFetcher(f TorrentFetcher) {
	s.fetcher = f
}

// LastPass returns the result of the most recent completed pass.
func (s *Service) LastPass() *PassResult {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.lastPass == nil {
		return nil
	}
	r := *s.lastPass
	return &r
}

// RunPass polls every task once, applies every transition it can, then
// purges sent tasks. Passes never overlap; a concurrent call returns
// ErrPassInProgress.
func (s *Service) RunPass(ctx context.Context) (*PassResult, error) {
	if !s.running.TryLock() {
		s.logger.Debug().Msg("Previous pass still running, skipping")
		return nil, ErrPassInProgress
	}
	defer s.running.Unlock()

	result := &PassResult{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := s.logger.With().Str("passId", result.ID).Logger()

	tasks := s.store.Snapshot()
	result.Tasks = len(tasks)

	observations := make([]Observation, len(tasks))
	var g errgroup.Group
	g.SetLimit(s.cfg.PollConcurrency)
	for i := range tasks {
		g.Go(func() error {
			observations[i] = s.observe(ctx, logger, tasks[i])
			return nil
		})
	}
	_ = g.Wait()

	// Store writes happen on this goroutine only.
	for i := range tasks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !observations[i].Found {
			result.Unreachable++
			continue
		}
		n, err := s.advanceTask(ctx, logger, tasks[i], observations[i])
		result.Transitions += n
		if err != nil {
			result.Failed++
			if errors.Is(err, taskstore.ErrStorage) {
				// The store cannot be written; retry the whole pass later.
				return result, err
			}
		}
	}

	purged, err := s.store.PurgeSent()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge sent tasks")
		return result, fmt.Errorf("purge sent tasks: %w", err)
	}
	result.Purged = purged
	result.Duration = time.Since(result.StartedAt)

	s.lastMu.Lock()
	s.lastPass = result
	s.lastMu.Unlock()

	logger.Debug().
		Int("tasks", result.Tasks).
		Int("unreachable", result.Unreachable).
		Int("transitions", result.Transitions).
		Int("failed", result.Failed).
		Int("purged", result.Purged).
		Dur("duration", result.Duration).
		Msg("Task pass complete")

	return result, nil
}

func (s *Service) observe(ctx context.Context, logger zerolog.Logger, task taskstore.Task) Observation {
	hash := task.Hash()
	if hash == "" {
		logger.Warn().Str("subscriber", task.ID).Int64("torrentId", task.TorrentID).Msg("Task has no info-hash")
		return Observation{}
	}

	res, err := s.gateway.QueryStatus(ctx, hash)
	if err != nil {
		logger.Debug().Err(err).Str("hash", hash).Msg("Status query failed, retrying next pass")
		return Observation{}
	}
	if res.Outcome == downloader.NotFound {
		logger.Debug().Str("hash", hash).Msg("Torrent not known to client, retrying next pass")
		return Observation{}
	}

	path := FilePath(res.Status)
	return Observation{
		Found:      true,
		Status:     res.Status,
		FilePath:   path,
		FileExists: s.fileExists(path),
	}
}

// advanceTask applies steps until none remain or one fails. Each step is
// persisted before the next is attempted.
func (s *Service) advanceTask(ctx context.Context, logger zerolog.Logger, task taskstore.Task, obs Observation) (int, error) {
	contentChanged := task.Content != obs.Status
	task.Content = obs.Status

	logger = logger.With().
		Str("subscriber", task.ID).
		Int64("torrentId", task.TorrentID).
		Str("hash", task.Hash()).
		Logger()

	transitions := 0
	for {
		step := Advance(task, obs)
		if step.Action == ActionNone {
			break
		}

		if err := s.apply(ctx, task, step); err != nil {
			logger.Warn().Err(err).Str("action", step.Action.String()).Msg("Step failed, retrying next pass")
			return transitions, s.persistContent(logger, task, contentChanged && transitions == 0, err)
		}

		next := task
		next.Status = step.Next
		if err := s.store.Update(next); err != nil {
			logger.Error().Err(err).
				Str("from", string(step.From)).
				Str("to", string(step.Next)).
				Msg("Failed to persist transition")
			return transitions, err
		}

		logger.Info().
			Str("from", string(step.From)).
			Str("to", string(step.Next)).
			Str("name", obs.Status.Name).
			Msg("Task advanced")

		task = next
		transitions++
	}

	if transitions == 0 && contentChanged {
		return 0, s.persistContent(logger, task, true, nil)
	}
	return transitions, nil
}

// persistContent stores a refreshed status snapshot. stepErr is returned
// unchanged so callers keep the original failure.
func (s *Service) persistContent(logger zerolog.Logger, task taskstore.Task, changed bool, stepErr error) error {
	if !changed {
		return stepErr
	}
	if err := s.store.Update(task); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist status snapshot")
		if stepErr == nil {
			return err
		}
	}
	return stepErr
}

func (s *Service) apply(ctx context.Context, task taskstore.Task, step Step) error {
	switch step.Action {
	case ActionRegisterVideo:
		_, err := s.registry.Register(ctx, step.Video)
		return err
	case ActionMountRoute:
		// Registration is idempotent; this restores an entry lost after the
		// task was persisted as downloaded.
		if _, err := s.registry.Register(ctx, step.Video); err != nil {
			return err
		}
		s.routes.Register(step.Video.Path, task.TorrentID)
		return nil
	case ActionNotify:
		return s.notifier.NotifyReady(ctx, notiftypes.ReadyEvent{
			Title:      task.Content.Name,
			TorrentID:  task.TorrentID,
			Subscriber: task.ID,
		})
	default:
		return nil
	}
}
