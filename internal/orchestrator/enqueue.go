package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/episodic/episodic/internal/downloader"
	"github.com/episodic/episodic/internal/taskstore"
)

// ErrNoTorrent is returned when a request carries neither a file nor a URL.
var ErrNoTorrent = errors.New("request has no torrent file or url")

// EnqueueOutcome is the result of a submission request.
type EnqueueOutcome int

const (
	// Queued means a new downloading task was created.
	Queued EnqueueOutcome = iota
	// AlreadySubmitted means the release is already being downloaded;
	// no task was created.
	AlreadySubmitted
	// AlreadyAvailable means the release is already mounted for playback.
	AlreadyAvailable
)

func (o EnqueueOutcome) String() string {
	switch o {
	case Queued:
		return "queued"
	case AlreadySubmitted:
		return "already_submitted"
	case AlreadyAvailable:
		return "already_available"
	default:
		return "unknown"
	}
}

// Request asks for a release to be downloaded for a subscriber.
type Request struct {
	Subscriber string
	TorrentID  int64
	Title      string
	// TorrentFile is used as-is when set; otherwise TorrentURL is fetched.
	TorrentFile []byte
	TorrentURL  string
	// Folder is the save folder below the download root.
	Folder string
}

// EnqueueResult reports what Enqueue did.
type EnqueueResult struct {
	Outcome EnqueueOutcome
	Task    *taskstore.Task
}

// Enqueue submits a release and creates its task. Duplicates are reported
// as outcomes, not errors.
func (s *Service) Enqueue(ctx context.Context, req Request) (EnqueueResult, error) {
	logger := s.logger.With().
		Str("subscriber", req.Subscriber).
		Int64("torrentId", req.TorrentID).
		Logger()

	if s.routes.Has(req.TorrentID) {
		return EnqueueResult{Outcome: AlreadyAvailable}, nil
	}
	if task, ok := s.store.Get(req.Subscriber, req.TorrentID); ok {
		return EnqueueResult{Outcome: AlreadySubmitted, Task: &task}, nil
	}

	file := req.TorrentFile
	if len(file) == 0 {
		if req.TorrentURL == "" || s.fetcher == nil {
			return EnqueueResult{}, ErrNoTorrent
		}
		var err error
		file, err = s.fetcher.FetchTorrent(ctx, req.TorrentURL)
		if err != nil {
			return EnqueueResult{}, fmt.Errorf("fetch torrent: %w", err)
		}
	}

	res, err := s.gateway.Submit(ctx, file, req.Folder)
	if err != nil {
		return EnqueueResult{}, err
	}
	if res.Outcome == downloader.AlreadySubmitted {
		logger.Info().Str("hash", res.Hash).Msg("Torrent already in client, no task created")
		return EnqueueResult{Outcome: AlreadySubmitted}, nil
	}

	task := taskstore.Task{
		ID:        req.Subscriber,
		TorrentID: req.TorrentID,
		Title:     req.Title,
		Content:   res.Status,
		Status:    taskstore.StatusDownloading,
	}
	if err := s.store.Add(task); err != nil {
		if errors.Is(err, taskstore.ErrTaskExists) {
			return EnqueueResult{Outcome: AlreadySubmitted}, nil
		}
		return EnqueueResult{}, fmt.Errorf("create task: %w", err)
	}

	logger.Info().Str("hash", res.Hash).Str("title", req.Title).Msg("Task queued")
	stored, _ := s.store.Get(req.Subscriber, req.TorrentID)
	return EnqueueResult{Outcome: Queued, Task: &stored}, nil
}
