// Package downloader is the gateway between the task pipeline and the
// external torrent client.
package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/downloader/torrentfile"
	"github.com/episodic/episodic/internal/downloader/types"
)

// SubmitOutcome tells the caller what a submission did.
type SubmitOutcome int

const (
	// Submitted means the torrent was handed to the client.
	Submitted SubmitOutcome = iota
	// AlreadySubmitted means the client already knew the info-hash; nothing was added.
	AlreadySubmitted
)

func (o SubmitOutcome) String() string {
	switch o {
	case Submitted:
		return "submitted"
	case AlreadySubmitted:
		return "already_submitted"
	default:
		return "unknown"
	}
}

// SubmitResult is the result of Gateway.Submit.
type SubmitResult struct {
	Outcome SubmitOutcome
	Hash    string
	Status  types.ClientStatus
}

// QueryOutcome tells whether the client knows a hash.
type QueryOutcome int

const (
	Found QueryOutcome = iota
	NotFound
)

// QueryResult is the result of Gateway.QueryStatus.
type QueryResult struct {
	Outcome QueryOutcome
	Status  types.ClientStatus
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// DownloadRoot is prefixed to every target folder.
	DownloadRoot string
	// RegisterAttempts bounds how often a freshly added torrent is looked up
	// before falling back to a locally derived snapshot.
	RegisterAttempts int
	RegisterDelay    time.Duration
}

// Gateway submits torrents to the client and reads back their status.
type Gateway struct {
	client types.TorrentClient
	cfg    GatewayConfig
	logger zerolog.Logger
}

// NewGateway creates a new gateway around a torrent client.
func NewGateway(client types.TorrentClient, cfg GatewayConfig, logger zerolog.Logger) *Gateway {
	if cfg.RegisterAttempts <= 0 {
		cfg.RegisterAttempts = 5
	}
	if cfg.RegisterDelay <= 0 {
		cfg.RegisterDelay = time.Second
	}
	return &Gateway{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "gateway").Logger(),
	}
}

// SavePath returns the directory a target folder resolves to.
func (g *Gateway) SavePath(folder string) string {
	if folder == "" {
		return g.cfg.DownloadRoot
	}
	return filepath.Join(g.cfg.DownloadRoot, folder)
}

// Submit hands a .torrent file to the client unless the client already has
// its info-hash, in which case nothing is added and AlreadySubmitted is returned.
func (g *Gateway) Submit(ctx context.Context, torrentFile []byte, folder string) (SubmitResult, error) {
	tf, err := torrentfile.Parse(torrentFile)
	if err != nil {
		return SubmitResult{}, err
	}
	hash := tf.InfoHash

	existing, err := g.lookup(ctx, hash)
	if err != nil {
		return SubmitResult{}, err
	}
	if existing != nil {
		g.logger.Info().Str("hash", hash).Str("name", existing.Name).Msg("torrent already known to client")
		return SubmitResult{Outcome: AlreadySubmitted, Hash: hash, Status: *existing}, nil
	}

	savePath := g.SavePath(folder)
	if err := g.client.AddTorrent(ctx, torrentFile, savePath); err != nil {
		return SubmitResult{}, fmt.Errorf("failed to add torrent %s: %w", hash, err)
	}

	if err := g.client.Reannounce(ctx, []string{hash}); err != nil {
		g.logger.Debug().Err(err).Str("hash", hash).Msg("reannounce failed")
	}

	status, err := g.waitRegistered(ctx, hash)
	if err != nil {
		return SubmitResult{}, err
	}
	if status == nil {
		// The client accepted the file but has not listed it yet; the poll
		// pass refreshes the snapshot later.
		status = &types.ClientStatus{
			Hash:     hash,
			Name:     tf.Name,
			SavePath: savePath,
			Size:     tf.TotalSize,
		}
	}

	g.logger.Info().
		Str("hash", hash).
		Str("name", status.Name).
		Str("savePath", savePath).
		Msg("torrent submitted")

	return SubmitResult{Outcome: Submitted, Hash: hash, Status: *status}, nil
}

// QueryStatus returns the client's current snapshot for a hash.
func (g *Gateway) QueryStatus(ctx context.Context, hash string) (QueryResult, error) {
	status, err := g.lookup(ctx, hash)
	if err != nil {
		return QueryResult{}, err
	}
	if status == nil {
		return QueryResult{Outcome: NotFound}, nil
	}
	return QueryResult{Outcome: Found, Status: *status}, nil
}

func (g *Gateway) lookup(ctx context.Context, hash string) (*types.ClientStatus, error) {
	statuses, err := g.client.Torrents(ctx, []string{hash})
	if err != nil {
		return nil, fmt.Errorf("failed to query torrent %s: %w", hash, err)
	}
	for i := range statuses {
		if statuses[i].Hash == hash {
			return &statuses[i], nil
		}
	}
	return nil, nil
}

func (g *Gateway) waitRegistered(ctx context.Context, hash string) (*types.ClientStatus, error) {
	for attempt := 1; attempt <= g.cfg.RegisterAttempts; attempt++ {
		status, err := g.lookup(ctx, hash)
		if err != nil {
			return nil, err
		}
		if status != nil {
			return status, nil
		}
		if attempt == g.cfg.RegisterAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.cfg.RegisterDelay):
		}
	}
	return nil, nil
}

// InfoHash returns the lowercase hex info-hash of a .torrent file.
func InfoHash(torrentFile []byte) (string, error) {
	return torrentfile.InfoHash(torrentFile)
}
