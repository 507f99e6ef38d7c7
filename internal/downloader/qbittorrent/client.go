// Package qbittorrent implements the torrent client contract over the
// qBittorrent Web API v2.
package qbittorrent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/episodic/episodic/internal/downloader/types"
)

// Config holds the configuration for a qBittorrent client.
type Config struct {
	Host        string // Base URL of the WebUI, e.g. http://localhost:8080
	Username    string
	Password    string
	TimeoutSecs int
	InsecureTLS bool
}

// Client adapts a go-qbittorrent client to types.TorrentClient.
type Client struct {
	config Config
	api    *qbt.Client

	mu       sync.Mutex
	loggedIn bool
}

// Compile-time check that Client implements TorrentClient.
var _ types.TorrentClient = (*Client)(nil)

// New creates a new qBittorrent client.
func New(cfg Config) *Client {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}
	host := cfg.Host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	cfg.Host = strings.TrimRight(host, "/")

	return &Client{
		config: cfg,
		api: qbt.NewClient(qbt.Config{
			Host:          cfg.Host,
			Username:      cfg.Username,
			Password:      cfg.Password,
			TLSSkipVerify: cfg.InsecureTLS,
			Timeout:       cfg.TimeoutSecs,
		}),
	}
}

// NewFromConfig creates a client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig) *Client {
	return New(Config{
		Host:        cfg.Host,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TimeoutSecs: int(cfg.Timeout.Seconds()),
		InsecureTLS: cfg.InsecureTLS,
	})
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeQBittorrent
}

// Login authenticates against the WebUI and keeps the SID cookie.
func (c *Client) Login(ctx context.Context) error {
	if err := c.api.LoginCtx(ctx); err != nil {
		return mapError("login", err)
	}
	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	return nil
}

func (c *Client) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	loggedIn := c.loggedIn
	c.mu.Unlock()
	if loggedIn {
		return nil
	}
	return c.Login(ctx)
}

// Torrents returns the client's records for the given hashes.
func (c *Client) Torrents(ctx context.Context, hashes []string) ([]types.ClientStatus, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(hashes))
	for _, h := range hashes {
		normalized = append(normalized, strings.ToLower(h))
	}

	torrents, err := c.api.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Hashes: normalized})
	if err != nil {
		return nil, mapError("list torrents", err)
	}

	wanted := make(map[string]bool, len(normalized))
	for _, h := range normalized {
		wanted[h] = true
	}

	statuses := make([]types.ClientStatus, 0, len(torrents))
	for i := range torrents {
		s := toStatus(&torrents[i])
		// Older WebUI versions ignore the hashes filter
		if len(wanted) > 0 && !wanted[s.Hash] {
			continue
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// AddTorrent uploads a .torrent file with the given save path.
func (c *Client) AddTorrent(ctx context.Context, file []byte, savePath string) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}

	options := map[string]string{}
	if savePath != "" {
		options["savepath"] = savePath
		options["autoTMM"] = "false"
	}

	if err := c.api.AddTorrentFromMemoryCtx(ctx, file, options); err != nil {
		return mapError("add torrent", err)
	}
	return nil
}

// Reannounce asks the client to contact trackers again for the given hashes.
func (c *Client) Reannounce(ctx context.Context, hashes []string) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}
	if err := c.api.ReAnnounceTorrentsCtx(ctx, hashes); err != nil {
		return mapError("reannounce", err)
	}
	return nil
}

func toStatus(t *qbt.Torrent) types.ClientStatus {
	return types.ClientStatus{
		Hash:        strings.ToLower(t.Hash),
		Name:        t.Name,
		SavePath:    t.SavePath,
		ContentPath: t.ContentPath,
		Progress:    t.Progress,
		State:       string(t.State),
		Size:        t.Size,
	}
}

func mapError(op string, err error) error {
	if errors.Is(err, qbt.ErrBadCredentials) {
		return fmt.Errorf("qbittorrent %s: %w", op, types.ErrAuthFailed)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("qbittorrent %s: %w: %v", op, types.ErrClientUnavailable, err)
}
