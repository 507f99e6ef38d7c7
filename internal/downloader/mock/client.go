// Package mock provides an in-memory torrent client for developer mode and tests.
package mock

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/episodic/episodic/internal/downloader/torrentfile"
	"github.com/episodic/episodic/internal/downloader/types"
)

const (
	// DefaultDownloadDuration is how long a simulated download takes to complete.
	DefaultDownloadDuration = 5 * time.Minute
	// QueueDelay is how long torrents stay queued before starting.
	QueueDelay = 2 * time.Second
)

// mockTorrent represents a torrent known to the mock client.
type mockTorrent struct {
	Hash     string
	Name     string
	Size     int64
	SavePath string
	AddedAt  time.Time
	// Progress overrides the simulated progress when >= 0.
	Progress float64
}

// Client simulates a torrent client. Without manual progress overrides,
// torrents complete DownloadDuration after being added.
type Client struct {
	mu       sync.RWMutex
	torrents map[string]*mockTorrent
	now      func() time.Time

	// DownloadDuration controls the simulated download speed.
	DownloadDuration time.Duration

	unavailable bool

	addCalls        int
	reannounceCalls int
}

// Compile-time check that Client implements TorrentClient.
var _ types.TorrentClient = (*Client)(nil)

// New creates an empty mock client.
func New() *Client {
	return &Client{
		torrents:         make(map[string]*mockTorrent),
		now:              time.Now,
		DownloadDuration: DefaultDownloadDuration,
	}
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeMock
}

// Login always succeeds unless the client is marked unavailable.
func (c *Client) Login(_ context.Context) error {
	return c.check()
}

// Torrents returns the statuses of the requested torrents.
func (c *Client) Torrents(_ context.Context, hashes []string) ([]types.ClientStatus, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	statuses := make([]types.ClientStatus, 0, len(hashes))
	if len(hashes) == 0 {
		for _, t := range c.torrents {
			statuses = append(statuses, c.status(t, now))
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].Hash < statuses[j].Hash })
		return statuses, nil
	}
	for _, h := range hashes {
		if t, ok := c.torrents[h]; ok {
			statuses = append(statuses, c.status(t, now))
		}
	}
	return statuses, nil
}

// AddTorrent registers the torrent under its info-hash.
func (c *Client) AddTorrent(_ context.Context, file []byte, savePath string) error {
	if err := c.check(); err != nil {
		return err
	}

	tf, err := torrentfile.Parse(file)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.addCalls++
	if _, exists := c.torrents[tf.InfoHash]; exists {
		return nil
	}
	c.torrents[tf.InfoHash] = &mockTorrent{
		Hash:     tf.InfoHash,
		Name:     tf.Name,
		Size:     tf.TotalSize,
		SavePath: filepath.Clean(savePath),
		AddedAt:  c.now(),
		Progress: -1,
	}
	return nil
}

// Reannounce is recorded but otherwise a no-op.
func (c *Client) Reannounce(_ context.Context, _ []string) error {
	if err := c.check(); err != nil {
		return err
	}
	c.mu.Lock()
	c.reannounceCalls++
	c.mu.Unlock()
	return nil
}

// SetProgress pins the progress of a torrent.
func (c *Client) SetProgress(hash string, progress float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.torrents[hash]
	if !ok {
		return types.ErrNotFound
	}
	t.Progress = progress
	return nil
}

// Remove forgets a torrent, as if it was deleted in the client's UI.
func (c *Client) Remove(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.torrents, hash)
}

// SetUnavailable makes every call fail with ErrClientUnavailable until reset.
func (c *Client) SetUnavailable(unavailable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable = unavailable
}

// AddCalls returns how many times AddTorrent reached the client.
func (c *Client) AddCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addCalls
}

// ReannounceCalls returns how many reannounce requests were made.
func (c *Client) ReannounceCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reannounceCalls
}

func (c *Client) check() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.unavailable {
		return types.ErrClientUnavailable
	}
	return nil
}

// status computes the current state of a mock torrent.
func (c *Client) status(t *mockTorrent, now time.Time) types.ClientStatus {
	progress := t.Progress
	if progress < 0 {
		elapsed := now.Sub(t.AddedAt) - QueueDelay
		switch {
		case elapsed <= 0:
			progress = 0
		case c.DownloadDuration <= 0 || elapsed >= c.DownloadDuration:
			progress = 1
		default:
			progress = float64(elapsed) / float64(c.DownloadDuration)
		}
	}

	state := "downloading"
	switch {
	case progress >= 1:
		state = "uploading"
	case progress == 0:
		state = "queuedDL"
	}

	return types.ClientStatus{
		Hash:     t.Hash,
		Name:     t.Name,
		SavePath: t.SavePath,
		Progress: progress,
		State:    state,
		Size:     t.Size,
	}
}
