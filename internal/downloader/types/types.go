// Package types defines shared types for the torrent client gateway.
package types

import (
	"context"
	"errors"
	"time"
)

// Common errors for torrent clients.
var (
	ErrAlreadySubmitted  = errors.New("torrent already submitted")
	ErrNotFound          = errors.New("torrent not found")
	ErrClientUnavailable = errors.New("torrent client unavailable")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidTorrent    = errors.New("invalid torrent file")
)

// ClientType represents the type of torrent client.
type ClientType string

const (
	ClientTypeQBittorrent ClientType = "qbittorrent"
	ClientTypeMock        ClientType = "mock" // In-memory client for developer mode
)

// ClientConfig holds connection settings for a torrent client.
type ClientConfig struct {
	Host     string
	Username string
	Password string
	Timeout  time.Duration
	// InsecureTLS skips certificate verification for self-signed WebUIs.
	InsecureTLS bool
}

// TorrentClient is the control API of an external download daemon.
// All hashes are lowercase hex SHA-1 info-hashes.
type TorrentClient interface {
	Type() ClientType

	Login(ctx context.Context) error

	// Torrents returns the client's records for the given hashes.
	// Unknown hashes are simply absent from the result.
	Torrents(ctx context.Context, hashes []string) ([]ClientStatus, error)
	AddTorrent(ctx context.Context, file []byte, savePath string) error
	Reannounce(ctx context.Context, hashes []string) error
}

// ClientStatus is the torrent client's status snapshot for one torrent.
type ClientStatus struct {
	Hash        string  `json:"hash" yaml:"hash"`
	Name        string  `json:"name" yaml:"name"`
	SavePath    string  `json:"savePath" yaml:"save_path"`
	ContentPath string  `json:"contentPath,omitempty" yaml:"content_path,omitempty"`
	Progress    float64 `json:"progress" yaml:"progress"` // 0-1
	State       string  `json:"state,omitempty" yaml:"state,omitempty"`
	Size        int64   `json:"size,omitempty" yaml:"size,omitempty"`
}

// Complete reports whether the client has every piece of the torrent.
// Progress at or above 1 is the only completion signal; any fraction
// below it, however close, is still downloading.
func (s ClientStatus) Complete() bool {
	return s.Progress >= 1.0
}
