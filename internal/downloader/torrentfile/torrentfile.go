// Package torrentfile decodes .torrent metainfo and computes info-hashes.
package torrentfile

import (
	"bytes"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/episodic/episodic/internal/downloader/types"
)

// File is the subset of a torrent's metainfo the gateway needs.
type File struct {
	InfoHash  string // lowercase hex SHA-1 of the bencoded info dictionary
	Name      string
	TotalSize int64
	MultiFile bool
}

// Parse decodes a bencoded .torrent file.
func Parse(data []byte) (*File, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidTorrent, err)
	}
	if len(mi.InfoBytes) == 0 {
		return nil, fmt.Errorf("%w: missing info dictionary", types.ErrInvalidTorrent)
	}

	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidTorrent, err)
	}

	return &File{
		// The hash covers the info dictionary exactly as encoded in the file,
		// which is what the torrent client hashes too.
		InfoHash:  mi.HashInfoBytes().HexString(),
		Name:      info.Name,
		TotalSize: info.TotalLength(),
		MultiFile: len(info.Files) > 0,
	}, nil
}

// InfoHash returns the lowercase hex info-hash of a .torrent file.
func InfoHash(data []byte) (string, error) {
	f, err := Parse(data)
	if err != nil {
		return "", err
	}
	return f.InfoHash, nil
}
