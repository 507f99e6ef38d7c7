package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/episodic/episodic/internal/downloader/types"
)

const testTorrent = "d8:announce21:http://tracker/announce4:infod6:lengthi1024e4:name11:episode.mkv12:piece lengthi16384e6:pieces20:aaaaaaaaaaaaaaaaaaaaee"

func TestClient_SimulatedProgress(t *testing.T) {
	c := New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	c.now = func() time.Time { return now }
	c.DownloadDuration = 10 * time.Second

	ctx := context.Background()
	if err := c.AddTorrent(ctx, []byte(testTorrent), "/downloads/show"); err != nil {
		t.Fatalf("AddTorrent() error = %v", err)
	}

	statuses, err := c.Torrents(ctx, nil)
	if err != nil || len(statuses) != 1 {
		t.Fatalf("Torrents() = %v, %v", statuses, err)
	}
	hash := statuses[0].Hash
	if statuses[0].Progress != 0 {
		t.Errorf("expected queued torrent at 0 progress, got %f", statuses[0].Progress)
	}

	now = start.Add(QueueDelay + 5*time.Second)
	statuses, _ = c.Torrents(ctx, []string{hash})
	if statuses[0].Progress != 0.5 {
		t.Errorf("expected progress 0.5, got %f", statuses[0].Progress)
	}

	now = start.Add(time.Minute)
	statuses, _ = c.Torrents(ctx, []string{hash})
	if !statuses[0].Complete() {
		t.Errorf("expected complete torrent, got %f", statuses[0].Progress)
	}
	if statuses[0].Name != "episode.mkv" || statuses[0].SavePath != "/downloads/show" {
		t.Errorf("unexpected status %+v", statuses[0])
	}
}

func TestClient_SetProgressAndRemove(t *testing.T) {
	c := New()
	ctx := context.Background()
	if err := c.AddTorrent(ctx, []byte(testTorrent), "/downloads"); err != nil {
		t.Fatalf("AddTorrent() error = %v", err)
	}
	all, _ := c.Torrents(ctx, nil)
	hash := all[0].Hash

	if err := c.SetProgress(hash, 1); err != nil {
		t.Fatalf("SetProgress() error = %v", err)
	}
	statuses, _ := c.Torrents(ctx, []string{hash})
	if statuses[0].State != "uploading" {
		t.Errorf("expected uploading state, got %s", statuses[0].State)
	}

	c.Remove(hash)
	statuses, _ = c.Torrents(ctx, []string{hash})
	if len(statuses) != 0 {
		t.Errorf("expected removed torrent to be absent, got %d", len(statuses))
	}
	if err := c.SetProgress(hash, 1); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Unavailable(t *testing.T) {
	c := New()
	c.SetUnavailable(true)

	if _, err := c.Torrents(context.Background(), []string{"abc"}); !errors.Is(err, types.ErrClientUnavailable) {
		t.Errorf("expected ErrClientUnavailable, got %v", err)
	}
	if err := c.AddTorrent(context.Background(), []byte(testTorrent), "/x"); !errors.Is(err, types.ErrClientUnavailable) {
		t.Errorf("expected ErrClientUnavailable, got %v", err)
	}
}
