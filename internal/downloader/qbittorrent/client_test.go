package qbittorrent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/episodic/episodic/internal/downloader/types"
)

type fakeTorrent struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	SavePath    string  `json:"save_path"`
	ContentPath string  `json:"content_path"`
	Progress    float64 `json:"progress"`
	State       string  `json:"state"`
	Size        int64   `json:"size"`
}

type fakeWebUI struct {
	loginCount      atomic.Int32
	addCount        atomic.Int32
	reannounceCount atomic.Int32
	savePath        atomic.Value
	torrents        []fakeTorrent
}

func (f *fakeWebUI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			f.loginCount.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "test-session", Path: "/"})
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ok."))
		case "/api/v2/app/webapiVersion":
			w.Write([]byte("2.9.3"))
		case "/api/v2/app/version":
			w.Write([]byte("v4.6.2"))
		case "/api/v2/torrents/info":
			hashes := r.FormValue("hashes")
			out := []fakeTorrent{}
			for _, tor := range f.torrents {
				if hashes == "" || strings.Contains(hashes, tor.Hash) {
					out = append(out, tor)
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(out)
		case "/api/v2/torrents/add":
			if err := r.ParseMultipartForm(10 << 20); err != nil {
				t.Errorf("failed to parse multipart form: %v", err)
			}
			f.savePath.Store(r.FormValue("savepath"))
			f.addCount.Add(1)
			w.Write([]byte("Ok."))
		case "/api/v2/torrents/reannounce":
			f.reannounceCount.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(server *httptest.Server) *Client {
	return New(Config{Host: server.URL, Username: "admin", Password: "adminadmin"})
}

func TestClient_Type(t *testing.T) {
	client := NewFromConfig(&types.ClientConfig{Host: "localhost:8080"})

	if client.Type() != types.ClientTypeQBittorrent {
		t.Errorf("expected ClientTypeQBittorrent, got %s", client.Type())
	}
	if client.config.Host != "http://localhost:8080" {
		t.Errorf("expected scheme to be added, got %s", client.config.Host)
	}
}

func TestClient_Torrents(t *testing.T) {
	ui := &fakeWebUI{torrents: []fakeTorrent{
		{Hash: "abc123", Name: "Episode 01.mkv", SavePath: "/downloads/show", Progress: 0.75, State: "downloading", Size: 1024},
		{Hash: "def456", Name: "Episode 02.mkv", SavePath: "/downloads/show", Progress: 1.0, State: "uploading", Size: 2048},
	}}
	server := httptest.NewServer(ui.handler(t))
	defer server.Close()

	client := newTestClient(server)

	statuses, err := client.Torrents(context.Background(), []string{"DEF456"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Hash != "def456" {
		t.Errorf("expected hash 'def456', got '%s'", statuses[0].Hash)
	}
	if !statuses[0].Complete() {
		t.Errorf("expected complete torrent, progress %f", statuses[0].Progress)
	}
	if statuses[0].SavePath != "/downloads/show" {
		t.Errorf("expected save path '/downloads/show', got '%s'", statuses[0].SavePath)
	}
	if ui.loginCount.Load() != 1 {
		t.Errorf("expected 1 login, got %d", ui.loginCount.Load())
	}
}

func TestClient_Torrents_Unknown(t *testing.T) {
	ui := &fakeWebUI{}
	server := httptest.NewServer(ui.handler(t))
	defer server.Close()

	statuses, err := newTestClient(server).Torrents(context.Background(), []string{"ffff"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("expected no statuses, got %d", len(statuses))
	}
}

func TestClient_AddTorrent(t *testing.T) {
	ui := &fakeWebUI{}
	server := httptest.NewServer(ui.handler(t))
	defer server.Close()

	client := newTestClient(server)

	if err := client.AddTorrent(context.Background(), []byte("d4:infod4:name1:aee"), "/downloads/Show"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ui.addCount.Load() != 1 {
		t.Errorf("expected 1 add call, got %d", ui.addCount.Load())
	}
	if got, _ := ui.savePath.Load().(string); got != "/downloads/Show" {
		t.Errorf("expected savepath '/downloads/Show', got '%s'", got)
	}
}

func TestClient_Reannounce(t *testing.T) {
	ui := &fakeWebUI{}
	server := httptest.NewServer(ui.handler(t))
	defer server.Close()

	if err := newTestClient(server).Reannounce(context.Background(), []string{"abc123"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ui.reannounceCount.Load() != 1 {
		t.Errorf("expected 1 reannounce call, got %d", ui.reannounceCount.Load())
	}
}

func TestClient_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(Config{Host: url, Username: "admin", Password: "adminadmin", TimeoutSecs: 2})

	_, err := client.Torrents(context.Background(), []string{"abc123"})
	if !errors.Is(err, types.ErrClientUnavailable) {
		t.Errorf("expected ErrClientUnavailable, got %v", err)
	}
}
