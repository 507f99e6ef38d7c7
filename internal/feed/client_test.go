package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	listing, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)

	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			queries = append(queries, r.URL.RawQuery)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(listing)
		case "/t/302390.torrent":
			w.Write([]byte("d4:infod4:name4:testee"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &queries
}

func TestClient_Latest(t *testing.T) {
	server, _ := newFeedServer(t)
	client := NewClient(server.URL+"/", nil, zerolog.Nop())

	releases, err := client.Latest(context.Background())
	require.NoError(t, err)
	assert.Len(t, releases, 2)
	assert.Equal(t, server.URL, client.BaseURL())
}

func TestClient_Search(t *testing.T) {
	server, queries := newFeedServer(t)
	client := NewClient(server.URL, nil, zerolog.Nop())

	_, err := client.Search(context.Background(), []string{"GIRLS BAND", "CRY"})
	require.NoError(t, err)
	require.Len(t, *queries, 1)
	assert.Equal(t, "term=GIRLS+BAND+CRY", (*queries)[0])

	_, err = client.Search(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTags)
}

func TestClient_FetchTorrent(t *testing.T) {
	server, _ := newFeedServer(t)
	client := NewClient(server.URL, nil, zerolog.Nop())

	data, err := client.FetchTorrent(context.Background(), TorrentURL(server.URL, 302390))
	require.NoError(t, err)
	assert.Equal(t, "d4:infod4:name4:testee", string(data))

	_, err = client.FetchTorrent(context.Background(), TorrentURL(server.URL, 1))
	assert.Error(t, err)
}
