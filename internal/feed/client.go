package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	// maxTorrentSize bounds .torrent downloads.
	maxTorrentSize = 10 << 20
)

// ErrNoTags is returned by Search when no search terms are given.
var ErrNoTags = errors.New("no search terms")

// Client reads listing pages and torrent files from the feed site.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a feed client for the site at baseURL.
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With().Str("component", "feed").Logger(),
	}
}

// BaseURL returns the site root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Latest returns the releases on the site's front page.
func (c *Client) Latest(ctx context.Context) ([]Release, error) {
	return c.list(ctx, c.baseURL+"/")
}

// Search returns the releases whose listing matches all terms.
func (c *Client) Search(ctx context.Context, terms []string) ([]Release, error) {
	if len(terms) == 0 {
		return nil, ErrNoTags
	}
	escaped := make([]string, 0, len(terms))
	for _, term := range terms {
		escaped = append(escaped, url.QueryEscape(term))
	}
	return c.list(ctx, c.baseURL+"/?term="+strings.Join(escaped, "+"))
}

// FetchTorrent downloads a .torrent file.
func (c *Client) FetchTorrent(ctx context.Context, torrentURL string) ([]byte, error) {
	body, err := c.get(ctx, torrentURL, maxTorrentSize+1)
	if err != nil {
		return nil, err
	}
	if len(body) > maxTorrentSize {
		return nil, fmt.Errorf("torrent %s exceeds %d bytes", torrentURL, maxTorrentSize)
	}

	c.logger.Debug().
		Int("size", len(body)).
		Str("url", torrentURL).
		Msg("Torrent downloaded")
	return body, nil
}

func (c *Client) list(ctx context.Context, pageURL string) ([]Release, error) {
	body, err := c.get(ctx, pageURL, -1)
	if err != nil {
		return nil, err
	}
	releases, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("url", pageURL).
		Int("releases", len(releases)).
		Msg("Listing fetched")
	return releases, nil
}

// get fetches url. A negative limit reads the whole body.
func (c *Client) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("request %s returned status %d", rawURL, resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if limit >= 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
