// Package feed discovers releases on an ACG.RIP style listing site and
// hands matching ones to the orchestrator.
package feed

import (
	"regexp"
	"strconv"
	"strings"
)

// Release is one torrent listing on the feed site.
type Release struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	// Link is the detail page href as found on the page, absolute or
	// site-relative.
	Link string `json:"link"`
	Size string `json:"size"`
}

var detailLink = regexp.MustCompile(`^(?:https?://[^/\s]+)?/t/(\d+)$`)

// parseLink extracts the release ID from a detail page href.
func parseLink(href string) (int64, bool) {
	m := detailLink.FindStringSubmatch(strings.TrimSpace(href))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// TorrentURL returns the .torrent download URL for r on the site at baseURL.
func (r Release) TorrentURL(baseURL string) string {
	if strings.HasPrefix(r.Link, "http://") || strings.HasPrefix(r.Link, "https://") {
		return r.Link + ".torrent"
	}
	return TorrentURL(baseURL, r.ID)
}

// TorrentURL returns the .torrent URL of release id on the site at baseURL.
func TorrentURL(baseURL string, id int64) string {
	return strings.TrimRight(baseURL, "/") + "/t/" + strconv.FormatInt(id, 10) + ".torrent"
}
