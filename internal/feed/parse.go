package feed

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse extracts releases from a listing page. Rows without a detail
// link or a .torrent download link are skipped.
func Parse(r io.Reader) ([]Release, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	var releases []Release
	seen := make(map[int64]bool)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		release, ok := parseRow(row)
		if !ok || seen[release.ID] {
			return
		}
		seen[release.ID] = true
		releases = append(releases, release)
	})
	return releases, nil
}

func parseRow(row *goquery.Selection) (Release, bool) {
	if row.Find(`td.action a[href$=".torrent"]`).Length() == 0 {
		return Release{}, false
	}

	var release Release
	found := false
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		id, ok := parseLink(href)
		if !ok {
			return true
		}
		release = Release{
			ID:    id,
			Title: strings.TrimSpace(a.Text()),
			Link:  strings.TrimSpace(href),
		}
		found = true
		return false
	})
	if !found || release.Title == "" {
		return Release{}, false
	}

	release.Size = strings.TrimSpace(row.Find("td.size").First().Text())
	return release, true
}
