package subscription

import (
	"regexp"
	"strings"
	"sync"

	"github.com/longbridgeapp/opencc"
	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// t2s converts traditional Chinese to simplified. Fansub titles mix both
// scripts for the same show.
var t2s = sync.OnceValues(func() (*opencc.OpenCC, error) {
	return opencc.New("t2s")
})

// fold normalizes text for tag comparison: traditional characters become
// simplified, full-width forms collapse to ASCII and case differences
// disappear.
func fold(s string) string {
	if cc, err := t2s(); err == nil {
		if converted, err := cc.Convert(s); err == nil {
			s = converted
		}
	}
	return cases.Fold().String(width.Fold.String(s))
}

// Match reports whether every tag occurs in title. An empty tag set
// matches nothing.
func Match(tags []string, title string) bool {
	if len(tags) == 0 {
		return false
	}
	t := fold(title)
	for _, tag := range tags {
		if !strings.Contains(t, fold(tag)) {
			return false
		}
	}
	return true
}

var folderReplacer = strings.NewReplacer(
	`\`, " ", "/", " ", ":", " ", "*", " ", "?", " ",
	`"`, " ", "<", " ", ">", " ", "|", " ",
)

// FolderName joins tags into a directory name, replacing characters that
// are not allowed in paths on common filesystems.
func FolderName(tags []string) string {
	return strings.TrimSpace(folderReplacer.Replace(strings.Join(tags, " ")))
}

var (
	bracketed = regexp.MustCompile(`\[[^\]]*\]|【[^】]*】|\([^)]*\)`)
	episode   = regexp.MustCompile(`\s-\s*\d+(\.\d+)?(v\d+)?\s*$`)
)

// ExtractTags derives a tag set from a release title: bracketed groups
// are dropped, only the first of several " / " separated names is kept,
// and a trailing episode number is removed.
//
//	"[ANi] Yoru no Kurage / 夜晚的水母 - 04 [1080P]" -> ["Yoru", "no", "Kurage"]
func ExtractTags(title string) []string {
	s := bracketed.ReplaceAllString(title, " ")
	if i := strings.Index(s, " / "); i >= 0 {
		s = s[:i]
	}
	s = episode.ReplaceAllString(strings.TrimSpace(s), "")
	tags := strings.Fields(s)
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// ParseTags splits space separated command input into tags.
func ParseTags(input string) []string {
	tags := strings.Fields(input)
	if len(tags) == 0 {
		return nil
	}
	return tags
}
