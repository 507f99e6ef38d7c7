package streaming

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedRange is returned for Range headers that cannot be served.
var ErrMalformedRange = errors.New("malformed range")

// ParseRange parses a single "bytes=start-end" or "bytes=start-" range
// against a resource of size bytes. The end is clamped to size-1.
// Suffix ranges, multiple ranges, start > end and start >= size are
// rejected with ErrMalformedRange.
func ParseRange(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return 0, 0, ErrMalformedRange
	}
	if strings.Contains(spec, ",") {
		return 0, 0, ErrMalformedRange
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok || startStr == "" {
		return 0, 0, ErrMalformedRange
	}

	start, err = parseOffset(startStr)
	if err != nil {
		return 0, 0, err
	}
	if start >= size {
		return 0, 0, ErrMalformedRange
	}

	end = size - 1
	if endStr != "" {
		e, err := parseOffset(endStr)
		if err != nil {
			return 0, 0, err
		}
		if e < start {
			return 0, 0, ErrMalformedRange
		}
		if e < end {
			end = e
		}
	}
	return start, end, nil
}

func parseOffset(s string) (int64, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrMalformedRange
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedRange
	}
	return n, nil
}
