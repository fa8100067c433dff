package discovery

import (
	"strings"
	"time"
)

// timeFormats is the fixed set of accepted date layouts: ISO dates with and
// without time and zone, plus the RFC 1123/822 forms RSS pubDate uses.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

// ParseTime parses a published date. Unrecognized formats yield nil rather
// than an error.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeFormats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	return nil
}
