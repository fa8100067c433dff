package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ItemID derives the stable identifier for an item URL: the SHA-256 digest of
// the URL rendered as lowercase hex. The same URL always yields the same id.
func ItemID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// DiscoveredItem is one article found in a feed before its body is fetched.
type DiscoveredItem struct {
	ID          string
	URL         string
	Title       string
	PublishedAt *time.Time
	Tags        []string
	Source      string

	// InlineContent carries the full HTML body when the feed itself provides
	// it (full-content Atom/RSS feeds). When set, no per-item fetch is needed.
	InlineContent string
}

// ExtractedContent is the parsed body of a single item.
type ExtractedContent struct {
	ItemID   string
	URL      string
	Title    string
	RawBody  string
	Text     string
	Sections []string
}
