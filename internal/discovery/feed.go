// Package discovery turns raw feed bytes into discovered items and diffs them
// against previously seen ids. Parsing never fails: malformed input degrades
// to an empty result so a bad feed reads as "nothing new this run".
package discovery

import (
	"strings"

	"feedingest/internal/domain"
)

const sniffWindow = 100

// Parse converts raw feed content into discovered items. Atom and RSS
// documents are tried first when the input looks like XML; if that yields
// nothing, the input is re-read as an HTML index page. Items without a
// resolvable URL or a non-empty title are dropped, and duplicate URLs keep
// only their first occurrence.
func Parse(rawFeed, defaultSource string) []domain.DiscoveredItem {
	trimmed := strings.TrimSpace(rawFeed)
	if trimmed == "" {
		return nil
	}

	var items []domain.DiscoveredItem
	if looksLikeXML(trimmed) {
		items = parseXMLFeed(trimmed, defaultSource)
	}
	if len(items) == 0 {
		items = parseHTMLIndex(rawFeed, defaultSource)
	}

	return dedupeByID(items)
}

func looksLikeXML(s string) bool {
	if strings.HasPrefix(s, "<?xml") || strings.HasPrefix(s, "<feed") || strings.HasPrefix(s, "<rss") {
		return true
	}
	head := s
	if len(head) > sniffWindow {
		head = head[:sniffWindow]
	}
	return strings.Contains(head, "<feed") || strings.Contains(head, "<rss")
}

func dedupeByID(items []domain.DiscoveredItem) []domain.DiscoveredItem {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.DiscoveredItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
