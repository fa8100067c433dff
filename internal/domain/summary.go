package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	minBriefLen    = 10
	minDetailedLen = 50
)

// Summary is the structured output of the external summarizer, ready for
// ingestion into the retrieval index.
type Summary struct {
	ItemID      string     `json:"item_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Brief       string     `json:"brief_summary"`
	Detailed    string     `json:"detailed_summary"`
	KeyPoints   []string   `json:"key_points,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
}

// Validate checks the minimum lengths the index side relies on.
func (s Summary) Validate() error {
	if strings.TrimSpace(s.ItemID) == "" {
		return fmt.Errorf("summary item id is empty")
	}
	if len(strings.TrimSpace(s.Brief)) < minBriefLen {
		return fmt.Errorf("brief summary for %s is shorter than %d characters", s.ItemID, minBriefLen)
	}
	if len(strings.TrimSpace(s.Detailed)) < minDetailedLen {
		return fmt.Errorf("detailed summary for %s is shorter than %d characters", s.ItemID, minDetailedLen)
	}
	return nil
}

// NormalizeKeywords lowercases, trims, and de-duplicates keywords while
// preserving their original order.
func NormalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Document renders the summary as one plain-text retrieval document.
func (s Summary) Document() string {
	parts := []string{
		"Title: " + s.Title,
		"URL: " + s.URL,
	}
	if s.PublishedAt != nil {
		parts = append(parts, "Published: "+s.PublishedAt.Format(time.RFC3339))
	}

	parts = append(parts,
		"",
		"Executive Summary:",
		s.Brief,
		"",
		"Technical Summary:",
		s.Detailed,
	)

	if len(s.KeyPoints) > 0 {
		parts = append(parts, "", "Key Points:")
		for _, point := range s.KeyPoints {
			parts = append(parts, "- "+point)
		}
	}
	if len(s.Keywords) > 0 {
		parts = append(parts, "", "Keywords: "+strings.Join(s.Keywords, ", "))
	}

	return strings.Join(parts, "\n")
}
