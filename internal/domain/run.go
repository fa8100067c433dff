package domain

// MaxLastTitles bounds how many titles a RunMetadata may carry, keeping the
// persisted record small no matter how large a run was.
const MaxLastTitles = 5

// RunMetadata is a compact, size-bounded summary of one pipeline run.
type RunMetadata struct {
	DiscoveredCount int      `json:"discovered_count"`
	NewCount        int      `json:"new_count"`
	FetchedCount    int      `json:"fetched_count"`
	SummarizedCount int      `json:"summarized_count"`
	LastTitles      []string `json:"last_titles,omitempty"`
}

// BoundTitles returns at most MaxLastTitles titles, keeping the earliest
// entries (feeds list newest items first).
func BoundTitles(titles []string) []string {
	if len(titles) == 0 {
		return nil
	}
	if len(titles) > MaxLastTitles {
		titles = titles[:MaxLastTitles]
	}
	return append([]string(nil), titles...)
}
