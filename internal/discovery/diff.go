package discovery

import "feedingest/internal/domain"

// Diff returns the discovered items whose ids are not in seen, preserving
// the order of discovered. A nil or empty seen set means every item is new.
func Diff(seen map[string]struct{}, discovered []domain.DiscoveredItem) []domain.DiscoveredItem {
	out := make([]domain.DiscoveredItem, 0, len(discovered))
	for _, item := range discovered {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}
