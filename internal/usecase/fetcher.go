package usecase

import (
	"context"
	"log/slog"
	"sync"

	"feedingest/internal/domain"
	"feedingest/internal/retry"
)

type fetchFunc func(ctx context.Context, url string) (string, error)

type extractFunc func(item domain.DiscoveredItem, rawHTML string) domain.ExtractedContent

// fetchAll retrieves and extracts content for every item concurrently, one
// goroutine per item. Items carrying inline feed content skip the network
// entirely. A failed fetch drops only that item after its retries are spent;
// the rest of the batch is unaffected. Results preserve the input order, not
// completion order.
func fetchAll(
	ctx context.Context,
	items []domain.DiscoveredItem,
	fetch fetchFunc,
	extract extractFunc,
	policy retry.Policy,
	logger *slog.Logger,
) []domain.ExtractedContent {
	if len(items) == 0 {
		return nil
	}

	results := make([]*domain.ExtractedContent, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item domain.DiscoveredItem) {
			defer wg.Done()

			body := item.InlineContent
			if body == "" {
				var err error
				body, err = retry.DoValue(ctx, policy, func(ctx context.Context) (string, error) {
					return fetch(ctx, item.URL)
				})
				if err != nil {
					logger.Warn("fetch failed, skipping item",
						"url", item.URL,
						"title", item.Title,
						"error", err)
					return
				}
			}

			content := extract(item, body)
			results[i] = &content
		}(i, item)
	}
	wg.Wait()

	out := make([]domain.ExtractedContent, 0, len(items))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
