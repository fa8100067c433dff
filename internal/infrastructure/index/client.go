// Package index implements ports.IndexStore against an HTTP retrieval
// backend that accepts rendered summary documents.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"feedingest/internal/config"
	"feedingest/internal/domain"
	"feedingest/internal/ports"
)

// Client posts summaries to the index ingestion endpoint.
type Client struct {
	baseURL  string
	corpusID string
	apiKey   string
	http     *http.Client
}

var _ ports.IndexStore = (*Client)(nil)

// NewClient builds an ingest client from configuration.
func NewClient(cfg config.IndexConfig) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		corpusID: cfg.CorpusID,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Ingest writes one summary into the retrieval backend. Failures surface to
// the caller; the pipeline decides whether and how to retry.
func (c *Client) Ingest(ctx context.Context, summary domain.Summary) error {
	var publishedAt any
	if summary.PublishedAt != nil {
		publishedAt = summary.PublishedAt.Format(time.RFC3339)
	}

	payload := map[string]any{
		"document":  summary.Document(),
		"doc_index": summary.ItemID,
		"doc_metadata": map[string]any{
			"item_id":      summary.ItemID,
			"title":        summary.Title,
			"url":          summary.URL,
			"published_at": publishedAt,
			"keywords":     summary.Keywords,
		},
		"uuid": c.corpusID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ingest payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ingest", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", summary.ItemID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ingest %s: %s: %s", summary.ItemID, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}
