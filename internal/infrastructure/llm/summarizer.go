// Package llm implements ports.Summarizer against an OpenAI-compatible chat
// completions endpoint.
package llm

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

// Client talks to a chat completions API and asks for JSON summaries.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Summarizer = (*Client)(nil)

// NewClient builds a summarizer from configuration.
func NewClient(cfg config.SummarizerConfig) *Client {
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: safePrompt(cfg.SystemPrompt),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// summaryPayload is the JSON shape the model is instructed to produce.
type summaryPayload struct {
	Brief     string   `json:"brief_summary"`
	Detailed  string   `json:"detailed_summary"`
	KeyPoints []string `json:"key_points"`
	Keywords  []string `json:"keywords"`
}

// Summarize produces one summary per extracted content, in input order. Any
// model or validation failure aborts the batch; the pipeline treats that as
// an unrecoverable stage error.
func (c *Client) Summarize(ctx context.Context, contents []domain.ExtractedContent) ([]domain.Summary, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("summarizer client misconfigured")
	}

	summaries := make([]domain.Summary, 0, len(contents))
	for _, content := range contents {
		summary, err := c.summarizeOne(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", content.ItemID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (c *Client) summarizeOne(ctx context.Context, content domain.ExtractedContent) (domain.Summary, error) {
	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": buildUserPrompt(content)},
		},
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Summary{}, fmt.Errorf("model error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return domain.Summary{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return domain.Summary{}, fmt.Errorf("model returned no choices")
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return domain.Summary{}, fmt.Errorf("decode summary payload: %w", err)
	}

	summary := domain.Summary{
		ItemID:    content.ItemID,
		Title:     content.Title,
		URL:       content.URL,
		Brief:     strings.TrimSpace(payload.Brief),
		Detailed:  strings.TrimSpace(payload.Detailed),
		KeyPoints: payload.KeyPoints,
		Keywords:  domain.NormalizeKeywords(payload.Keywords),
	}
	if err := summary.Validate(); err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func buildUserPrompt(content domain.ExtractedContent) string {
	var b strings.Builder
	b.WriteString("Summarize the following article as JSON with keys ")
	b.WriteString(`"brief_summary", "detailed_summary", "key_points", "keywords".`)
	b.WriteString("\n\nTitle: " + content.Title)
	b.WriteString("\nURL: " + content.URL)
	b.WriteString("\n\n" + content.Text)
	return b.String()
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You summarize technical blog articles into structured JSON."
	}
	return prompt
}
