// Package usecase sequences the ingestion pipeline: discover items from the
// feed, diff against the seen-set, fetch and extract new items concurrently,
// summarize, ingest, and record the run.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feedingest/internal/discovery"
	"feedingest/internal/domain"
	"feedingest/internal/history"
	"feedingest/internal/ports"
	"feedingest/internal/retry"
	"feedingest/internal/scrape"
)

// Stage identifies a pipeline phase for error reporting.
type Stage string

const (
	StageDiscover  Stage = "discover"
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StageIngest    Stage = "ingest"
	StageRecord    Stage = "record"
)

// StageError reports which stage failed and how many items reached each
// prior stage. A failed run never records partial progress as seen, so the
// next run retries the same items.
type StageError struct {
	Stage    Stage
	Metadata domain.RunMetadata
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (discovered=%d new=%d fetched=%d summarized=%d): %v",
		e.Stage,
		e.Metadata.DiscoveredCount,
		e.Metadata.NewCount,
		e.Metadata.FetchedCount,
		e.Metadata.SummarizedCount,
		e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result bundles everything one successful run produced.
type Result struct {
	Discovered []domain.DiscoveredItem
	NewItems   []domain.DiscoveredItem
	Extracted  []domain.ExtractedContent
	Summaries  []domain.Summary
	Metadata   domain.RunMetadata
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	FeedURL    string
	Source     string
	Fetcher    ports.Fetcher
	Summarizer ports.Summarizer
	Index      ports.IndexStore
	History    *history.Store
	Retry      retry.Policy
	Logger     *slog.Logger
}

// Pipeline implements the ingestion workflow.
type Pipeline struct {
	feedURL    string
	source     string
	fetcher    ports.Fetcher
	summarizer ports.Summarizer
	index      ports.IndexStore
	history    *history.Store
	retry      retry.Policy
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		feedURL:    deps.FeedURL,
		source:     deps.Source,
		fetcher:    deps.Fetcher,
		summarizer: deps.Summarizer,
		index:      deps.Index,
		history:    deps.History,
		retry:      deps.Retry,
		logger:     logger,
	}
}

// Run executes one pipeline pass. State is read once up front and written
// once at the end; summarizer and index failures abort the run without
// touching persisted state, giving at-least-once ingestion across runs.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	log := p.logger.With("run_id", uuid.NewString())
	meta := domain.RunMetadata{}

	state, err := p.history.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load state: %w", err)
	}

	rawFeed, err := retry.DoValue(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.fetcher.FetchBody(ctx, p.feedURL)
	})
	if err != nil {
		return Result{}, &StageError{Stage: StageDiscover, Metadata: meta, Err: err}
	}

	discovered := discovery.Parse(rawFeed, p.source)
	meta.DiscoveredCount = len(discovered)
	log.Info("feed parsed", "discovered", len(discovered))

	newItems := discovery.Diff(state.Seen(), discovered)
	meta.NewCount = len(newItems)
	// Feeds list newest entries first, so the head of the new-item list holds
	// the most recent titles.
	meta.LastTitles = domain.BoundTitles(itemTitles(newItems))
	log.Info("diff complete", "new", len(newItems), "seen", len(state.SeenIDs))

	extracted := fetchAll(ctx, newItems, p.fetcher.FetchBody, scrape.Extract, p.retry, log)
	meta.FetchedCount = len(extracted)

	var summaries []domain.Summary
	if len(extracted) > 0 {
		summaries, err = p.summarizer.Summarize(ctx, extracted)
		if err != nil {
			return Result{}, &StageError{Stage: StageSummarize, Metadata: meta, Err: err}
		}
		if len(summaries) != len(extracted) {
			err = fmt.Errorf("summarizer returned %d summaries for %d contents", len(summaries), len(extracted))
			return Result{}, &StageError{Stage: StageSummarize, Metadata: meta, Err: err}
		}
	}
	meta.SummarizedCount = len(summaries)
	backfillPublished(summaries, newItems)

	// Ingestion is strictly sequential in summary order so the backend sees
	// deterministic write ordering.
	for i := range summaries {
		summary := summaries[i]
		err := retry.Do(ctx, p.retry, func(ctx context.Context) error {
			return p.index.Ingest(ctx, summary)
		})
		if err != nil {
			return Result{}, &StageError{Stage: StageIngest, Metadata: meta, Err: err}
		}
	}
	log.Info("summaries ingested", "count", len(summaries))

	ingestedIDs := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ingestedIDs = append(ingestedIDs, s.ItemID)
	}
	if _, err := p.history.RecordRun(ctx, state, ingestedIDs, meta, time.Now()); err != nil {
		return Result{}, &StageError{Stage: StageRecord, Metadata: meta, Err: err}
	}

	return Result{
		Discovered: discovered,
		NewItems:   newItems,
		Extracted:  extracted,
		Summaries:  summaries,
		Metadata:   meta,
	}, nil
}

func itemTitles(items []domain.DiscoveredItem) []string {
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	return titles
}

// backfillPublished copies publication timestamps the summarizer does not
// know about from the discovered items.
func backfillPublished(summaries []domain.Summary, items []domain.DiscoveredItem) {
	byID := make(map[string]*time.Time, len(items))
	for _, item := range items {
		byID[item.ID] = item.PublishedAt
	}
	for i := range summaries {
		if summaries[i].PublishedAt == nil {
			summaries[i].PublishedAt = byID[summaries[i].ItemID]
		}
	}
}
