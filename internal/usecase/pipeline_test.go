package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedingest/internal/domain"
	"feedingest/internal/history"
	"feedingest/internal/infrastructure/storage"
	"feedingest/internal/retry"
	"feedingest/internal/scrape"
)

const testFeedURL = "https://example.com/feed"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
}

func atomFeed(urls ...string) string {
	var b []byte
	b = append(b, `<feed xmlns="http://www.w3.org/2005/Atom">`...)
	for i, url := range urls {
		b = append(b, fmt.Sprintf(`<entry><title>Post %d</title><link href=%q/></entry>`, i+1, url)...)
	}
	b = append(b, `</feed>`...)
	return string(b)
}

func articleBody(n int) string {
	return fmt.Sprintf(`<html><body><article><h1>Post %d</h1><p>Body of post %d.</p></article></body></html>`, n, n)
}

type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	fails  map[string]bool
	calls  map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: map[string]string{},
		fails:  map[string]bool{},
		calls:  map[string]int{},
	}
}

func (f *stubFetcher) FetchBody(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if f.fails[url] {
		return "", errors.New("connection refused")
	}
	body, ok := f.bodies[url]
	if !ok {
		return "", fmt.Errorf("no body for %s", url)
	}
	return body, nil
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *stubFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type stubSummarizer struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *stubSummarizer) Summarize(_ context.Context, contents []domain.ExtractedContent) ([]domain.Summary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fail {
		return nil, errors.New("model unavailable")
	}

	out := make([]domain.Summary, 0, len(contents))
	for _, c := range contents {
		out = append(out, domain.Summary{
			ItemID:   c.ItemID,
			Title:    c.Title,
			URL:      c.URL,
			Brief:    "A brief overview of " + c.Title + ".",
			Detailed: "A detailed technical walkthrough of " + c.Title + " covering all the material in depth.",
		})
	}
	return out, nil
}

type stubIndex struct {
	mu       sync.Mutex
	ingested []domain.Summary
	fail     bool
}

func (s *stubIndex) Ingest(_ context.Context, summary domain.Summary) error {
	if s.fail {
		return errors.New("index unavailable")
	}
	s.mu.Lock()
	s.ingested = append(s.ingested, summary)
	s.mu.Unlock()
	return nil
}

type testEnv struct {
	pipeline   *Pipeline
	fetcher    *stubFetcher
	summarizer *stubSummarizer
	index      *stubIndex
	store      *history.Store
	blobs      *storage.FileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	blobs := storage.NewFileStore(afero.NewMemMapFs(), "state")
	store := history.NewStore(blobs, "state.json", 10, testLogger())
	fetcher := newStubFetcher()
	summarizer := &stubSummarizer{}
	index := &stubIndex{}

	pipeline := NewPipeline(PipelineDeps{
		FeedURL:    testFeedURL,
		Source:     "test_blog",
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Index:      index,
		History:    store,
		Retry:      fastRetry(),
		Logger:     testLogger(),
	})

	return &testEnv{
		pipeline:   pipeline,
		fetcher:    fetcher,
		summarizer: summarizer,
		index:      index,
		store:      store,
		blobs:      blobs,
	}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first := "https://example.com/posts/1"
	second := "https://example.com/posts/2"
	env.fetcher.bodies[testFeedURL] = atomFeed(first, second)
	env.fetcher.bodies[first] = articleBody(1)
	env.fetcher.bodies[second] = articleBody(2)

	result, err := env.pipeline.Run(ctx)
	require.NoError(t, err)

	want := domain.RunMetadata{
		DiscoveredCount: 2,
		NewCount:        2,
		FetchedCount:    2,
		SummarizedCount: 2,
		LastTitles:      []string{"Post 1", "Post 2"},
	}
	assert.Equal(t, want, result.Metadata)

	require.Len(t, env.index.ingested, 2)
	assert.Equal(t, domain.ItemID(first), env.index.ingested[0].ItemID, "ingestion follows feed order")
	assert.Equal(t, domain.ItemID(second), env.index.ingested[1].ItemID)

	state, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.SeenIDs, 2)
	require.NotNil(t, state.LastRun)
	assert.Equal(t, want, state.LastRun.Metadata)
	assert.Len(t, state.History, 1)
}

func TestRunSecondPassIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first := "https://example.com/posts/1"
	env.fetcher.bodies[testFeedURL] = atomFeed(first)
	env.fetcher.bodies[first] = articleBody(1)

	_, err := env.pipeline.Run(ctx)
	require.NoError(t, err)
	require.Len(t, env.index.ingested, 1)
	summarizeCalls := env.summarizer.calls

	result, err := env.pipeline.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metadata.DiscoveredCount)
	assert.Equal(t, 0, result.Metadata.NewCount)
	assert.Equal(t, 0, result.Metadata.FetchedCount)
	assert.Len(t, env.index.ingested, 1, "nothing is re-ingested when the feed is unchanged")
	assert.Equal(t, summarizeCalls, env.summarizer.calls, "an all-seen feed never reaches the summarizer")

	state, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.SeenIDs, 1)
	assert.Len(t, state.History, 2, "every run is recorded, even empty ones")
}

func TestRunFetchFailureSkipsOnlyThatItem(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first := "https://example.com/posts/1"
	second := "https://example.com/posts/2"
	third := "https://example.com/posts/3"
	env.fetcher.bodies[testFeedURL] = atomFeed(first, second, third)
	env.fetcher.bodies[first] = articleBody(1)
	env.fetcher.fails[second] = true
	env.fetcher.bodies[third] = articleBody(3)

	result, err := env.pipeline.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Metadata.NewCount)
	assert.Equal(t, 2, result.Metadata.FetchedCount)
	require.Len(t, result.Extracted, 2)
	assert.Equal(t, domain.ItemID(first), result.Extracted[0].ItemID, "survivors keep feed order")
	assert.Equal(t, domain.ItemID(third), result.Extracted[1].ItemID)
	assert.Equal(t, 2, env.fetcher.callCount(second), "the failed fetch uses its full retry budget")

	state, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, state.SeenIDs, 2, "the failed item stays unseen and is retried next run")
	assert.NotContains(t, state.SeenIDs, domain.ItemID(second))
}

func TestRunInlineContentSkipsFetch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	feed := `<feed xmlns="http://www.w3.org/2005/Atom">
<entry><title>Inline Post</title><link href="https://example.com/posts/inline"/>
<content type="html">&lt;article&gt;&lt;p&gt;Inline body.&lt;/p&gt;&lt;/article&gt;</content></entry>
</feed>`
	env.fetcher.bodies[testFeedURL] = feed

	result, err := env.pipeline.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metadata.FetchedCount)
	assert.Equal(t, 1, env.fetcher.totalCalls(), "only the feed itself goes over the network")
	require.Len(t, result.Extracted, 1)
	assert.Contains(t, result.Extracted[0].Text, "Inline body.")
}

func TestRunSummarizeFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first := "https://example.com/posts/1"
	env.fetcher.bodies[testFeedURL] = atomFeed(first)
	env.fetcher.bodies[first] = articleBody(1)
	env.summarizer.fail = true

	_, err := env.pipeline.Run(ctx)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSummarize, stageErr.Stage)
	assert.Equal(t, 1, stageErr.Metadata.FetchedCount)

	state, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.SeenIDs)
	assert.Nil(t, state.LastRun)
}

func TestRunIngestFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	first := "https://example.com/posts/1"
	env.fetcher.bodies[testFeedURL] = atomFeed(first)
	env.fetcher.bodies[first] = articleBody(1)
	env.index.fail = true

	_, err := env.pipeline.Run(ctx)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageIngest, stageErr.Stage)

	state, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.SeenIDs, "a failed ingest records nothing as seen")
}

func TestRunFeedFetchFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.fetcher.fails[testFeedURL] = true

	_, err := env.pipeline.Run(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDiscover, stageErr.Stage)
}

func TestRunCorruptStateAbortsEarly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.NoError(t, env.blobs.Write(context.Background(), "state.json", []byte("{broken")))

	_, err := env.pipeline.Run(context.Background())
	var corrupt *history.CorruptStateError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 0, env.fetcher.totalCalls(), "nothing is fetched when state cannot be read")
}

func TestFetchAllPreservesOrderAcrossCompletionTimes(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://example.com/posts/slow",
		"https://example.com/posts/fast",
		"https://example.com/posts/medium",
	}
	delays := map[string]time.Duration{
		urls[0]: 30 * time.Millisecond,
		urls[1]: time.Millisecond,
		urls[2]: 10 * time.Millisecond,
	}

	items := make([]domain.DiscoveredItem, len(urls))
	for i, url := range urls {
		items[i] = domain.DiscoveredItem{ID: domain.ItemID(url), URL: url, Title: url}
	}

	fetch := func(_ context.Context, url string) (string, error) {
		time.Sleep(delays[url])
		return articleBody(1), nil
	}

	got := fetchAll(context.Background(), items, fetch, scrape.Extract, fastRetry(), testLogger())
	require.Len(t, got, 3)
	for i, url := range urls {
		assert.Equal(t, domain.ItemID(url), got[i].ItemID)
	}
}
