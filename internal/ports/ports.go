// Package ports declares the driven interfaces the pipeline depends on.
package ports

import (
	"context"
	"errors"
	"time"

	"feedingest/internal/domain"
)

// Fetcher retrieves the raw body of a single URL. Non-2xx responses and
// network failures surface as errors; the pipeline applies its own retry
// wrapper around each call.
type Fetcher interface {
	FetchBody(ctx context.Context, url string) (string, error)
}

// Summarizer turns extracted contents into structured summaries,
// order-preserving with one summary per input.
type Summarizer interface {
	Summarize(ctx context.Context, contents []domain.ExtractedContent) ([]domain.Summary, error)
}

// IndexStore ingests finished summaries into the retrieval backend.
type IndexStore interface {
	Ingest(ctx context.Context, summary domain.Summary) error
}

// ErrNotFound is returned by BlobStore.Read when no blob exists under a key.
var ErrNotFound = errors.New("blob not found")

// BlobStore persists opaque state documents under string keys.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
