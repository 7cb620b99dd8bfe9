package trending

import (
	"context"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/trend"
)

// LogStore persists the search log: bulk load/save, sequential append.
type LogStore interface {
	Append(e trend.LogEntry) error
	Entries() []trend.LogEntry
	Flush() error
}

// Embedder vectorizes query text for clustering. Optional: when nil, or
// when an encode fails, entries are logged without an embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
