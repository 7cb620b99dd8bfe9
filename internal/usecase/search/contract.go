package search

import (
	"context"

	"github.com/perchlabs/perch/internal/domain"
)

// Catalog is the read-only population contract the ranker scans.
type Catalog interface {
	Len() int
	Dimensions() int
	PersonAt(i int) domain.Person
	VectorAt(i int) []float32
	IndexOf(id string) (int, bool)
	ByID(id string) (domain.Person, bool)
	FilterOptions() domain.FilterOptions
}

// Cache stores ranked results keyed by the canonical query tuple.
type Cache interface {
	Key(query string, k int, f domain.Filters) string
	Get(key string) ([]domain.SearchResult, bool)
	Put(key string, results []domain.SearchResult)
	Stats() domain.CacheStats
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ranker is the selection engine seam; satisfied by *Ranker.
type ranker interface {
	Rank(query []float32, k int, f domain.Filters) ([]domain.SearchResult, error)
	RankAgainstPerson(id string, k int) ([]domain.SearchResult, error)
}
