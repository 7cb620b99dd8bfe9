package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/metrics"
)

// Service orchestrates encode → cache lookup → rank → cache store.
type Service struct {
	catalog Catalog
	cache   Cache
	embed   Embedder
	ranker  ranker
	logger  *zap.Logger
}

// New creates a search service.
func New(catalog Catalog, cache Cache, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		catalog: catalog,
		cache:   cache,
		embed:   embed,
		ranker:  NewRanker(catalog),
		logger:  logger,
	}
}

// SearchByText encodes the query and returns the top-k most similar people.
// A cached result within TTL is returned as-is, with no re-ranking. An
// encoder failure is a hard error — an empty answer would be
// indistinguishable from "nothing matched", which is worse than failing.
func (s *Service) SearchByText(ctx context.Context, query string, k int, f domain.Filters) ([]domain.SearchResult, error) {
	key := s.cache.Key(query, k, f)
	if results, ok := s.cache.Get(key); ok {
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
		return results, nil
	}
	metrics.SearchCacheTotal.WithLabelValues("miss").Inc()

	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncodingFailed, err)
	}

	results, err := s.ranker.Rank(embRes.Embedding, k, f)
	if err != nil {
		return nil, fmt.Errorf("rank query: %w", err)
	}

	s.cache.Put(key, results)
	return results, nil
}

// FindSimilar ranks the catalog against a member's own embedding. The
// encoder is bypassed and the result is not cached — call volume is a
// fraction of text search.
func (s *Service) FindSimilar(_ context.Context, id string, k int) ([]domain.SearchResult, error) {
	results, err := s.ranker.RankAgainstPerson(id, k)
	if err != nil {
		return nil, fmt.Errorf("find similar: %w", err)
	}
	return results, nil
}

// PersonByID resolves a person by literal or numeric-coerced id.
func (s *Service) PersonByID(id string) (domain.Person, error) {
	p, ok := s.catalog.ByID(id)
	if !ok {
		return domain.Person{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// FilterOptions returns the catalog's distinct filterable attribute values.
func (s *Service) FilterOptions() domain.FilterOptions {
	return s.catalog.FilterOptions()
}

// TotalCount returns the population size.
func (s *Service) TotalCount() int {
	return s.catalog.Len()
}

// CacheStats reports result cache state.
func (s *Service) CacheStats() domain.CacheStats {
	return s.cache.Stats()
}
