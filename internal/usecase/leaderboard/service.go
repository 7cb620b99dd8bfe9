package leaderboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/board"
)

const defaultLimit = 20

// Service aggregates which people keep surfacing in search results.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a leaderboard service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record stores the people surfaced by a query. Failures are logged, not
// returned: appearance tracking must never negate a search response that
// was already computed.
func (s *Service) Record(ctx context.Context, query string, results []domain.SearchResult) {
	if _, err := s.repo.RecordAppearances(ctx, query, results); err != nil {
		s.logger.Warn("Failed to record leaderboard appearances", zap.Error(err))
	}
}

// Individuals returns the top people by distinct-query appearances.
func (s *Service) Individuals(ctx context.Context, limit int) ([]board.Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	entries, err := s.repo.Individuals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("individual leaderboard: %w", err)
	}
	return entries, nil
}

// Colleges returns colleges ranked by member appearances.
func (s *Service) Colleges(ctx context.Context) ([]board.CollegeEntry, error) {
	entries, err := s.repo.Colleges(ctx)
	if err != nil {
		return nil, fmt.Errorf("college leaderboard: %w", err)
	}
	return entries, nil
}

// Stats returns overall leaderboard statistics.
func (s *Service) Stats(ctx context.Context) (board.Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return board.Stats{}, fmt.Errorf("leaderboard stats: %w", err)
	}
	return st, nil
}
