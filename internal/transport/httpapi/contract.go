package httpapi

import (
	"context"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/board"
	"github.com/perchlabs/perch/internal/domain/trend"
	"github.com/perchlabs/perch/internal/usecase/health"
	"github.com/perchlabs/perch/internal/usecase/moderation"
	"github.com/perchlabs/perch/internal/usecase/trending"
)

// SearchService answers semantic queries over the person catalog.
type SearchService interface {
	SearchByText(ctx context.Context, query string, k int, f domain.Filters) ([]domain.SearchResult, error)
	FindSimilar(ctx context.Context, id string, k int) ([]domain.SearchResult, error)
	PersonByID(id string) (domain.Person, error)
	FilterOptions() domain.FilterOptions
	TotalCount() int
	CacheStats() domain.CacheStats
}

// TrendingService records searches and reports popular queries.
type TrendingService interface {
	LogSearch(ctx context.Context, query, user string, resultCount int)
	Trending(period trend.Period, limit int, useClustering bool) []trend.Cluster
	Stats() trending.Stats
}

// LeaderboardService tracks who shows up in search results.
type LeaderboardService interface {
	Record(ctx context.Context, query string, results []domain.SearchResult)
	Individuals(ctx context.Context, limit int) ([]board.Entry, error)
	Colleges(ctx context.Context) ([]board.CollegeEntry, error)
	Stats(ctx context.Context) (board.Stats, error)
}

// Moderator screens queries before they reach the search pipeline.
type Moderator interface {
	Check(ctx context.Context, query string) moderation.Decision
}

// HealthService reports component status.
type HealthService interface {
	Check(ctx context.Context) health.Report
}
