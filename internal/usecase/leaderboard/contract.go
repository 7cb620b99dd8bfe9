package leaderboard

import (
	"context"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/board"
)

// Repository is the persistence contract for appearance tracking.
type Repository interface {
	RecordAppearances(ctx context.Context, query string, results []domain.SearchResult) (int, error)
	Individuals(ctx context.Context, limit int) ([]board.Entry, error)
	Colleges(ctx context.Context) ([]board.CollegeEntry, error)
	Stats(ctx context.Context) (board.Stats, error)
}
