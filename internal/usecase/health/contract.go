package health

import "context"

// DBPinger checks leaderboard database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogCounter reports the loaded population size.
type CatalogCounter interface {
	Len() int
}
