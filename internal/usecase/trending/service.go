package trending

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/domain/trend"
)

// DefaultClusterThreshold is the cosine similarity above which two query
// embeddings are merged. A heuristic tuned for the reference embedding
// model — do not assume it transfers to a different encoder.
const DefaultClusterThreshold = 0.75

// Stats summarizes the search log.
type Stats struct {
	TotalSearches   int
	UniqueQueries   int
	SearchesLast24h int
	UniqueUsers     int
}

// Service logs searches and produces trending query lists, semantically
// clustered when embeddings are available.
type Service struct {
	store     LogStore
	embed     Embedder
	threshold float64
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a trending service. embed may be nil; threshold <= 0 falls
// back to the default.
func New(store LogStore, embed Embedder, threshold float64, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultClusterThreshold
	}
	return &Service{
		store:     store,
		embed:     embed,
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// LogSearch appends one search to the analytics log. The query embedding is
// attached when encoding succeeds; an encode failure only costs this
// entry's clustering eligibility, never the search itself.
func (s *Service) LogSearch(ctx context.Context, query, user string, resultCount int) {
	entry := trend.LogEntry{
		Query:       normalizeQuery(query),
		Timestamp:   s.now().Unix(),
		User:        user,
		ResultCount: resultCount,
	}

	if s.embed != nil {
		res, err := s.embed.Embed(ctx, entry.Query)
		if err != nil {
			s.logger.Debug("Logging search without embedding", zap.String("query", entry.Query), zap.Error(err))
		} else {
			entry.Embedding = res.Embedding
		}
	}

	if err := s.store.Append(entry); err != nil {
		s.logger.Warn("Failed to append search log entry", zap.Error(err))
	}
}

// Trending returns the top queries within the period. With clustering on
// and embeddings present, semantically equivalent phrasings are merged;
// otherwise plain frequency ranking is the graceful degradation path.
func (s *Service) Trending(period trend.Period, limit int, useClustering bool) []trend.Cluster {
	cutoff := period.Cutoff(s.now())
	var windowed []trend.LogEntry
	for _, e := range s.store.Entries() {
		if !cutoff.IsZero() && e.Timestamp < cutoff.Unix() {
			continue
		}
		windowed = append(windowed, e)
	}

	if useClustering && anyEmbedded(windowed) {
		return clusterQueries(windowed, s.threshold, limit)
	}
	return frequencyRanked(windowed, limit)
}

// Stats reports overall search log statistics.
func (s *Service) Stats() Stats {
	entries := s.store.Entries()
	dayAgo := s.now().Add(-24 * time.Hour).Unix()

	queries := make(map[string]struct{})
	users := make(map[string]struct{})
	recent := 0
	for _, e := range entries {
		queries[e.Query] = struct{}{}
		if e.User != "" {
			users[e.User] = struct{}{}
		}
		if e.Timestamp >= dayAgo {
			recent++
		}
	}

	return Stats{
		TotalSearches:   len(entries),
		UniqueQueries:   len(queries),
		SearchesLast24h: recent,
		UniqueUsers:     len(users),
	}
}

// Flush forces the log to durable storage.
func (s *Service) Flush() error {
	return s.store.Flush()
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func anyEmbedded(entries []trend.LogEntry) bool {
	for _, e := range entries {
		if len(e.Embedding) > 0 {
			return true
		}
	}
	return false
}
