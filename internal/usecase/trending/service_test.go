package trending

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/trend"
)

// --- Mocks ---

type mockLogStore struct {
	entries   []trend.LogEntry
	appendErr error
	flushed   int
}

func (m *mockLogStore) Append(e trend.LogEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockLogStore) Entries() []trend.LogEntry {
	return m.entries
}

func (m *mockLogStore) Flush() error {
	m.flushed++
	return nil
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

func newTestService(store *mockLogStore, embed Embedder) *Service {
	return New(store, embed, 0, zap.NewNop())
}

// --- Tests ---

func TestLogSearch_NormalizesAndEmbeds(t *testing.T) {
	store := &mockLogStore{}
	svc := newTestService(store, &mockEmbedder{vec: []float32{1, 0}})

	svc.LogSearch(context.Background(), "  Curly HAIR ", "abc12", 7)

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	e := store.entries[0]
	if e.Query != "curly hair" {
		t.Errorf("query = %q, want normalized form", e.Query)
	}
	if e.User != "abc12" || e.ResultCount != 7 {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Embedding) != 2 {
		t.Errorf("embedding not attached: %v", e.Embedding)
	}
}

func TestLogSearch_EmbedFailureStillLogs(t *testing.T) {
	store := &mockLogStore{}
	svc := newTestService(store, &mockEmbedder{err: errors.New("api down")})

	svc.LogSearch(context.Background(), "query", "u", 0)

	if len(store.entries) != 1 {
		t.Fatalf("entry dropped on embed failure")
	}
	if store.entries[0].Embedding != nil {
		t.Error("expected no embedding on encode failure")
	}
}

func TestLogSearch_AppendFailureTolerated(t *testing.T) {
	store := &mockLogStore{appendErr: errors.New("disk full")}
	svc := newTestService(store, nil)

	// Must not panic; the search path never sees this error.
	svc.LogSearch(context.Background(), "query", "u", 0)
}

func TestTrending_WindowFiltering(t *testing.T) {
	now := time.Unix(100_000_000, 0)
	store := &mockLogStore{entries: []trend.LogEntry{
		{Query: "old", Timestamp: now.Add(-40 * 24 * time.Hour).Unix()},
		{Query: "recent", Timestamp: now.Add(-time.Hour).Unix()},
		{Query: "recent", Timestamp: now.Add(-2 * time.Hour).Unix()},
		{Query: "this week", Timestamp: now.Add(-3 * 24 * time.Hour).Unix()},
	}}
	svc := newTestService(store, nil)
	svc.now = func() time.Time { return now }

	day := svc.Trending(trend.PeriodDay, 10, false)
	if len(day) != 1 || day[0].Query != "recent" || day[0].Count != 2 {
		t.Errorf("day window: %+v", day)
	}

	week := svc.Trending(trend.PeriodWeek, 10, false)
	if len(week) != 2 {
		t.Errorf("week window: %+v", week)
	}

	all := svc.Trending(trend.PeriodAll, 10, false)
	if len(all) != 3 {
		t.Errorf("all window: %+v", all)
	}
}

func TestTrending_FallsBackWithoutEmbeddings(t *testing.T) {
	store := &mockLogStore{entries: []trend.LogEntry{
		{Query: "a", Timestamp: time.Now().Unix()},
		{Query: "a", Timestamp: time.Now().Unix()},
		{Query: "b", Timestamp: time.Now().Unix()},
	}}
	svc := newTestService(store, nil)

	// Clustering requested but no entry carries an embedding.
	clusters := svc.Trending(trend.PeriodAll, 10, true)

	if len(clusters) != 2 || clusters[0].Query != "a" || clusters[0].Count != 2 {
		t.Errorf("fallback ranking: %+v", clusters)
	}
}

func TestTrending_ClustersWhenEmbedded(t *testing.T) {
	now := time.Now().Unix()
	store := &mockLogStore{entries: []trend.LogEntry{
		{Query: "tall", Timestamp: now, Embedding: []float32{1, 0}},
		{Query: "very tall", Timestamp: now, Embedding: []float32{0.99, 0.14}},
		{Query: "soccer", Timestamp: now, Embedding: []float32{0, 1}},
	}}
	svc := newTestService(store, nil)

	clusters := svc.Trending(trend.PeriodAll, 10, true)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %+v", clusters)
	}
	if clusters[0].Count != 2 || len(clusters[0].SimilarQueries) != 1 {
		t.Errorf("merged cluster: %+v", clusters[0])
	}
}

func TestStats(t *testing.T) {
	now := time.Unix(100_000_000, 0)
	store := &mockLogStore{entries: []trend.LogEntry{
		{Query: "a", User: "u1", Timestamp: now.Add(-time.Hour).Unix()},
		{Query: "a", User: "u2", Timestamp: now.Add(-2 * time.Hour).Unix()},
		{Query: "b", User: "u1", Timestamp: now.Add(-48 * time.Hour).Unix()},
		{Query: "c", User: "", Timestamp: now.Add(-49 * time.Hour).Unix()},
	}}
	svc := newTestService(store, nil)
	svc.now = func() time.Time { return now }

	stats := svc.Stats()

	if stats.TotalSearches != 4 {
		t.Errorf("TotalSearches = %d", stats.TotalSearches)
	}
	if stats.UniqueQueries != 3 {
		t.Errorf("UniqueQueries = %d", stats.UniqueQueries)
	}
	if stats.SearchesLast24h != 2 {
		t.Errorf("SearchesLast24h = %d", stats.SearchesLast24h)
	}
	if stats.UniqueUsers != 2 {
		t.Errorf("UniqueUsers = %d", stats.UniqueUsers)
	}
}

func TestFlush(t *testing.T) {
	store := &mockLogStore{}
	svc := newTestService(store, nil)

	if err := svc.Flush(); err != nil {
		t.Fatal(err)
	}
	if store.flushed != 1 {
		t.Errorf("flushed = %d, want 1", store.flushed)
	}
}
