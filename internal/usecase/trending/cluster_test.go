package trending

import (
	"math"
	"testing"

	"github.com/perchlabs/perch/internal/domain/trend"
)

// unit2 builds a 2D unit vector at the given angle (radians).
func unit2(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

func repeated(query string, n int, vec []float32) []trend.LogEntry {
	entries := make([]trend.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, trend.LogEntry{Query: query, Timestamp: 1000, Embedding: vec})
	}
	return entries
}

func TestClusterQueries_MergesSimilar(t *testing.T) {
	// Three phrasings of the same concept, ~8 degrees apart (cos ≈ 0.99),
	// plus one unrelated orthogonal query.
	var entries []trend.LogEntry
	entries = append(entries, repeated("curly hair", 5, unit2(0))...)
	entries = append(entries, repeated("curly-haired", 3, unit2(0.14))...)
	entries = append(entries, repeated("person with curls", 1, unit2(0.28))...)
	entries = append(entries, repeated("plays soccer", 2, unit2(math.Pi/2))...)

	clusters := clusterQueries(entries, 0.75, 10)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(clusters), clusters)
	}

	top := clusters[0]
	if top.Query != "curly hair" {
		t.Errorf("representative = %q, want most frequent phrasing", top.Query)
	}
	if top.Count != 9 {
		t.Errorf("merged count = %d, want 9", top.Count)
	}
	if len(top.SimilarQueries) != 2 {
		t.Fatalf("similar queries = %v", top.SimilarQueries)
	}

	// Singleton cluster carries no similar queries.
	if clusters[1].Query != "plays soccer" || clusters[1].Count != 2 {
		t.Errorf("second cluster = %+v", clusters[1])
	}
	if len(clusters[1].SimilarQueries) != 0 {
		t.Errorf("singleton cluster has similar queries: %v", clusters[1].SimilarQueries)
	}
}

func TestClusterQueries_AllDissimilar(t *testing.T) {
	var entries []trend.LogEntry
	entries = append(entries, repeated("a", 1, unit2(0))...)
	entries = append(entries, repeated("b", 3, unit2(math.Pi/2))...)
	entries = append(entries, repeated("c", 2, unit2(math.Pi))...)

	clusters := clusterQueries(entries, 0.75, 10)

	if len(clusters) != 3 {
		t.Fatalf("expected 3 singleton clusters, got %d", len(clusters))
	}
	// Sorted by count descending.
	want := []string{"b", "c", "a"}
	for i, q := range want {
		if clusters[i].Query != q {
			t.Errorf("clusters[%d] = %q, want %q", i, clusters[i].Query, q)
		}
	}
}

func TestClusterQueries_DropsUnembedded(t *testing.T) {
	entries := []trend.LogEntry{
		{Query: "embedded", Embedding: unit2(0)},
		{Query: "plain"},
	}

	clusters := clusterQueries(entries, 0.75, 10)

	if len(clusters) != 1 || clusters[0].Query != "embedded" {
		t.Fatalf("expected only the embedded query, got %+v", clusters)
	}
}

func TestClusterQueries_Limit(t *testing.T) {
	var entries []trend.LogEntry
	entries = append(entries, repeated("a", 3, unit2(0))...)
	entries = append(entries, repeated("b", 2, unit2(math.Pi/2))...)
	entries = append(entries, repeated("c", 1, unit2(math.Pi))...)

	clusters := clusterQueries(entries, 0.75, 2)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters with limit, got %d", len(clusters))
	}
	if clusters[0].Query != "a" || clusters[1].Query != "b" {
		t.Errorf("unexpected top clusters: %+v", clusters)
	}
}

func TestClusterQueries_DedupBeforeClustering(t *testing.T) {
	// The same query text repeated never clusters with itself; it aggregates.
	clusters := clusterQueries(repeated("same", 4, unit2(0)), 0.75, 10)

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Count != 4 || len(clusters[0].SimilarQueries) != 0 {
		t.Errorf("aggregation broken: %+v", clusters[0])
	}
}

func TestFrequencyRanked(t *testing.T) {
	var entries []trend.LogEntry
	entries = append(entries, repeated("common", 3, nil)...)
	entries = append(entries, repeated("rare", 1, nil)...)
	entries = append(entries, repeated("middling", 2, nil)...)

	clusters := frequencyRanked(entries, 2)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 entries with limit, got %d", len(clusters))
	}
	if clusters[0].Query != "common" || clusters[0].Count != 3 {
		t.Errorf("top = %+v", clusters[0])
	}
	if clusters[1].Query != "middling" {
		t.Errorf("second = %+v", clusters[1])
	}
}

func TestFrequencyRanked_TieOrder(t *testing.T) {
	entries := []trend.LogEntry{
		{Query: "first"},
		{Query: "second"},
	}

	clusters := frequencyRanked(entries, 10)

	if clusters[0].Query != "first" || clusters[1].Query != "second" {
		t.Errorf("ties must keep first-seen order: %+v", clusters)
	}
}

func TestCosine_LengthMismatch(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("cosine of mismatched vectors = %v, want 0", got)
	}
}
