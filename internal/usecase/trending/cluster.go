package trending

import (
	"sort"

	"github.com/perchlabs/perch/internal/domain/trend"
)

// aggregate is one distinct query with its occurrence count, first-seen
// order, and a representative embedding (nil when no entry carried one).
type aggregate struct {
	query string
	count int
	order int
	vec   []float32
}

// aggregateQueries collapses the window to one row per distinct query text,
// counting occurrences and keeping the first embedding seen.
func aggregateQueries(entries []trend.LogEntry) []aggregate {
	byQuery := make(map[string]int)
	var aggs []aggregate

	for _, e := range entries {
		idx, ok := byQuery[e.Query]
		if !ok {
			idx = len(aggs)
			byQuery[e.Query] = idx
			aggs = append(aggs, aggregate{query: e.Query, order: idx})
		}
		aggs[idx].count++
		if aggs[idx].vec == nil && len(e.Embedding) > 0 {
			aggs[idx].vec = e.Embedding
		}
	}
	return aggs
}

// sortByCount orders aggregates by descending count, ties by first-seen
// order. The most-searched phrasing becomes its cluster's representative.
func sortByCount(aggs []aggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		if aggs[i].count != aggs[j].count {
			return aggs[i].count > aggs[j].count
		}
		return aggs[i].order < aggs[j].order
	})
}

// clusterQueries greedily merges distinct queries whose embeddings are
// within threshold of a cluster representative. Single pass, O(M²) in the
// number of distinct queries — M is bounded by the window, not by total
// search volume. Queries without embeddings cannot participate and are
// dropped from clustered output.
func clusterQueries(entries []trend.LogEntry, threshold float64, limit int) []trend.Cluster {
	aggs := aggregateQueries(entries)

	embedded := aggs[:0]
	for _, a := range aggs {
		if a.vec != nil {
			embedded = append(embedded, a)
		}
	}
	sortByCount(embedded)

	assigned := make([]bool, len(embedded))
	var clusters []trend.Cluster

	for i := range embedded {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := trend.Cluster{
			Query: embedded[i].query,
			Count: embedded[i].count,
		}

		for j := i + 1; j < len(embedded); j++ {
			if assigned[j] {
				continue
			}
			if cosine(embedded[i].vec, embedded[j].vec) >= threshold {
				assigned[j] = true
				cluster.Count += embedded[j].count
				cluster.SimilarQueries = append(cluster.SimilarQueries, embedded[j].query)
			}
		}

		clusters = append(clusters, cluster)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	if limit > 0 && len(clusters) > limit {
		clusters = clusters[:limit]
	}
	return clusters
}

// frequencyRanked is the no-clustering path: distinct queries ranked by
// occurrence count. Entries without embeddings count here.
func frequencyRanked(entries []trend.LogEntry, limit int) []trend.Cluster {
	aggs := aggregateQueries(entries)
	sortByCount(aggs)

	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}

	clusters := make([]trend.Cluster, 0, len(aggs))
	for _, a := range aggs {
		clusters = append(clusters, trend.Cluster{Query: a.query, Count: a.count})
	}
	return clusters
}

// cosine is the dot product of two unit vectors. Embeddings are normalized
// at encoding time; mismatched lengths score zero rather than panic.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
