package search

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/metrics"
)

// sentinel marks a filter-excluded entry; it can never reach the top-k.
var sentinel = math.Inf(-1)

// Ranker scores a query vector against every catalog embedding. This is a
// deliberate full linear scan, O(N·D) per query. The population is a few
// thousand people, so exact search stays cheap and never goes stale the
// way an approximate index would.
type Ranker struct {
	catalog Catalog
}

// NewRanker creates a ranker over the catalog.
func NewRanker(catalog Catalog) *Ranker {
	return &Ranker{catalog: catalog}
}

// Rank returns up to k results ordered by descending cosine similarity,
// ties broken by original catalog order. The query vector is normalized
// here; it is not assumed to be unit length.
func (r *Ranker) Rank(query []float32, k int, f domain.Filters) ([]domain.SearchResult, error) {
	unit, err := normalizeQuery(query, r.catalog.Dimensions())
	if err != nil {
		return nil, err
	}
	return r.top(unit, k, f, -1), nil
}

// RankAgainstPerson ranks the catalog against a member's own embedding,
// excluding that member from the results.
func (r *Ranker) RankAgainstPerson(id string, k int) ([]domain.SearchResult, error) {
	idx, ok := r.catalog.IndexOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return r.top(r.catalog.VectorAt(idx), k, domain.Filters{}, idx), nil
}

// top runs the scan and selection. exclude is a catalog position to skip,
// or -1.
func (r *Ranker) top(unit []float32, k int, f domain.Filters, exclude int) []domain.SearchResult {
	start := time.Now()

	n := r.catalog.Len()
	scores := make([]float64, n)
	passing := make([]int, 0, n)
	filtered := !f.IsZero()

	for i := 0; i < n; i++ {
		if i == exclude {
			scores[i] = sentinel
			continue
		}
		if filtered {
			p := r.catalog.PersonAt(i)
			if !f.Match(&p) {
				scores[i] = sentinel
				continue
			}
		}
		scores[i] = dot(r.catalog.VectorAt(i), unit)
		passing = append(passing, i)
	}

	// Stable sort on catalog position keeps ties in original order.
	sort.SliceStable(passing, func(a, b int) bool {
		return scores[passing[a]] > scores[passing[b]]
	})

	if k < 0 {
		k = 0
	}
	if len(passing) > k {
		passing = passing[:k]
	}

	results := make([]domain.SearchResult, 0, len(passing))
	for _, i := range passing {
		results = append(results, domain.SearchResult{
			Person: r.catalog.PersonAt(i),
			Score:  scores[i],
		})
	}

	metrics.SearchRankDuration.Observe(time.Since(start).Seconds())
	return results
}

// normalizeQuery validates dimensionality and finiteness, then scales the
// vector to unit norm. Zero-norm vectors are rejected.
func normalizeQuery(v []float32, dim int) ([]float32, error) {
	if len(v) != dim {
		return nil, fmt.Errorf("%w: dimensionality %d, want %d", domain.ErrInvalidVector, len(v), dim)
	}

	var sum float64
	for _, x := range v {
		fx := float64(x)
		if math.IsNaN(fx) || math.IsInf(fx, 0) {
			return nil, fmt.Errorf("%w: non-finite component", domain.ErrInvalidVector)
		}
		sum += fx * fx
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero norm", domain.ErrInvalidVector)
	}

	unit := make([]float32, len(v))
	for i, x := range v {
		unit[i] = float32(float64(x) / norm)
	}
	return unit, nil
}

// dot computes the dot product in float64 to keep the accumulated error
// well under the scoring tolerance.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
