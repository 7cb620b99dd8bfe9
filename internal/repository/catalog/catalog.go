package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/perchlabs/perch/internal/domain"
)

// Catalog is the immutable-after-load population: people plus their
// unit-normalized embedding matrix. Built once at startup; all reads are
// safe for unsynchronized concurrent use.
type Catalog struct {
	people  []domain.Person
	vectors [][]float32
	dim     int
	byID    map[string]int
	options domain.FilterOptions
}

// Load builds a catalog from raw records. Every record must carry an
// embedding of the same dimensionality; embeddings are L2-normalized in
// place. Any malformed record fails the whole load with
// domain.ErrInvalidData.
func Load(records []Record) (*Catalog, error) {
	c := &Catalog{
		people:  make([]domain.Person, 0, len(records)),
		vectors: make([][]float32, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}

	for i, rec := range records {
		if len(rec.Embedding) == 0 {
			return nil, fmt.Errorf("%w: record %d (%s) has no embedding", domain.ErrInvalidData, i, rec.id())
		}
		if c.dim == 0 {
			c.dim = len(rec.Embedding)
		} else if len(rec.Embedding) != c.dim {
			return nil, fmt.Errorf("%w: record %d (%s) has dimensionality %d, want %d",
				domain.ErrInvalidData, i, rec.id(), len(rec.Embedding), c.dim)
		}

		vec, err := normalize(rec.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d (%s): %v", domain.ErrInvalidData, i, rec.id(), err)
		}

		idx := len(c.people)
		c.people = append(c.people, rec.person())
		c.vectors = append(c.vectors, vec)
		c.index(rec.id(), idx)
	}

	c.options = collectFilterOptions(c.people)
	return c, nil
}

// index maps an id to a catalog position under its literal form and, for
// numeric-looking ids, its canonical integer form. Upstream sources are
// inconsistent about string vs integer ids; resolving both forms once here
// keeps lookups a single map hit.
func (c *Catalog) index(id string, idx int) {
	if id == "" {
		return
	}
	c.byID[id] = idx
	if n, err := strconv.Atoi(id); err == nil {
		c.byID[strconv.Itoa(n)] = idx
	}
}

// Len returns the population size.
func (c *Catalog) Len() int { return len(c.people) }

// Dimensions returns the embedding dimensionality D.
func (c *Catalog) Dimensions() int { return c.dim }

// PersonAt returns the person at catalog position i.
func (c *Catalog) PersonAt(i int) domain.Person { return c.people[i] }

// VectorAt returns the unit-normalized embedding at catalog position i.
// Callers must not mutate the returned slice.
func (c *Catalog) VectorAt(i int) []float32 { return c.vectors[i] }

// IndexOf resolves an id (literal or numeric-coerced) to a catalog position.
func (c *Catalog) IndexOf(id string) (int, bool) {
	if idx, ok := c.byID[id]; ok {
		return idx, true
	}
	if n, err := strconv.Atoi(id); err == nil {
		idx, ok := c.byID[strconv.Itoa(n)]
		return idx, ok
	}
	return 0, false
}

// ByID returns the person with the given id.
func (c *Catalog) ByID(id string) (domain.Person, bool) {
	idx, ok := c.IndexOf(id)
	if !ok {
		return domain.Person{}, false
	}
	return c.people[idx], true
}

// FilterOptions returns the distinct attribute values observed across the
// population: colleges ascending, years descending, majors ascending.
func (c *Catalog) FilterOptions() domain.FilterOptions { return c.options }

func collectFilterOptions(people []domain.Person) domain.FilterOptions {
	colleges := make(map[string]struct{})
	years := make(map[int]struct{})
	majors := make(map[string]struct{})

	for i := range people {
		p := &people[i]
		if p.College != nil && *p.College != "" {
			colleges[*p.College] = struct{}{}
		}
		if p.Year != nil && *p.Year != 0 {
			years[*p.Year] = struct{}{}
		}
		if p.Major != nil && *p.Major != "" {
			majors[*p.Major] = struct{}{}
		}
	}

	opts := domain.FilterOptions{
		Colleges: make([]string, 0, len(colleges)),
		Years:    make([]int, 0, len(years)),
		Majors:   make([]string, 0, len(majors)),
	}
	for v := range colleges {
		opts.Colleges = append(opts.Colleges, v)
	}
	for v := range years {
		opts.Years = append(opts.Years, v)
	}
	for v := range majors {
		opts.Majors = append(opts.Majors, v)
	}

	sort.Strings(opts.Colleges)
	sort.Sort(sort.Reverse(sort.IntSlice(opts.Years)))
	sort.Strings(opts.Majors)
	return opts
}

// normalize divides v by its L2 norm. A zero or non-finite norm is an error.
func normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("embedding norm is %v", norm)
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
