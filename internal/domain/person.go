package domain

// Person is one member of the searchable population. Optional attributes
// are pointers: nil means the attribute is unknown, not empty.
type Person struct {
	ID        string
	FirstName string
	LastName  string
	College   *string
	Year      *int
	Major     *string
	Image     *string
	Email     *string
}

// SearchResult is a ranked catalog hit. Score is the cosine similarity
// between the query vector and the person's embedding, in [-1, 1].
type SearchResult struct {
	Person
	Score float64
}

// Filters restricts ranking to people matching every supplied constraint.
// Zero values mean "no constraint on this attribute".
type Filters struct {
	College string
	Year    int
	Major   string
}

// IsZero reports whether no constraint is set.
func (f Filters) IsZero() bool {
	return f.College == "" && f.Year == 0 && f.Major == ""
}

// Match reports whether p satisfies every non-empty constraint.
// A person with an unset attribute never matches a constraint on it.
func (f Filters) Match(p *Person) bool {
	if f.College != "" && (p.College == nil || *p.College != f.College) {
		return false
	}
	if f.Year != 0 && (p.Year == nil || *p.Year != f.Year) {
		return false
	}
	if f.Major != "" && (p.Major == nil || *p.Major != f.Major) {
		return false
	}
	return true
}

// FilterOptions is the set of distinct attribute values observed across the
// catalog, for client-facing filter discovery.
type FilterOptions struct {
	Colleges []string // ascending
	Years    []int    // descending
	Majors   []string // ascending
}

// CacheStats describes the state of the search result cache.
type CacheStats struct {
	Size       int
	MaxSize    int
	TTLSeconds int
}
