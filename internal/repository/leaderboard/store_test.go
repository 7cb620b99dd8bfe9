package leaderboard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/perchlabs/perch/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "leaderboard.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func result(id, first string, college *string) domain.SearchResult {
	return domain.SearchResult{
		Person: domain.Person{ID: id, FirstName: first, LastName: "Test", College: college},
		Score:  0.9,
	}
}

func TestRecordAppearances_DedupePerQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	results := []domain.SearchResult{
		result("p1", "Alice", strPtr("Pierson")),
		result("p2", "Bob", strPtr("Trumbull")),
	}

	n, err := s.RecordAppearances(ctx, "curly hair", results)
	if err != nil {
		t.Fatalf("RecordAppearances failed: %v", err)
	}
	if n != 2 {
		t.Errorf("recorded = %d, want 2", n)
	}

	// Same query again: no new rows.
	n, err = s.RecordAppearances(ctx, "curly hair", results)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("repeat query recorded %d, want 0", n)
	}

	// Query canonicalization also dedupes.
	n, err = s.RecordAppearances(ctx, "  CURLY Hair ", results)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("canonicalized repeat recorded %d, want 0", n)
	}

	// A different query counts again.
	n, err = s.RecordAppearances(ctx, "tall", results[:1])
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("new query recorded %d, want 1", n)
	}
}

func TestRecordAppearances_EmptyAndAnonymous(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if n, err := s.RecordAppearances(ctx, "q", nil); err != nil || n != 0 {
		t.Errorf("empty results: n=%d err=%v", n, err)
	}

	// Results without ids are skipped, not an error.
	n, err := s.RecordAppearances(ctx, "q", []domain.SearchResult{{Person: domain.Person{FirstName: "NoID"}}})
	if err != nil || n != 0 {
		t.Errorf("id-less result: n=%d err=%v", n, err)
	}
}

func TestIndividuals_Ordering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice := result("p1", "Alice", strPtr("Pierson"))
	bob := result("p2", "Bob", strPtr("Trumbull"))
	carol := result("p3", "Carol", nil)

	mustRecord(t, s, "q1", alice, bob)
	mustRecord(t, s, "q2", alice, carol)
	mustRecord(t, s, "q3", alice)

	entries, err := s.Individuals(ctx, 10)
	if err != nil {
		t.Fatalf("Individuals failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].ID != "p1" || entries[0].AppearanceCount != 3 {
		t.Errorf("top entry = %+v", entries[0])
	}
	// Tie between Bob and Carol broken by first name ascending.
	if entries[1].FirstName != "Bob" || entries[2].FirstName != "Carol" {
		t.Errorf("tie order: %q then %q", entries[1].FirstName, entries[2].FirstName)
	}

	// Limit applies.
	entries, err = s.Individuals(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("limit ignored: %d entries", len(entries))
	}
}

func TestColleges_Aggregation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p1 := result("p1", "Alice", strPtr("Pierson"))
	p2 := result("p2", "Bob", strPtr("Pierson"))
	p3 := result("p3", "Carol", strPtr("Trumbull"))
	p4 := result("p4", "Dan", nil) // no college, excluded

	mustRecord(t, s, "q1", p1, p2, p3, p4)
	mustRecord(t, s, "q2", p1)

	colleges, err := s.Colleges(ctx)
	if err != nil {
		t.Fatalf("Colleges failed: %v", err)
	}
	if len(colleges) != 2 {
		t.Fatalf("got %d colleges: %+v", len(colleges), colleges)
	}

	pierson := colleges[0]
	if pierson.College != "Pierson" || pierson.TotalAppearances != 3 || pierson.UniqueMembers != 2 {
		t.Errorf("pierson = %+v", pierson)
	}
	if colleges[1].College != "Trumbull" || colleges[1].UniqueMembers != 1 {
		t.Errorf("trumbull = %+v", colleges[1])
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, s, "q1", result("p1", "Alice", nil), result("p2", "Bob", nil))
	mustRecord(t, s, "q2", result("p1", "Alice", nil))

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.UniqueQueries != 2 || stats.UniquePeople != 2 || stats.TotalAppearances != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, s, "q", result("p1", "Alice", nil))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAppearances != 0 {
		t.Errorf("expected empty leaderboard, got %+v", stats)
	}
}

func TestEntry_PreservesOptionalFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	full := domain.SearchResult{Person: domain.Person{
		ID: "p1", FirstName: "Alice", LastName: "Smith",
		College: strPtr("Pierson"), Year: intPtr(2026), Image: strPtr("https://img.example/p1.jpg"),
	}}
	mustRecord(t, s, "q", full)

	entries, err := s.Individuals(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.College == nil || *e.College != "Pierson" {
		t.Errorf("college lost: %+v", e)
	}
	if e.Year == nil || *e.Year != 2026 {
		t.Errorf("year lost: %+v", e)
	}
	if e.Image == nil || *e.Image != "https://img.example/p1.jpg" {
		t.Errorf("image lost: %+v", e)
	}
}

func mustRecord(t *testing.T, s *Store, query string, results ...domain.SearchResult) {
	t.Helper()
	if _, err := s.RecordAppearances(context.Background(), query, results); err != nil {
		t.Fatalf("RecordAppearances(%q) failed: %v", query, err)
	}
}
