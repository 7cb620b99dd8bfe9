package leaderboard

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/board"
)

// DriverName is the pure Go SQLite driver.
const DriverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS query_appearances (
	query_hash TEXT NOT NULL,
	person_id  TEXT NOT NULL,
	first_name TEXT,
	last_name  TEXT,
	image      TEXT,
	college    TEXT,
	year       INTEGER,
	first_seen INTEGER NOT NULL,
	PRIMARY KEY (query_hash, person_id)
);
CREATE INDEX IF NOT EXISTS idx_person_id ON query_appearances(person_id);
CREATE INDEX IF NOT EXISTS idx_college ON query_appearances(college);
`

// Store records which people surfaced in search results, keyed by
// (query hash, person id) so a person counts once per distinct query.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the leaderboard database at path.
// WAL mode allows concurrent readers alongside the single writer.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// SQLite benefits from a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply leaderboard schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database availability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// RecordAppearances stores which people appeared in the results for query.
// INSERT OR IGNORE keeps each query/person pair counted once. Returns the
// number of newly recorded appearances.
func (s *Store) RecordAppearances(ctx context.Context, query string, results []domain.SearchResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	queryHash := hashQuery(query)
	now := time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `
		INSERT OR IGNORE INTO query_appearances
		(query_hash, person_id, first_name, last_name, image, college, year, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	recorded := 0
	for i := range results {
		r := &results[i]
		if r.ID == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, insert,
			queryHash, r.ID, r.FirstName, r.LastName, r.Image, r.College, r.Year, now)
		if err != nil {
			return 0, fmt.Errorf("record appearance: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			recorded++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return recorded, nil
}

// Individuals returns the top people by distinct-query appearance count.
func (s *Store) Individuals(ctx context.Context, limit int) ([]board.Entry, error) {
	const q = `
		SELECT person_id, first_name, last_name, image, college, year,
		       COUNT(DISTINCT query_hash) AS appearance_count
		FROM query_appearances
		GROUP BY person_id
		ORDER BY appearance_count DESC, first_name ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query individuals: %w", err)
	}
	defer rows.Close()

	var out []board.Entry
	for rows.Next() {
		var e board.Entry
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Image, &e.College, &e.Year, &e.AppearanceCount); err != nil {
			return nil, fmt.Errorf("scan individual: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Colleges returns colleges ranked by total appearances of their members.
func (s *Store) Colleges(ctx context.Context) ([]board.CollegeEntry, error) {
	const q = `
		SELECT college,
		       SUM(person_appearances) AS total_appearances,
		       COUNT(DISTINCT person_id) AS unique_members
		FROM (
			SELECT person_id, college,
			       COUNT(DISTINCT query_hash) AS person_appearances
			FROM query_appearances
			WHERE college IS NOT NULL AND college != ''
			GROUP BY person_id, college
		)
		GROUP BY college
		ORDER BY total_appearances DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query colleges: %w", err)
	}
	defer rows.Close()

	var out []board.CollegeEntry
	for rows.Next() {
		var e board.CollegeEntry
		if err := rows.Scan(&e.College, &e.TotalAppearances, &e.UniqueMembers); err != nil {
			return nil, fmt.Errorf("scan college: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns overall leaderboard statistics.
func (s *Store) Stats(ctx context.Context) (board.Stats, error) {
	const q = `
		SELECT COUNT(DISTINCT query_hash), COUNT(DISTINCT person_id), COUNT(*)
		FROM query_appearances`

	var st board.Stats
	if err := s.db.QueryRowContext(ctx, q).Scan(&st.UniqueQueries, &st.UniquePeople, &st.TotalAppearances); err != nil {
		return board.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

// Clear removes all leaderboard data.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM query_appearances"); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}
