package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/board"
	"github.com/perchlabs/perch/internal/domain/trend"
)

const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeBlocked      = "query_blocked"
	codeUnavailable  = "search_unavailable"
	codeInternal     = "internal_error"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

type personJSON struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	College   *string `json:"college,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Major     *string `json:"major,omitempty"`
	Image     *string `json:"image,omitempty"`
	Email     *string `json:"email,omitempty"`
}

type resultJSON struct {
	personJSON
	Score float64 `json:"score"`
}

func toPersonJSON(p domain.Person) personJSON {
	return personJSON{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		College:   p.College,
		Year:      p.Year,
		Major:     p.Major,
		Image:     p.Image,
		Email:     p.Email,
	}
}

func toResultsJSON(results []domain.SearchResult) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, resultJSON{personJSON: toPersonJSON(r.Person), Score: r.Score})
	}
	return out
}

type clusterJSON struct {
	Query          string   `json:"query"`
	Count          int      `json:"count"`
	SimilarQueries []string `json:"similar_queries,omitempty"`
}

func toClustersJSON(clusters []trend.Cluster) []clusterJSON {
	out := make([]clusterJSON, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, clusterJSON{Query: c.Query, Count: c.Count, SimilarQueries: c.SimilarQueries})
	}
	return out
}

type boardEntryJSON struct {
	ID              string  `json:"id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Image           *string `json:"image,omitempty"`
	College         *string `json:"college,omitempty"`
	Year            *int    `json:"year,omitempty"`
	AppearanceCount int     `json:"appearance_count"`
}

func toBoardJSON(entries []board.Entry) []boardEntryJSON {
	out := make([]boardEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, boardEntryJSON{
			ID:              e.ID,
			FirstName:       e.FirstName,
			LastName:        e.LastName,
			Image:           e.Image,
			College:         e.College,
			Year:            e.Year,
			AppearanceCount: e.AppearanceCount,
		})
	}
	return out
}

type collegeEntryJSON struct {
	College          string `json:"college"`
	TotalAppearances int    `json:"total_appearances"`
	UniqueMembers    int    `json:"unique_members"`
}

func toCollegesJSON(entries []board.CollegeEntry) []collegeEntryJSON {
	out := make([]collegeEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, collegeEntryJSON{
			College:          e.College,
			TotalAppearances: e.TotalAppearances,
			UniqueMembers:    e.UniqueMembers,
		})
	}
	return out
}
