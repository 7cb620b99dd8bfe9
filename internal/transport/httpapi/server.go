package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/domain/trend"
	"github.com/perchlabs/perch/internal/usecase/health"
)

const (
	defaultTopK = 10
	maxTopK     = 50

	defaultTrendingLimit = 10
	maxTrendingLimit     = 50
)

// Server exposes the search engine over HTTP.
type Server struct {
	search      SearchService
	trending    TrendingService
	leaderboard LeaderboardService
	moderator   Moderator
	health      HealthService
	auth        *Auth
	logger      *zap.Logger
}

// NewServer wires the API handlers.
func NewServer(
	search SearchService,
	trending TrendingService,
	leaderboard LeaderboardService,
	moderator Moderator,
	healthSvc HealthService,
	auth *Auth,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:      search,
		trending:    trending,
		leaderboard: leaderboard,
		moderator:   moderator,
		health:      healthSvc,
		auth:        auth,
		logger:      logger,
	}
}

// Routes registers all API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/health", s.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", s.auth.Login)
		r.Get("/callback", s.auth.Callback)
		r.Get("/logout", s.auth.Logout)
		r.Get("/user", s.auth.User)
	})

	r.Get("/api/search", s.handleSearch)
	r.Get("/api/similar/{id}", s.handleSimilar)
	r.Get("/api/people/{id}", s.handlePerson)
	r.Get("/api/filters", s.handleFilters)

	r.Get("/api/trending", s.handleTrending)
	r.Get("/api/trending/stats", s.handleTrendingStats)

	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Get("/api/leaderboard/colleges", s.handleCollegeLeaderboard)
	r.Get("/api/leaderboard/stats", s.handleLeaderboardStats)

	r.Get("/api/cache/stats", s.handleCacheStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":       report.Status,
		"total_people": report.TotalPeople,
		"checks":       report.Checks,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing query parameter q")
		return
	}

	k, err := intParam(r, "k", defaultTopK, 1, maxTopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if decision := s.moderator.Check(r.Context(), q); !decision.Allowed {
		writeError(w, http.StatusBadRequest, codeBlocked, decision.Reason)
		return
	}

	results, err := s.search.SearchByText(r.Context(), q, k, filters)
	if err != nil {
		s.writeSearchError(w, q, err)
		return
	}

	if user := UserFromContext(r.Context()); user != "" {
		s.trending.LogSearch(r.Context(), q, user, len(results))
	}
	s.leaderboard.Record(r.Context(), q, results)

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"count":   len(results),
		"results": toResultsJSON(results),
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	k, err := intParam(r, "k", defaultTopK, 1, maxTopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	results, err := s.search.FindSimilar(r.Context(), id, k)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "person not found")
			return
		}
		s.writeSearchError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"results": toResultsJSON(results),
	})
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.search.PersonByID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, "person not found")
		return
	}
	writeJSON(w, http.StatusOK, toPersonJSON(p))
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts := s.search.FilterOptions()
	writeJSON(w, http.StatusOK, map[string]any{
		"colleges": opts.Colleges,
		"years":    opts.Years,
		"majors":   opts.Majors,
	})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	period, err := trend.ParsePeriod(queryDefault(r, "period", "week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	limit, err := intParam(r, "limit", defaultTrendingLimit, 1, maxTrendingLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	useClustering := queryDefault(r, "clustered", "true") != "false"
	clusters := s.trending.Trending(period, limit, useClustering)

	writeJSON(w, http.StatusOK, map[string]any{
		"period": string(period),
		"trends": toClustersJSON(clusters),
	})
}

func (s *Server) handleTrendingStats(w http.ResponseWriter, r *http.Request) {
	stats := s.trending.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_searches":    stats.TotalSearches,
		"unique_queries":    stats.UniqueQueries,
		"searches_last_24h": stats.SearchesLast24h,
		"unique_users":      stats.UniqueUsers,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20, 1, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	entries, err := s.leaderboard.Individuals(r.Context(), limit)
	if err != nil {
		s.logger.Error("Leaderboard query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": toBoardJSON(entries)})
}

func (s *Server) handleCollegeLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.leaderboard.Colleges(r.Context())
	if err != nil {
		s.logger.Error("College leaderboard query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"colleges": toCollegesJSON(entries)})
}

func (s *Server) handleLeaderboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.leaderboard.Stats(r.Context())
	if err != nil {
		s.logger.Error("Leaderboard stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"unique_queries":    stats.UniqueQueries,
		"unique_people":     stats.UniquePeople,
		"total_appearances": stats.TotalAppearances,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.search.CacheStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"size":        stats.Size,
		"max_size":    stats.MaxSize,
		"ttl_seconds": stats.TTLSeconds,
	})
}

// writeSearchError maps pipeline errors to responses. Embedding failures are
// reported as 503 so clients can tell an outage from an empty result set.
func (s *Server) writeSearchError(w http.ResponseWriter, query string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidVector):
		writeError(w, http.StatusBadRequest, codeBadRequest, "query produced an unusable embedding")
	case errors.Is(err, domain.ErrEncodingFailed):
		s.logger.Error("Embedding backend unavailable", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "search is temporarily unavailable")
	default:
		s.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "search failed")
	}
}

func queryDefault(r *http.Request, name, fallback string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return fallback
}

func intParam(r *http.Request, name string, fallback, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, &paramError{name: name, min: min, max: max}
	}
	return v, nil
}

type paramError struct {
	name     string
	min, max int
}

func (e *paramError) Error() string {
	return e.name + " must be an integer between " + strconv.Itoa(e.min) + " and " + strconv.Itoa(e.max)
}

func parseFilters(r *http.Request) (domain.Filters, error) {
	f := domain.Filters{
		College: strings.TrimSpace(r.URL.Query().Get("college")),
		Major:   strings.TrimSpace(r.URL.Query().Get("major")),
	}
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Filters{}, &paramError{name: "year", min: 1000, max: 9999}
		}
		f.Year = year
	}
	return f, nil
}
