package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/domain"
	"github.com/perchlabs/perch/internal/kv"
	logpkg "github.com/perchlabs/perch/internal/logger"
	"github.com/perchlabs/perch/internal/metrics"
	"github.com/perchlabs/perch/internal/repository/catalog"
	"github.com/perchlabs/perch/internal/repository/embcache"
	"github.com/perchlabs/perch/internal/repository/leaderboard"
	"github.com/perchlabs/perch/internal/repository/resultcache"
	"github.com/perchlabs/perch/internal/repository/searchlog"
	"github.com/perchlabs/perch/internal/transport/cas"
	"github.com/perchlabs/perch/internal/transport/httpapi"
	openaiT "github.com/perchlabs/perch/internal/transport/openai"
	healthuc "github.com/perchlabs/perch/internal/usecase/health"
	leaderboarduc "github.com/perchlabs/perch/internal/usecase/leaderboard"
	moderationuc "github.com/perchlabs/perch/internal/usecase/moderation"
	searchuc "github.com/perchlabs/perch/internal/usecase/search"
	trendinguc "github.com/perchlabs/perch/internal/usecase/trending"
	"github.com/perchlabs/perch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting perch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embeddings_path", cfg.Catalog.EmbeddingsPath),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Load the person catalog. The server is useless without it, so fail hard.
	cat, err := catalog.LoadFile(cfg.Catalog.EmbeddingsPath)
	if err != nil {
		logger.Fatal("Failed to load person catalog",
			zap.String("path", cfg.Catalog.EmbeddingsPath),
			zap.Error(err),
		)
	}
	logger.Info("Catalog loaded",
		zap.Int("people", cat.Len()),
		zap.Int("dimensions", cat.Dimensions()),
	)

	// Embedding cache backend
	ctx := context.Background()
	var store kv.Store
	switch cfg.Embedding.CacheDriver {
	case "redis":
		redisStore, err := kv.NewRedis(kv.RedisConfig{
			Addrs:    cfg.Embedding.Redis.Addrs,
			Username: cfg.Embedding.Redis.Username,
			Password: cfg.Embedding.Redis.Password,
			DB:       cfg.Embedding.Redis.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		readiness := time.Duration(cfg.Embedding.Redis.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		store = redisStore
		logger.Info("Connected to redis embedding cache", zap.Strings("addrs", cfg.Embedding.Redis.Addrs))
	default:
		store = kv.NewMemory()
	}
	defer store.Close()

	// Embedder chain: OpenAI -> Cached
	base := openaiT.NewEmbedder(&openaiT.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	embedder := embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Search pipeline
	cache := resultcache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSec)*time.Second)
	searchSvc := searchuc.New(cat, cache, embedder, logger)

	// Search log and trending
	logStore := searchlog.New(cfg.Trending.LogPath, cfg.Trending.SaveEvery, logger)
	if err := logStore.Load(); err != nil {
		logger.Warn("Failed to load search log, starting empty", zap.Error(err))
	}
	trendingSvc := trendinguc.New(logStore, embedder, cfg.Trending.ClusterThreshold, logger)

	// Leaderboard storage
	boardStore, err := leaderboard.Open(cfg.Leaderboard.DBPath)
	if err != nil {
		logger.Fatal("Failed to open leaderboard database",
			zap.String("path", cfg.Leaderboard.DBPath),
			zap.Error(err),
		)
	}
	boardSvc := leaderboarduc.New(boardStore, logger)

	// Query moderation
	moderator := openaiT.NewModerator(&openaiT.ModeratorConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Moderation.Model,
		Logger:  logger,
	})
	moderationSvc := moderationuc.New(moderator, cfg.Moderation.Enabled, logger)

	// Health service
	healthSvc := healthuc.New(cat, boardStore, newEmbeddingHealthChecker(embedder))

	// CAS SSO + session tokens
	auth := httpapi.NewAuth(httpapi.AuthConfig{
		Secret:      cfg.Auth.JWTSecret,
		TokenTTL:    time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		FrontendURL: cfg.Auth.FrontendURL,
		BackendURL:  cfg.Auth.BackendURL,
	}, cas.New(cfg.Auth.CASServerURL), logger)
	if !auth.Enabled() {
		logger.Warn("Authentication disabled: auth.jwt_secret is empty")
	}

	server := httpapi.NewServer(searchSvc, trendingSvc, boardSvc, moderationSvc, healthSvc, auth, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(auth.Middleware)
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Unsaved search log entries would be lost otherwise.
	if err := logStore.Flush(); err != nil {
		logger.Error("Failed to flush search log", zap.Error(err))
	}
	if err := boardStore.Close(); err != nil {
		logger.Error("Failed to close leaderboard database", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
