package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type userCtxKey struct{}

// UserFromContext returns the authenticated netid, or "" for anonymous.
func UserFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(userCtxKey{}).(string); ok {
		return u
	}
	return ""
}

// CASClient is the SSO contract used by the auth handlers.
type CASClient interface {
	LoginURL(service string) string
	LogoutURL(service string) string
	ValidateTicket(ctx context.Context, ticket, service string) (string, error)
}

// AuthConfig holds session token and SSO settings.
type AuthConfig struct {
	Secret      string
	TokenTTL    time.Duration
	FrontendURL string
	BackendURL  string
}

// Auth issues and verifies session tokens for CAS-authenticated users.
// An empty secret disables authentication entirely (local development).
type Auth struct {
	secret      []byte
	tokenTTL    time.Duration
	cas         CASClient
	frontendURL string
	backendURL  string
	logger      *zap.Logger
}

// NewAuth creates the auth component.
func NewAuth(cfg AuthConfig, casClient CASClient, logger *zap.Logger) *Auth {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{
		secret:      []byte(cfg.Secret),
		tokenTTL:    ttl,
		cas:         casClient,
		frontendURL: cfg.FrontendURL,
		backendURL:  cfg.BackendURL,
		logger:      logger,
	}
}

// Enabled reports whether authentication is enforced.
func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

// CreateToken issues an HS256 session token for netid.
func (a *Auth) CreateToken(netid string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   netid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a session token and returns its netid.
func (a *Auth) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// exemptPrefixes bypass authentication: health, metrics, and the auth
// handshake itself.
var exemptPrefixes = []string{
	"/api/health",
	"/metrics",
	"/api/auth/",
}

// Middleware enforces Bearer session tokens on API routes and stores the
// netid in the request context. Pass-through when auth is disabled.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range exemptPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
			return
		}

		netid, err := a.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userCtxKey{}, netid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the session token from the Authorization header or
// the auth_token cookie.
func bearerToken(r *http.Request) string {
	const bearerPrefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		return auth[len(bearerPrefix):]
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return c.Value
	}
	return ""
}

func (a *Auth) callbackService() string {
	return a.backendURL + "/api/auth/callback"
}

// Login handles GET /api/auth/login.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"login_url": a.cas.LoginURL(a.callbackService()),
	})
}

// Callback handles GET /api/auth/callback: validates the CAS ticket and
// redirects to the frontend with a session token.
func (a *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "missing ticket")
		return
	}

	netid, err := a.cas.ValidateTicket(r.Context(), ticket, a.callbackService())
	if err != nil {
		a.logger.Warn("CAS ticket validation failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "CAS authentication failed")
		return
	}

	token, err := a.CreateToken(netid)
	if err != nil {
		a.logger.Error("Failed to create session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "authentication error")
		return
	}

	http.Redirect(w, r, a.frontendURL+"?auth_token="+token, http.StatusFound)
}

// Logout handles GET /api/auth/logout.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"logout_url": a.cas.LogoutURL(a.frontendURL),
	})
}

// User handles GET /api/auth/user.
func (a *Auth) User(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}
	netid, err := a.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"netid":         netid,
		"authenticated": true,
	})
}
