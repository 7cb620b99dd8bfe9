package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockCAS struct {
	netid       string
	validateErr error
	lastTicket  string
}

func (m *mockCAS) LoginURL(service string) string {
	return "https://cas.example.edu/login?service=" + service
}

func (m *mockCAS) LogoutURL(service string) string {
	return "https://cas.example.edu/logout?service=" + service
}

func (m *mockCAS) ValidateTicket(_ context.Context, ticket, _ string) (string, error) {
	m.lastTicket = ticket
	if m.validateErr != nil {
		return "", m.validateErr
	}
	return m.netid, nil
}

func newTestAuth(secret string, cas CASClient) *Auth {
	return NewAuth(AuthConfig{
		Secret:      secret,
		TokenTTL:    time.Hour,
		FrontendURL: "http://localhost:3000",
		BackendURL:  "http://localhost:8080",
	}, cas, zap.NewNop())
}

// --- Tests ---

func TestToken_RoundTrip(t *testing.T) {
	a := newTestAuth("test-secret", &mockCAS{})

	token, err := a.CreateToken("abc12")
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	netid, err := a.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if netid != "abc12" {
		t.Errorf("netid = %q, want abc12", netid)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	a := newTestAuth("secret-one", &mockCAS{})
	b := newTestAuth("secret-two", &mockCAS{})

	token, err := a.CreateToken("abc12")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.VerifyToken(token); err == nil {
		t.Fatal("token signed with a different secret must not verify")
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	a := newTestAuth("s", &mockCAS{})
	a.tokenTTL = -time.Hour

	token, err := a.CreateToken("abc12")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.VerifyToken(token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})
	if _, err := a.VerifyToken("not.a.token"); err == nil {
		t.Fatal("garbage token must not verify")
	}
}

func TestMiddleware_RejectsWithoutToken(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddleware_PassesWithToken(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})
	token, _ := a.CreateToken("abc12")

	var gotUser string
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUser != "abc12" {
		t.Errorf("user in context = %q, want abc12", gotUser)
	}
}

func TestMiddleware_CookieToken(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})
	token, _ := a.CreateToken("abc12")

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_ExemptPaths(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})

	for _, path := range []string{"/api/health", "/metrics", "/api/auth/login"} {
		ran := false
		handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ran = true
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if !ran || rec.Code != http.StatusOK {
			t.Errorf("%s: ran=%v status=%d", path, ran, rec.Code)
		}
	}
}

func TestMiddleware_DisabledPassThrough(t *testing.T) {
	a := newTestAuth("", &mockCAS{})
	if a.Enabled() {
		t.Fatal("empty secret must disable auth")
	}

	ran := false
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))

	if !ran {
		t.Error("disabled auth must pass every request through")
	}
}

func TestCallback_RedirectsWithToken(t *testing.T) {
	cas := &mockCAS{netid: "abc12"}
	a := newTestAuth("secret", cas)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?ticket=ST-123", nil)
	rec := httptest.NewRecorder()
	a.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if cas.lastTicket != "ST-123" {
		t.Errorf("validated ticket = %q", cas.lastTicket)
	}

	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "http://localhost:3000?auth_token=") {
		t.Fatalf("redirect location = %q", loc)
	}

	// The token in the redirect must verify back to the CAS netid.
	token := strings.TrimPrefix(loc, "http://localhost:3000?auth_token=")
	netid, err := a.VerifyToken(token)
	if err != nil || netid != "abc12" {
		t.Errorf("redirect token invalid: netid=%q err=%v", netid, err)
	}
}

func TestCallback_MissingTicket(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})

	rec := httptest.NewRecorder()
	a.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCallback_InvalidTicket(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{validateErr: errors.New("INVALID_TICKET")})

	rec := httptest.NewRecorder()
	a.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/auth/callback?ticket=ST-bad", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestUser_Endpoint(t *testing.T) {
	a := newTestAuth("secret", &mockCAS{})
	token, _ := a.CreateToken("abc12")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.User(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"netid":"abc12"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.User(rec, httptest.NewRequest(http.MethodGet, "/api/auth/user", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
}
