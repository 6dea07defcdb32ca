package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-directory-admin/internal/config"
	"go-directory-admin/internal/handler"
	"go-directory-admin/internal/middleware"
	"go-directory-admin/internal/model"
	"go-directory-admin/internal/router"
	"go-directory-admin/internal/service"
	"go-directory-admin/internal/token"
)

type fakeBackend struct {
	passwords     map[string]string
	groups        map[string][]string
	refreshTokens map[uint64]string
	jwtHashes     map[string][]uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		passwords:     map[string]string{},
		groups:        map[string][]string{},
		refreshTokens: map[uint64]string{},
		jwtHashes:     map[string][]uint64{},
	}
}

func (b *fakeBackend) Bind(_ context.Context, userID string, password string) error {
	if b.passwords[userID] != password || password == "" {
		return model.ErrInvalidCredentials
	}
	return nil
}

func (b *fakeBackend) GetUserGroups(_ context.Context, userID string) ([]string, error) {
	return b.groups[userID], nil
}

func (b *fakeBackend) CreateRefreshToken(_ context.Context, userID string) (string, time.Duration, error) {
	raw := "refresh-" + userID
	b.refreshTokens[token.Hash(raw)] = userID
	return raw, 30 * 24 * time.Hour, nil
}

func (b *fakeBackend) CheckToken(_ context.Context, hash uint64, userID string) (bool, error) {
	owner, found := b.refreshTokens[hash]
	return found && owner == userID, nil
}

func (b *fakeBackend) DeleteRefreshToken(_ context.Context, hash uint64) error {
	delete(b.refreshTokens, hash)
	return nil
}

func (b *fakeBackend) RecordJWTHash(_ context.Context, hash uint64, userID string, _ time.Time) error {
	b.jwtHashes[userID] = append(b.jwtHashes[userID], hash)
	return nil
}

func (b *fakeBackend) BlacklistJWTs(_ context.Context, userID string) ([]uint64, error) {
	return b.jwtHashes[userID], nil
}

type fakeAuditStore struct {
	entries []model.AuditEntry
}

func (s *fakeAuditStore) Record(_ context.Context, entry model.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, limit int, offset int) ([]model.AuditEntry, error) {
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := min(offset+limit, len(s.entries))
	return s.entries[offset:end], nil
}

func (s *fakeAuditStore) Count(_ context.Context) (int, error) {
	return len(s.entries), nil
}

type testServer struct {
	handler http.Handler
	backend *fakeBackend
	audit   *fakeAuditStore
	codec   *token.Codec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		ServerPort:       "0",
		RequestTimeout:   5 * time.Second,
		JWTAccessTTL:     24 * time.Hour,
		AdminGroup:       "directory_admin",
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
	}

	codec, err := token.NewCodec("handler-test-secret", cfg.JWTAccessTTL)
	require.NoError(t, err)
	registry := token.NewRevocationRegistry()

	backend := newFakeBackend()
	auditStore := &fakeAuditStore{}
	auditService := service.NewAuditService(auditStore)
	authService := service.NewAuthService(backend, codec, registry)
	authMiddleware := middleware.NewAuthMiddleware(codec, registry, cfg.AdminGroup)

	h := router.New(cfg, authMiddleware, router.Handlers{
		Auth:  handler.NewAuthHandler(authService, auditService),
		User:  handler.NewUserHandler(nil),
		Group: handler.NewGroupHandler(nil),
		Audit: handler.NewAuditHandler(auditService),
	})

	return &testServer{handler: h, backend: backend, audit: auditStore, codec: codec}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, name string, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(model.BindRequest{Name: name, Password: password})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/auth/", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req)
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestAuthorize_SetsCookiesAndReturnsToken(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.passwords["bob"] = "secret"
	ts.backend.groups["bob"] = []string{"directory_admin"}

	rec := ts.login(t, "bob", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	access := rec.Body.String()
	claims, err := ts.codec.Verify(access)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)

	tokenCookie := cookieByName(t, rec, "token")
	assert.Equal(t, access, tokenCookie.Value)
	assert.Equal(t, "/api", tokenCookie.Path)
	assert.Equal(t, int((24 * time.Hour).Seconds()), tokenCookie.MaxAge)
	assert.True(t, tokenCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, tokenCookie.SameSite)

	refreshCookie := cookieByName(t, rec, "refresh_token")
	assert.Equal(t, "refresh-bob+bob", refreshCookie.Value)
	assert.Equal(t, "/auth", refreshCookie.Path)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), refreshCookie.MaxAge)
	assert.True(t, refreshCookie.HttpOnly)

	// Login is on the audit trail.
	require.Len(t, ts.audit.entries, 1)
	assert.Equal(t, model.AuditActionLogin, ts.audit.entries[0].Action)
	assert.True(t, ts.audit.entries[0].Success)
}

func TestAuthorize_BadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.passwords["bob"] = "secret"

	rec := ts.login(t, "bob", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Empty(t, rec.Result().Cookies())

	require.Len(t, ts.audit.entries, 1)
	assert.False(t, ts.audit.entries[0].Success)
}

func TestAuthorize_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/auth/", strings.NewReader("{not json"))
	rec := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
}

func TestRefresh_IssuesFreshTokenWithCurrentGroups(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.passwords["bob"] = "secret"
	ts.backend.groups["bob"] = []string{"readers"}

	login := ts.login(t, "bob", "secret")
	require.Equal(t, http.StatusOK, login.Code)
	oldAccess := login.Body.String()
	refreshCookie := cookieByName(t, login, "refresh_token")

	// Membership changes between login and refresh.
	ts.backend.groups["bob"] = []string{"readers", "directory_admin"}

	req := httptest.NewRequest("GET", "/auth/refresh", nil)
	req.AddCookie(refreshCookie)
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	newAccess := rec.Body.String()
	assert.NotEqual(t, oldAccess, newAccess)

	newClaims, err := ts.codec.Verify(newAccess)
	require.NoError(t, err)
	assert.Equal(t, []string{"readers", "directory_admin"}, newClaims.Groups)

	oldClaims, err := ts.codec.Verify(oldAccess)
	require.NoError(t, err)
	assert.Equal(t, []string{"readers"}, oldClaims.Groups)

	// Only the access-token cookie is reissued.
	newTokenCookie := cookieByName(t, rec, "token")
	assert.Equal(t, newAccess, newTokenCookie.Value)
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, "refresh_token", c.Name)
	}
}

func TestRefresh_MissingCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest("GET", "/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing refresh token")
}

func TestRefresh_UnknownToken(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("GET", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "unknown+bob"})
	rec := ts.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid refresh token")
}

func TestLogout_RevokesAndClearsCookies(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.passwords["bob"] = "secret"
	ts.backend.groups["bob"] = []string{"directory_admin"}

	login := ts.login(t, "bob", "secret")
	require.Equal(t, http.StatusOK, login.Code)
	access := login.Body.String()
	refreshCookie := cookieByName(t, login, "refresh_token")

	// The token opens the admin API before logout.
	apiReq := httptest.NewRequest("GET", "/api/me", nil)
	apiReq.AddCookie(&http.Cookie{Name: "token", Value: access})
	require.Equal(t, http.StatusOK, ts.do(apiReq).Code)

	logoutReq := httptest.NewRequest("POST", "/auth/logout", nil)
	logoutReq.AddCookie(refreshCookie)
	logoutRec := ts.do(logoutReq)
	require.Equal(t, http.StatusOK, logoutRec.Code)

	for _, name := range []string{"token", "refresh_token"} {
		cleared := cookieByName(t, logoutRec, name)
		assert.Empty(t, cleared.Value)
		assert.Less(t, cleared.MaxAge, 0, "cookie %q must expire", name)
	}

	// The same token is now rejected as logged out.
	apiReq = httptest.NewRequest("GET", "/api/me", nil)
	apiReq.AddCookie(&http.Cookie{Name: "token", Value: access})
	rec := ts.do(apiReq)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "JWT was logged out")

	// Repeating logout with the dead cookie is an invalid-token 401.
	logoutReq = httptest.NewRequest("POST", "/auth/logout", nil)
	logoutReq.AddCookie(refreshCookie)
	rec = ts.do(logoutReq)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid refresh token")
}

func TestLogout_DoesNotAffectOtherUsers(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.passwords["bob"] = "secret"
	ts.backend.passwords["alice"] = "hunter2"

	bobLogin := ts.login(t, "bob", "secret")
	require.Equal(t, http.StatusOK, bobLogin.Code)
	aliceLogin := ts.login(t, "alice", "hunter2")
	require.Equal(t, http.StatusOK, aliceLogin.Code)

	logoutReq := httptest.NewRequest("POST", "/auth/logout", nil)
	logoutReq.AddCookie(cookieByName(t, bobLogin, "refresh_token"))
	require.Equal(t, http.StatusOK, ts.do(logoutReq).Code)

	// Alice's session is untouched.
	apiReq := httptest.NewRequest("GET", "/api/me", nil)
	apiReq.AddCookie(&http.Cookie{Name: "token", Value: aliceLogin.Body.String()})
	assert.Equal(t, http.StatusOK, ts.do(apiReq).Code)
}

func TestGuard_AdminGatingThroughRouter(t *testing.T) {
	ts := newTestServer(t)
	ts.backend.passwords["bob"] = "secret"
	ts.backend.groups["bob"] = []string{"readers"}

	login := ts.login(t, "bob", "secret")
	require.Equal(t, http.StatusOK, login.Code)
	access := login.Body.String()

	// Admin route refuses the token.
	adminReq := httptest.NewRequest("GET", "/api/users", nil)
	adminReq.AddCookie(&http.Cookie{Name: "token", Value: access})
	rec := ts.do(adminReq)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "User is not in group directory_admin")

	// Identity route accepts the same token.
	meReq := httptest.NewRequest("GET", "/api/me", nil)
	meReq.AddCookie(&http.Cookie{Name: "token", Value: access})
	meRec := ts.do(meReq)
	require.Equal(t, http.StatusOK, meRec.Code)
	assert.Contains(t, meRec.Body.String(), `"user_id":"bob"`)
}

func TestGuard_NoCookieIsMissingCredential(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest("GET", "/api/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing bearer token")
}

func TestAdapter_MalformedCookieNeverReachesHandler(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/users", nil)
	req.Header.Set("Cookie", "token=bad\x01value")
	rec := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token cookie")
}
