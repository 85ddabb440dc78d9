package mw

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-books/internal/auth/blacklist"
	"github.com/EgorLis/my-books/internal/auth/token"
	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/infra/cache/memory"
)

func testDeps(t *testing.T) (AuthDeps, *token.Manager, *blacklist.Store) {
	t.Helper()
	cache := memory.New(log.New(io.Discard, "", 0))
	t.Cleanup(cache.Close)
	tm := token.New("secret", "test", time.Hour)
	bl := blacklist.NewStore(cache)
	return AuthDeps{Tokens: tm, Blacklist: bl}, tm, bl
}

func TestWithRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromCtx(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	// клиентский id сохраняется
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "client-42", seen)
}

func TestRequireAuth_RejectsMissingAndBadTokens(t *testing.T) {
	deps, _, _ := testDeps(t)
	h := RequireAuth(deps, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("не должен пройти")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_PassesValidToken(t *testing.T) {
	deps, tm, _ := testDeps(t)
	uid := uuid.New()
	raw, _, err := tm.Issue(context.Background(), uid, "alice")
	require.NoError(t, err)

	var got domain.User
	h := RequireAuth(deps, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = UserFromCtx(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uid, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestRequireAuth_RejectsRevokedToken(t *testing.T) {
	deps, tm, bl := testDeps(t)
	raw, claims, err := tm.Issue(context.Background(), uuid.New(), "alice")
	require.NoError(t, err)
	require.NoError(t, bl.Revoke(context.Background(), claims.JTI, claims.ExpiresAt))

	h := RequireAuth(deps, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("отозванный токен прошёл")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	deps, tm, _ := testDeps(t)

	var ok bool
	h := OptionalAuth(deps, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, ok = UserFromCtx(r.Context())
	}))

	// без токена — аноним
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	// с битым токеном — тоже аноним, не 401
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ok)

	// с валидным — пользователь в контексте
	raw, _, err := tm.Issue(context.Background(), uuid.New(), "alice")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, ok)
}
