package auth

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-books/internal/auth/blacklist"
	"github.com/EgorLis/my-books/internal/auth/password"
	"github.com/EgorLis/my-books/internal/auth/token"
	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/infra/cache/memory"
)

type fakeUsers struct {
	mu      sync.Mutex
	byName  map[string]domain.User
	byID    map[domain.UserID]domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byName: make(map[string]domain.User),
		byID:   make(map[domain.UserID]domain.User),
	}
}

func (f *fakeUsers) Close()                     {}
func (f *fakeUsers) Ping(context.Context) error { return nil }

func (f *fakeUsers) CreateUser(_ context.Context, username string, passHash []byte) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.byName[username]; taken {
		return domain.User{}, domain.ErrConflict
	}
	u := domain.User{ID: uuid.New(), Username: username, PassHash: passHash, CreatedAt: time.Now()}
	f.byName[username] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UserByUsername(_ context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UserByID(_ context.Context, id domain.UserID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

type authFixture struct {
	users     *fakeUsers
	tokens    *token.Manager
	blacklist *blacklist.Store
	register  *HandlerRegister
	login     *HandlerLogin
	logout    *HandlerLogout
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cache := memory.New(logger)
	t.Cleanup(cache.Close)

	users := newFakeUsers()
	hasher := password.NewDefault()
	tm := token.New("test-secret", "my-books-test", time.Hour)
	bl := blacklist.NewStore(cache)

	return &authFixture{
		users:     users,
		tokens:    tm,
		blacklist: bl,
		register:  &HandlerRegister{Log: logger, Users: users, Hasher: hasher, Tokens: tm},
		login:     &HandlerLogin{Log: logger, Users: users, Hasher: hasher, Tokens: tm},
		logout:    &HandlerLogout{Log: logger, Tokens: tm, Blacklist: bl},
	}
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister_IssuesToken(t *testing.T) {
	fx := newAuthFixture(t)

	rec := postJSON(fx.register.Register, "/api/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Success bool             `json:"success"`
		Data    registerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "alice", env.Data.Username)
	require.NotEmpty(t, env.Data.Token)

	claims, err := fx.tokens.Parse(context.Background(), env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegister_RejectsShortCredentials(t *testing.T) {
	fx := newAuthFixture(t)

	rec := postJSON(fx.register.Register, "/api/register", `{"username":"al","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(fx.register.Register, "/api/register", `{"username":"alice","password":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	fx := newAuthFixture(t)

	rec := postJSON(fx.register.Register, "/api/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(fx.register.Register, "/api/register", `{"username":"alice","password":"other66"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env domain.APIEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "already exists", env.Error)
}

func TestLogin_WrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	postJSON(fx.register.Register, "/api/register", `{"username":"alice","password":"secret1"}`)

	rec := postJSON(fx.login.Login, "/api/login", `{"username":"alice","password":"wrong66"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(fx.login.Login, "/api/login", `{"username":"nobody","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginLogout_Flow(t *testing.T) {
	fx := newAuthFixture(t)
	postJSON(fx.register.Register, "/api/register", `{"username":"alice","password":"secret1"}`)

	rec := postJSON(fx.login.Login, "/api/login", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)

	req := httptest.NewRequest(http.MethodDelete, "/api/logout", nil)
	req.Header.Set("Authorization", "Bearer "+env.Data.Token)
	out := httptest.NewRecorder()
	fx.logout.Logout(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	claims, err := fx.tokens.Parse(context.Background(), env.Data.Token)
	require.NoError(t, err)
	revoked, err := fx.blacklist.IsRevoked(context.Background(), claims.JTI)
	require.NoError(t, err)
	assert.True(t, revoked, "после logout jti должен быть в блэклисте")
}

func TestLogout_WithoutToken(t *testing.T) {
	fx := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/logout", nil)
	rec := httptest.NewRecorder()
	fx.logout.Logout(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
