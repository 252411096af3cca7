package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shops_api/internal/repo"
	"github.com/Skotchmaster/shops_api/internal/search"
	"github.com/Skotchmaster/shops_api/internal/service"
	"github.com/Skotchmaster/shops_api/internal/testenv"
	"github.com/Skotchmaster/shops_api/internal/transport"
	"github.com/Skotchmaster/shops_api/pkg/events"
	"github.com/Skotchmaster/shops_api/pkg/logging"
	"github.com/Skotchmaster/shops_api/pkg/middleware/auth"
	"github.com/Skotchmaster/shops_api/pkg/revocation"
	"github.com/Skotchmaster/shops_api/pkg/tokens"
)

var testSecret = []byte("router-test-secret")

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	Repo   *repo.GormRepo
	Tokens *tokens.Issuer
	Events *events.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := repo.New(testenv.InitTestDB(t))
	issuer := tokens.NewIssuer(testSecret,
		tokens.WithAdminPolicy(tokens.AnyAdmin(tokens.NewStaticAdmins(1), tokens.AdminPolicyFunc(r.IsAdmin))),
	)
	revoked := revocation.NewMemory()
	rec := &events.Recorder{}

	deps := &Deps{
		AuthHandler: &AuthHTTP{Svc: &service.AuthService{
			Users: r, Tokens: issuer, Revoked: revoked, Events: rec,
		}},
		CatalogHandler: &CatalogHTTP{Svc: &service.CatalogService{
			Repo: r, Search: search.DBIndex{Repo: r}, Events: rec,
		}},
		Guard: auth.NewGuard(issuer, revoked),
		Ready: r.Ping,
	}

	return &testEnv{
		T:      t,
		E:      New(logging.NewWithWriter(io.Discard, "error"), deps),
		Repo:   r,
		Tokens: issuer,
		Events: rec,
	}
}

func (env *testEnv) do(method, path string, body any, token string) testenv.Response {
	env.T.Helper()
	return testenv.Do(env.T, env.E, testenv.Request{Method: method, Path: path, Body: body, Token: token})
}

func (env *testEnv) register(username, password string) transport.UserResponse {
	env.T.Helper()
	res := env.do(http.MethodPost, "/register", map[string]string{"username": username, "password": password}, "")
	require.Equal(env.T, http.StatusCreated, res.Code, string(res.Body))
	var u transport.UserResponse
	res.JSON(env.T, &u)
	return u
}

func (env *testEnv) login(username, password string) transport.LoginResponse {
	env.T.Helper()
	res := env.do(http.MethodPost, "/login", map[string]string{"username": username, "password": password}, "")
	require.Equal(env.T, http.StatusOK, res.Code, string(res.Body))
	var l transport.LoginResponse
	res.JSON(env.T, &l)
	return l
}

func requireAuthError(t *testing.T, res testenv.Response, status int, code string) {
	t.Helper()
	require.Equal(t, status, res.Code, string(res.Body))
	var body ErrorResponse
	res.JSON(t, &body)
	assert.Equal(t, code, body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestRegister_ReturnsUserWithoutPassword(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/register", map[string]string{"username": "alice", "password": "secret123"}, "")
	require.Equal(t, http.StatusCreated, res.Code)

	var raw map[string]any
	res.JSON(t, &raw)
	assert.Equal(t, "alice", raw["username"])
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "password_hash")

	res = env.do(http.MethodPost, "/register", map[string]string{"username": "alice", "password": "other"}, "")
	requireAuthError(t, res, http.StatusConflict, "username_taken")
}

func TestRegister_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(http.MethodPost, "/register", map[string]string{"username": "alice"}, "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRegister_PasswordLongerThan72Bytes(t *testing.T) {
	env := newTestEnv(t)

	// 50 runes pass the DTO's max=72, but they are 100 bytes.
	res := env.do(http.MethodPost, "/register", map[string]string{"username": "bob", "password": strings.Repeat("é", 50)}, "")
	require.Equal(t, http.StatusBadRequest, res.Code, string(res.Body))
	assert.Contains(t, string(res.Body), "72 bytes")

	res = env.do(http.MethodPost, "/register", map[string]string{"username": "bob", "password": strings.Repeat("é", 36)}, "")
	assert.Equal(t, http.StatusCreated, res.Code, string(res.Body))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice", "secret123")

	res := env.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrongpass"}, "")
	requireAuthError(t, res, http.StatusUnauthorized, "invalid_credentials")

	res = env.do(http.MethodPost, "/login", map[string]string{"username": "ghost", "password": "wrongpass"}, "")
	requireAuthError(t, res, http.StatusUnauthorized, "invalid_credentials")

	res = env.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, res.Code)

	var tok transport.LoginResponse
	res.JSON(t, &tok)
	access, err := env.Tokens.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.True(t, access.Fresh)

	names := map[string]bool{}
	for _, ck := range res.Cookies {
		names[ck.Name] = ck.HttpOnly
	}
	assert.True(t, names[auth.AccessCookie])
	assert.True(t, names[auth.RefreshCookie])
}

func TestLogout_RevokesAccessButNotRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice", "secret123")
	tok := env.login("alice", "secret123")

	res := env.do(http.MethodGet, "/shop", nil, tok.AccessToken)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodPost, "/logout", nil, tok.AccessToken)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodGet, "/shop", nil, tok.AccessToken)
	requireAuthError(t, res, http.StatusUnauthorized, "token_revoked")

	res = env.do(http.MethodPost, "/refresh", nil, tok.RefreshToken)
	require.Equal(t, http.StatusOK, res.Code)

	var refreshed transport.RefreshResponse
	res.JSON(t, &refreshed)
	claims, err := env.Tokens.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	assert.False(t, claims.Fresh)

	res = env.do(http.MethodGet, "/shop", nil, refreshed.AccessToken)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestCookieSession_RequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice", "secret123")

	res := env.do(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, res.Code)
	session := res.Cookies

	res = testenv.Do(t, env.E, testenv.Request{Method: http.MethodGet, Path: "/shop", Cookies: session})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	var xsrf *http.Cookie
	for _, ck := range res.Cookies {
		if ck.Name == "XSRF-TOKEN" {
			xsrf = ck
		}
	}
	require.NotNil(t, xsrf)

	res = testenv.Do(t, env.E, testenv.Request{Method: http.MethodPost, Path: "/logout", Cookies: session})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = testenv.Do(t, env.E, testenv.Request{
		Method:  http.MethodPost,
		Path:    "/logout",
		Cookies: append([]*http.Cookie{xsrf}, session...),
		Header:  map[string]string{"X-CSRF-Token": xsrf.Value},
	})
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))

	res = testenv.Do(t, env.E, testenv.Request{Method: http.MethodGet, Path: "/shop", Cookies: session})
	requireAuthError(t, res, http.StatusUnauthorized, "token_revoked")
}

func TestGuard_ErrorCodes(t *testing.T) {
	env := newTestEnv(t)
	env.register("root", "pw")
	env.register("alice", "secret123")
	tok := env.login("alice", "secret123")

	res := env.do(http.MethodGet, "/shop", nil, "")
	requireAuthError(t, res, http.StatusUnauthorized, "authorization_required")

	res = env.do(http.MethodGet, "/shop", nil, "garbage")
	requireAuthError(t, res, http.StatusUnauthorized, "invalid_token")

	past := tokens.NewIssuer(testSecret, tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	old, err := past.IssueAccess(context.Background(), 2, true)
	require.NoError(t, err)
	res = env.do(http.MethodGet, "/shop", nil, old.Token)
	requireAuthError(t, res, http.StatusUnauthorized, "token_expired")

	res = env.do(http.MethodGet, "/shop", nil, tok.RefreshToken)
	requireAuthError(t, res, http.StatusUnauthorized, "wrong_token_type")

	res = env.do(http.MethodPost, "/refresh", nil, tok.AccessToken)
	requireAuthError(t, res, http.StatusUnauthorized, "wrong_token_type")

	res = env.do(http.MethodDelete, "/shop/1", nil, tok.AccessToken)
	requireAuthError(t, res, http.StatusForbidden, "admin_required")
}

func TestGuard_FreshnessRequiredForProductCreate(t *testing.T) {
	env := newTestEnv(t)
	env.register("alice", "secret123")
	tok := env.login("alice", "secret123")

	res := env.do(http.MethodPost, "/shop", map[string]string{"name": "Corner"}, tok.AccessToken)
	require.Equal(t, http.StatusCreated, res.Code)
	var shop transport.ShopResponse
	res.JSON(t, &shop)

	body := map[string]any{"name": "Chair", "price": 9.5, "shop_id": shop.ID}

	res = env.do(http.MethodPost, "/refresh", nil, tok.RefreshToken)
	require.Equal(t, http.StatusOK, res.Code)
	var refreshed transport.RefreshResponse
	res.JSON(t, &refreshed)

	res = env.do(http.MethodPost, "/product", body, refreshed.AccessToken)
	requireAuthError(t, res, http.StatusUnauthorized, "fresh_token_required")

	res = env.do(http.MethodPost, "/product", body, tok.AccessToken)
	require.Equal(t, http.StatusCreated, res.Code, string(res.Body))
}

func TestAdmin_StaleNonAdminTokenIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.register("root", "pw")
	env.register("alice", "secret123")
	tok := env.login("alice", "secret123")

	res := env.do(http.MethodPost, "/refresh", nil, tok.RefreshToken)
	require.Equal(t, http.StatusOK, res.Code)
	var refreshed transport.RefreshResponse
	res.JSON(t, &refreshed)

	// Admin routes do not demand freshness, so a stale non-admin token fails on admin.
	res = env.do(http.MethodDelete, "/user/1", nil, refreshed.AccessToken)
	requireAuthError(t, res, http.StatusForbidden, "admin_required")
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)
	root := env.register("root", "pw")
	alice := env.register("alice", "secret123")
	rootTok := env.login("root", "pw")

	res := env.do(http.MethodGet, fmt.Sprintf("/user/%d", alice.ID), nil, rootTok.AccessToken)
	require.Equal(t, http.StatusOK, res.Code)
	var u transport.UserResponse
	res.JSON(t, &u)
	assert.Equal(t, "alice", u.Username)

	res = env.do(http.MethodGet, "/user/abc", nil, rootTok.AccessToken)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(http.MethodDelete, fmt.Sprintf("/user/%d", alice.ID), nil, rootTok.AccessToken)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodGet, fmt.Sprintf("/user/%d", alice.ID), nil, rootTok.AccessToken)
	assert.Equal(t, http.StatusNotFound, res.Code)

	assert.Equal(t, uint(1), root.ID)
	assert.Contains(t, env.Events.Types(), "user_deleted")
}

func TestCatalogFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register("root", "pw")
	tok := env.login("root", "pw").AccessToken

	res := env.do(http.MethodPost, "/shop", map[string]string{"name": "Corner"}, tok)
	require.Equal(t, http.StatusCreated, res.Code)
	var shop transport.ShopResponse
	res.JSON(t, &shop)

	res = env.do(http.MethodPost, "/shop", map[string]string{"name": "Corner"}, tok)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(http.MethodPost, "/product", map[string]any{"name": "Oak chair", "price": 10, "shop_id": shop.ID}, tok)
	require.Equal(t, http.StatusCreated, res.Code)
	var prod transport.ProductResponse
	res.JSON(t, &prod)
	require.NotNil(t, prod.Shop)
	assert.Equal(t, "Corner", prod.Shop.Name)

	res = env.do(http.MethodPost, "/product", map[string]any{"name": "Ghost", "price": 1, "shop_id": 999}, tok)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = env.do(http.MethodPost, fmt.Sprintf("/shop/%d/tag", shop.ID), map[string]string{"name": "wood"}, tok)
	require.Equal(t, http.StatusCreated, res.Code)
	var tag transport.TagResponse
	res.JSON(t, &tag)

	res = env.do(http.MethodPost, fmt.Sprintf("/shop/%d/tag", shop.ID), map[string]string{"name": "wood"}, tok)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(http.MethodPost, fmt.Sprintf("/product/%d/tag/%d", prod.ID, tag.ID), nil, tok)
	require.Equal(t, http.StatusCreated, res.Code)
	res.JSON(t, &tag)
	require.Len(t, tag.Products, 1)

	res = env.do(http.MethodDelete, fmt.Sprintf("/tag/%d", tag.ID), nil, tok)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(http.MethodGet, fmt.Sprintf("/shop/%d", shop.ID), nil, tok)
	require.Equal(t, http.StatusOK, res.Code)
	res.JSON(t, &shop)
	assert.Len(t, shop.Products, 1)
	assert.Len(t, shop.Tags, 1)

	res = env.do(http.MethodPut, fmt.Sprintf("/product/%d", prod.ID), map[string]any{"name": "Walnut chair", "price": 12}, tok)
	require.Equal(t, http.StatusOK, res.Code)
	res.JSON(t, &prod)
	assert.Equal(t, "Walnut chair", prod.Name)
	require.Len(t, prod.Tags, 1)

	res = env.do(http.MethodPut, "/product/777", map[string]any{"name": "Stool", "price": 3, "shop_id": shop.ID}, tok)
	assert.Equal(t, http.StatusCreated, res.Code)

	res = env.do(http.MethodGet, "/product/search?q=chair", nil, tok)
	require.Equal(t, http.StatusOK, res.Code)
	var page transport.ProductPage
	res.JSON(t, &page)
	assert.EqualValues(t, 1, page.Meta.Total)

	res = env.do(http.MethodGet, "/product?page=1&size=1", nil, tok)
	require.Equal(t, http.StatusOK, res.Code)
	res.JSON(t, &page)
	assert.EqualValues(t, 2, page.Meta.Total)
	assert.True(t, page.Meta.HasNext)
	assert.Len(t, page.Data, 1)

	res = env.do(http.MethodDelete, fmt.Sprintf("/product/%d/tag/%d", prod.ID, tag.ID), nil, tok)
	require.Equal(t, http.StatusOK, res.Code)
	var unlinked transport.TagAndProductResponse
	res.JSON(t, &unlinked)
	assert.Empty(t, unlinked.Tag.Products)

	res = env.do(http.MethodDelete, fmt.Sprintf("/tag/%d", tag.ID), nil, tok)
	assert.Equal(t, http.StatusAccepted, res.Code)

	res = env.do(http.MethodDelete, fmt.Sprintf("/shop/%d", shop.ID), nil, tok)
	require.Equal(t, http.StatusOK, res.Code)

	res = env.do(http.MethodGet, "/product/777", nil, tok)
	assert.Equal(t, http.StatusNotFound, res.Code)

	assert.Contains(t, env.Events.Types(), "shop_deleted")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", nil, "").Code)
}

func TestReady_Unavailable(t *testing.T) {
	e := New(logging.NewWithWriter(io.Discard, "error"), &Deps{
		AuthHandler:    &AuthHTTP{},
		CatalogHandler: &CatalogHTTP{},
		Guard:          auth.NewGuard(tokens.NewIssuer(testSecret), revocation.NewMemory()),
		Ready:          func(context.Context) error { return errors.New("db down") },
	})

	res := testenv.Do(t, e, testenv.Request{Method: http.MethodGet, Path: "/health/ready"})
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestRoutes_EveryNonAuthRouteNeedsToken(t *testing.T) {
	public := map[string]bool{"POST /register": true, "POST /login": true}
	admin := map[string]bool{
		"DELETE /user/:id": true, "DELETE /shop/:id": true,
		"DELETE /product/:id": true, "DELETE /tag/:id": true,
	}

	for _, r := range Routes(&Deps{AuthHandler: &AuthHTTP{}, CatalogHandler: &CatalogHTTP{}}) {
		key := r.Method + " " + r.Path
		if public[key] {
			assert.Equal(t, auth.Public, r.Req, key)
			continue
		}
		assert.True(t, r.Req.Token, key)
		assert.Equal(t, admin[key], r.Req.Admin, key)
	}
}
