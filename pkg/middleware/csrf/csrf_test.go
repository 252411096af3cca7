package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{SessionCookies: []string{"accessToken"}}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/thing", ok)
	e.POST("/thing", ok)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSafeMethodIssuesToken(t *testing.T) {
	rec := serve(newEcho(), httptest.NewRequest(http.MethodGet, "/thing", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "XSRF-TOKEN", cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
}

func TestUnsafeMethod(t *testing.T) {
	e := newEcho()
	session := &http.Cookie{Name: "accessToken", Value: "jwt"}
	xsrf := &http.Cookie{Name: "XSRF-TOKEN", Value: "abc"}

	cases := []struct {
		name    string
		cookies []*http.Cookie
		header  map[string]string
		want    int
	}{
		{"no session passes", nil, nil, http.StatusOK},
		{"bearer passes", []*http.Cookie{session}, map[string]string{"Authorization": "Bearer x"}, http.StatusOK},
		{"session without token", []*http.Cookie{session}, nil, http.StatusForbidden},
		{"session with mismatched token", []*http.Cookie{session, xsrf}, map[string]string{"X-CSRF-Token": "abd"}, http.StatusForbidden},
		{"session with token", []*http.Cookie{session, xsrf}, map[string]string{"X-CSRF-Token": "abc"}, http.StatusOK},
		{"foreign origin", []*http.Cookie{session, xsrf}, map[string]string{"X-CSRF-Token": "abc", "Origin": "http://evil.example"}, http.StatusForbidden},
		{"same origin", []*http.Cookie{session, xsrf}, map[string]string{"X-CSRF-Token": "abc", "Origin": "http://example.com"}, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/thing", nil)
			for _, ck := range tc.cookies {
				req.AddCookie(ck)
			}
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, serve(e, req).Code)
		})
	}
}
