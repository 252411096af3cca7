// Package testenv builds the database and HTTP fixtures shared by package tests.
package testenv

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shops_api/internal/models"
	"github.com/Skotchmaster/shops_api/pkg/db"
)

// InitTestDB opens a fresh in-memory SQLite database with the catalog schema.
// TEST_DATABASE_URL points the tests at a real postgres instead; its tables are
// truncated on cleanup.
func InitTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = ":memory:"
	}

	gdb, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		if dsn != ":memory:" {
			ClearDB(gdb)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func ClearDB(gdb *gorm.DB) {
	tables := []string{"products_tags", "products", "tags", "shops", "users"}
	gdb.Exec("TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE")
}

type Response struct {
	Code    int
	Body    []byte
	Cookies []*http.Cookie
}

func (r Response) JSON(t testing.TB, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

// Request is a JSON request against the full echo stack.
type Request struct {
	Method  string
	Path    string
	Body    any
	Token   string
	Cookies []*http.Cookie
	Header  map[string]string
}

func Do(t testing.TB, e *echo.Echo, r Request) Response {
	t.Helper()

	var buf bytes.Buffer
	if r.Body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(r.Body))
	}
	req := httptest.NewRequest(r.Method, r.Path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.Token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+r.Token)
	}
	for _, ck := range r.Cookies {
		req.AddCookie(ck)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return Response{Code: rec.Code, Body: rec.Body.Bytes(), Cookies: rec.Result().Cookies()}
}
