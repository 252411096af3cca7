package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/shops_api/pkg/middleware/auth"
	"github.com/Skotchmaster/shops_api/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/shops_api/pkg/middleware/logging"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	Guard          *auth.Guard
	Ready          func(ctx context.Context) error
}

type Route struct {
	Method  string
	Path    string
	Req     auth.Requirements
	Handler echo.HandlerFunc
}

// Routes is the full route table with each route's access requirements.
func Routes(d *Deps) []Route {
	a, h := d.AuthHandler, d.CatalogHandler
	return []Route{
		{http.MethodPost, "/register", auth.Public, a.Register},
		{http.MethodPost, "/login", auth.Public, a.Login},
		{http.MethodPost, "/logout", auth.Access, a.LogOut},
		{http.MethodPost, "/refresh", auth.RefreshToken, a.Refresh},
		{http.MethodGet, "/user/:id", auth.Access, a.GetUser},
		{http.MethodDelete, "/user/:id", auth.AdminAccess, a.DeleteUser},

		{http.MethodGet, "/shop", auth.Access, h.GetShops},
		{http.MethodPost, "/shop", auth.Access, h.CreateShop},
		{http.MethodGet, "/shop/:id", auth.Access, h.GetShop},
		{http.MethodDelete, "/shop/:id", auth.AdminAccess, h.DeleteShop},
		{http.MethodGet, "/shop/:id/tag", auth.Access, h.GetShopTags},
		{http.MethodPost, "/shop/:id/tag", auth.Access, h.CreateTag},

		{http.MethodGet, "/product", auth.Access, h.GetProducts},
		{http.MethodPost, "/product", auth.FreshAccess, h.CreateProduct},
		{http.MethodGet, "/product/search", auth.Access, h.SearchProducts},
		{http.MethodGet, "/product/:id", auth.Access, h.GetProduct},
		{http.MethodPut, "/product/:id", auth.Access, h.PutProduct},
		{http.MethodDelete, "/product/:id", auth.AdminAccess, h.DeleteProduct},
		{http.MethodPost, "/product/:id/tag/:tag_id", auth.Access, h.LinkTag},
		{http.MethodDelete, "/product/:id/tag/:tag_id", auth.Access, h.UnlinkTag},

		{http.MethodGet, "/tag/:id", auth.Access, h.GetTag},
		{http.MethodDelete, "/tag/:id", auth.AdminAccess, h.DeleteTag},
	}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	for _, r := range Routes(d) {
		if r.Req == auth.Public {
			e.Add(r.Method, r.Path, r.Handler)
			continue
		}
		e.Add(r.Method, r.Path, r.Handler, d.Guard.Require(r.Req))
	}
}

// New builds the echo instance with the shared middleware stack and all routes.
func New(log *slog.Logger, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(e)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(log))
	e.Use(middleware.CORS())
	e.Use(csrf.Middleware(csrf.Config{
		SessionCookies: []string{auth.AccessCookie, auth.RefreshCookie},
	}))

	Register(e, d)
	return e
}
