package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shops_api/internal/service"
	"github.com/Skotchmaster/shops_api/internal/transport"
	"github.com/Skotchmaster/shops_api/internal/util"
	"github.com/Skotchmaster/shops_api/pkg/apperr"
	"github.com/Skotchmaster/shops_api/pkg/logging"
	"github.com/Skotchmaster/shops_api/pkg/middleware/auth"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("register_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusCreated, transport.User(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.CredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	c.SetCookie(auth.CreateCookie(auth.AccessCookie, res.Access.Token, "/", res.Access.ExpiresAt))
	c.SetCookie(auth.CreateCookie(auth.RefreshCookie, res.Refresh.Token, "/", res.Refresh.ExpiresAt))

	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		AccessToken:  res.Access.Token,
		RefreshToken: res.Refresh.Token,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return apperr.ErrUnauthorized
	}

	if err := h.Svc.LogOut(ctx, claims); err != nil {
		return err
	}

	c.SetCookie(auth.DeleteCookie(auth.AccessCookie, "/"))

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Successfully logged out"})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return apperr.ErrUnauthorized
	}

	issued, err := h.Svc.Refresh(ctx, claims)
	if err != nil {
		return err
	}

	c.SetCookie(auth.CreateCookie(auth.AccessCookie, issued.Token, "/", issued.ExpiresAt))
	return c.JSON(http.StatusOK, transport.RefreshResponse{AccessToken: issued.Token})
}

func (h *AuthHTTP) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_get")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		l.Warn("get_user_failed", "status", 400, "reason", "id is not a positive integer")
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a positive integer")
	}

	user, err := h.Svc.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	return c.JSON(http.StatusOK, transport.User(user))
}

func (h *AuthHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_delete")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		l.Warn("delete_user_failed", "status", 400, "reason", "id is not a positive integer")
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a positive integer")
	}

	actor, _ := auth.UserID(c)
	if err := h.Svc.DeleteUser(ctx, actor, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found.")
		}
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "User deleted."})
}
