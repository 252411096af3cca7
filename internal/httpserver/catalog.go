package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shops_api/internal/service"
	"github.com/Skotchmaster/shops_api/internal/util"
	"github.com/Skotchmaster/shops_api/pkg/logging"
	"github.com/Skotchmaster/shops_api/pkg/middleware/auth"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func handlerLogger(c echo.Context, name string) *slog.Logger {
	return logging.FromContext(c.Request().Context()).With("handler", name)
}

func actor(c echo.Context) uint {
	uid, _ := auth.UserID(c)
	return uid
}

func pathID(c echo.Context, l *slog.Logger, event, name string) (uint, error) {
	id, ok := util.ParseID(c.Param(name))
	if !ok {
		l.Warn(event, "status", 400, "reason", name+" is not a positive integer")
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is not a positive integer")
	}
	return id, nil
}

// catalogError maps service errors onto HTTP errors and logs them once.
func catalogError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrShopExists),
		errors.Is(err, service.ErrTagExists),
		errors.Is(err, service.ErrTagInUse),
		errors.Is(err, service.ErrShopMismatch):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "storage error").SetInternal(err)
	}
}
