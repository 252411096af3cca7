package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shops_api/internal/transport"
)

func (h *CatalogHTTP) GetShops(c echo.Context) error {
	l := handlerLogger(c, "shop.get_shops")

	shops, err := h.Svc.ListShops(c.Request().Context())
	if err != nil {
		return catalogError(l, "get_shops_failed", err)
	}
	return c.JSON(http.StatusOK, transport.Shops(shops))
}

func (h *CatalogHTTP) GetShop(c echo.Context) error {
	l := handlerLogger(c, "shop.get_shop")

	id, err := pathID(c, l, "get_shop_failed", "id")
	if err != nil {
		return err
	}

	shop, err := h.Svc.GetShop(c.Request().Context(), id)
	if err != nil {
		return catalogError(l, "get_shop_failed", err)
	}
	return c.JSON(http.StatusOK, transport.Shop(shop))
}

func (h *CatalogHTTP) CreateShop(c echo.Context) error {
	l := handlerLogger(c, "shop.create_shop")

	var req transport.CreateShopRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_shop_failed", "status", 400, "reason", "invalid body", "error", err)
		return err
	}

	shop, err := h.Svc.CreateShop(c.Request().Context(), actor(c), req.Name)
	if err != nil {
		return catalogError(l, "create_shop_failed", err)
	}

	l.Info("create_shop_success", "shop_id", shop.ID)
	return c.JSON(http.StatusCreated, transport.Shop(shop))
}

func (h *CatalogHTTP) DeleteShop(c echo.Context) error {
	l := handlerLogger(c, "shop.delete_shop")

	id, err := pathID(c, l, "delete_shop_failed", "id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteShop(c.Request().Context(), actor(c), id); err != nil {
		return catalogError(l, "delete_shop_failed", err)
	}

	l.Info("delete_shop_success", "shop_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Shop deleted"})
}
