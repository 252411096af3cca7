package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shops_api/internal/transport"
	"github.com/Skotchmaster/shops_api/internal/util"
)

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	l := handlerLogger(c, "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	if page < 1 {
		page = 1
	}
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.GetProducts(c.Request().Context(), offset, limit)
	if err != nil {
		return catalogError(l, "get_products_failed", err)
	}

	return c.JSON(http.StatusOK, transport.ProductPage{
		Data: transport.Products(items),
		Meta: transport.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	l := handlerLogger(c, "product.get_product")

	id, err := pathID(c, l, "get_product_failed", "id")
	if err != nil {
		return err
	}

	prod, err := h.Svc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return catalogError(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, transport.Product(prod))
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	l := handlerLogger(c, "product.create_product")

	var req transport.CreateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_product_failed", "status", 400, "reason", "invalid body", "error", err)
		return err
	}

	prod, err := h.Svc.CreateProduct(c.Request().Context(), actor(c), req.Name, *req.Price, req.ShopID)
	if err != nil {
		return catalogError(l, "create_product_failed", err)
	}

	l.Info("create_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, transport.Product(prod))
}

func (h *CatalogHTTP) PutProduct(c echo.Context) error {
	l := handlerLogger(c, "product.put_product")

	id, err := pathID(c, l, "put_product_failed", "id")
	if err != nil {
		return err
	}

	var req transport.PutProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("put_product_failed", "status", 400, "reason", "invalid body", "error", err)
		return err
	}

	prod, created, err := h.Svc.PutProduct(c.Request().Context(), actor(c), id, req.Name, *req.Price, req.ShopID)
	if err != nil {
		return catalogError(l, "put_product_failed", err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	l.Info("put_product_success", "product_id", prod.ID, "created", created)
	return c.JSON(status, transport.Product(prod))
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	l := handlerLogger(c, "product.delete_product")

	id, err := pathID(c, l, "delete_product_failed", "id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteProduct(c.Request().Context(), actor(c), id); err != nil {
		return catalogError(l, "delete_product_failed", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Product deleted."})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	l := handlerLogger(c, "product.search")

	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_failed", "status", 400, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	from, size := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Svc.SearchProducts(c.Request().Context(), q, from, size)
	if err != nil {
		return catalogError(l, "search_failed", err)
	}

	return c.JSON(http.StatusOK, transport.ProductPage{
		Data: transport.Products(items),
		Meta: transport.NewPageMeta(page, from, size, total),
	})
}
