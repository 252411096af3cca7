package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shops_api/internal/transport"
)

func (h *CatalogHTTP) GetShopTags(c echo.Context) error {
	l := handlerLogger(c, "tag.get_shop_tags")

	shopID, err := pathID(c, l, "get_shop_tags_failed", "id")
	if err != nil {
		return err
	}

	tags, err := h.Svc.GetShopTags(c.Request().Context(), shopID)
	if err != nil {
		return catalogError(l, "get_shop_tags_failed", err)
	}
	return c.JSON(http.StatusOK, transport.Tags(tags))
}

func (h *CatalogHTTP) CreateTag(c echo.Context) error {
	l := handlerLogger(c, "tag.create_tag")

	shopID, err := pathID(c, l, "create_tag_failed", "id")
	if err != nil {
		return err
	}

	var req transport.CreateTagRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_tag_failed", "status", 400, "reason", "invalid body", "error", err)
		return err
	}

	tag, err := h.Svc.CreateTag(c.Request().Context(), actor(c), shopID, req.Name)
	if err != nil {
		return catalogError(l, "create_tag_failed", err)
	}

	l.Info("create_tag_success", "tag_id", tag.ID)
	return c.JSON(http.StatusCreated, transport.Tag(tag))
}

func (h *CatalogHTTP) GetTag(c echo.Context) error {
	l := handlerLogger(c, "tag.get_tag")

	id, err := pathID(c, l, "get_tag_failed", "id")
	if err != nil {
		return err
	}

	tag, err := h.Svc.GetTag(c.Request().Context(), id)
	if err != nil {
		return catalogError(l, "get_tag_failed", err)
	}
	return c.JSON(http.StatusOK, transport.Tag(tag))
}

func (h *CatalogHTTP) DeleteTag(c echo.Context) error {
	l := handlerLogger(c, "tag.delete_tag")

	id, err := pathID(c, l, "delete_tag_failed", "id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteTag(c.Request().Context(), actor(c), id); err != nil {
		return catalogError(l, "delete_tag_failed", err)
	}

	l.Info("delete_tag_success", "tag_id", id)
	return c.JSON(http.StatusAccepted, transport.MessageResponse{Message: "Tag deleted."})
}

func (h *CatalogHTTP) LinkTag(c echo.Context) error {
	l := handlerLogger(c, "tag.link_tag")

	productID, err := pathID(c, l, "link_tag_failed", "id")
	if err != nil {
		return err
	}
	tagID, err := pathID(c, l, "link_tag_failed", "tag_id")
	if err != nil {
		return err
	}

	tag, err := h.Svc.LinkTag(c.Request().Context(), actor(c), productID, tagID)
	if err != nil {
		return catalogError(l, "link_tag_failed", err)
	}
	return c.JSON(http.StatusCreated, transport.Tag(tag))
}

func (h *CatalogHTTP) UnlinkTag(c echo.Context) error {
	l := handlerLogger(c, "tag.unlink_tag")

	productID, err := pathID(c, l, "unlink_tag_failed", "id")
	if err != nil {
		return err
	}
	tagID, err := pathID(c, l, "unlink_tag_failed", "tag_id")
	if err != nil {
		return err
	}

	prod, tag, err := h.Svc.UnlinkTag(c.Request().Context(), actor(c), productID, tagID)
	if err != nil {
		return catalogError(l, "unlink_tag_failed", err)
	}
	return c.JSON(http.StatusOK, transport.TagAndProductResponse{
		Message: "Product removed from tag",
		Product: transport.Product(prod),
		Tag:     transport.Tag(tag),
	})
}
