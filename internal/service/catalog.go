package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shops_api/internal/models"
	"github.com/Skotchmaster/shops_api/internal/repo"
	"github.com/Skotchmaster/shops_api/internal/search"
	"github.com/Skotchmaster/shops_api/pkg/events"
	"github.com/Skotchmaster/shops_api/pkg/logging"
)

var (
	ErrShopExists   = errors.New("a shop with that name already exists")
	ErrTagExists    = errors.New("a tag with that name already exists in that shop")
	ErrTagInUse     = errors.New("tag is associated with products")
	ErrShopMismatch = errors.New("tag and product belong to different shops")
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Search search.Index
	Events events.Publisher
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *CatalogService) ListShops(ctx context.Context) ([]models.Shop, error) {
	return s.Repo.ListShops(ctx)
}

func (s *CatalogService) GetShop(ctx context.Context, id uint) (*models.Shop, error) {
	shop, err := s.Repo.GetShop(ctx, id)
	return shop, notFound(err)
}

func (s *CatalogService) CreateShop(ctx context.Context, actor uint, name string) (*models.Shop, error) {
	if name == "" {
		return nil, ErrValidation
	}
	shop := &models.Shop{Name: name}
	if err := s.Repo.CreateShop(ctx, shop); err != nil {
		if errors.Is(err, repo.ErrShopAlreadyExist) {
			return nil, ErrShopExists
		}
		return nil, err
	}

	publish(ctx, s.Events, events.TopicShops, "shop_created", shop.ID, actor, map[string]any{"name": shop.Name})
	return shop, nil
}

func (s *CatalogService) DeleteShop(ctx context.Context, actor, id uint) error {
	productIDs, err := s.Repo.DeleteShop(ctx, id)
	if err != nil {
		return notFound(err)
	}

	for _, pid := range productIDs {
		s.unindex(ctx, pid)
	}
	publish(ctx, s.Events, events.TopicShops, "shop_deleted", id, actor, map[string]any{"products": productIDs})
	return nil
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, offset, limit)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	return prod, notFound(err)
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor uint, name string, price float64, shopID uint) (*models.Product, error) {
	if name == "" || price < 0 || shopID == 0 {
		return nil, ErrValidation
	}

	ok, err := s.Repo.ShopExists(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: shop %d", ErrNotFound, shopID)
	}

	prod := &models.Product{Name: name, Price: price, ShopID: shopID}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		return nil, err
	}

	s.index(ctx, prod)
	publish(ctx, s.Events, events.TopicProducts, "product_created", prod.ID, actor, map[string]any{"name": prod.Name, "shop_id": prod.ShopID})
	return s.GetProduct(ctx, prod.ID)
}

// PutProduct updates an existing product, or creates one with the given id
// when shopID names an existing shop.
func (s *CatalogService) PutProduct(ctx context.Context, actor, id uint, name string, price float64, shopID uint) (*models.Product, bool, error) {
	if name == "" || price < 0 {
		return nil, false, ErrValidation
	}
	if shopID != 0 {
		ok, err := s.Repo.ShopExists(ctx, shopID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, fmt.Errorf("%w: shop %d", ErrNotFound, shopID)
		}
	}

	prod, created, err := s.Repo.PutProduct(ctx, id, name, price, shopID)
	if err != nil {
		return nil, false, notFound(err)
	}

	s.index(ctx, prod)
	verb := "product_updated"
	if created {
		verb = "product_created"
	}
	publish(ctx, s.Events, events.TopicProducts, verb, prod.ID, actor, map[string]any{"name": prod.Name, "price": prod.Price})

	full, err := s.GetProduct(ctx, prod.ID)
	return full, created, err
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actor, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err)
	}
	s.unindex(ctx, id)
	publish(ctx, s.Events, events.TopicProducts, "product_deleted", id, actor, nil)
	return nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, q string, from, size int) (int64, []models.Product, error) {
	if q == "" {
		return 0, nil, ErrValidation
	}
	idx := s.Search
	if idx == nil {
		idx = search.DBIndex{Repo: s.Repo}
	}
	total, hits, err := idx.Search(ctx, q, from, size)
	if err != nil {
		return 0, nil, err
	}
	if _, fromDB := idx.(search.DBIndex); fromDB {
		return total, hits, nil
	}

	// Index hits carry only the indexed fields; load shop and tags from the catalog.
	ids := make([]uint, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	items, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (s *CatalogService) GetShopTags(ctx context.Context, shopID uint) ([]models.Tag, error) {
	ok, err := s.Repo.ShopExists(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.Repo.GetShopTags(ctx, shopID)
}

func (s *CatalogService) CreateTag(ctx context.Context, actor, shopID uint, name string) (*models.Tag, error) {
	if name == "" {
		return nil, ErrValidation
	}
	ok, err := s.Repo.ShopExists(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	tag := &models.Tag{Name: name, ShopID: shopID}
	if err := s.Repo.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, repo.ErrTagAlreadyExist) {
			return nil, ErrTagExists
		}
		return nil, err
	}

	publish(ctx, s.Events, events.TopicTags, "tag_created", tag.ID, actor, map[string]any{"name": tag.Name, "shop_id": shopID})
	return s.GetTag(ctx, tag.ID)
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	tag, err := s.Repo.GetTag(ctx, id)
	return tag, notFound(err)
}

// DeleteTag refuses to delete a tag that is still linked to a product.
func (s *CatalogService) DeleteTag(ctx context.Context, actor, id uint) error {
	if err := s.Repo.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, repo.ErrTagInUse) {
			return ErrTagInUse
		}
		return notFound(err)
	}
	publish(ctx, s.Events, events.TopicTags, "tag_deleted", id, actor, nil)
	return nil
}

func (s *CatalogService) loadPair(ctx context.Context, productID, tagID uint) (*models.Product, *models.Tag, error) {
	prod, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	tag, err := s.Repo.GetTag(ctx, tagID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	return prod, tag, nil
}

func (s *CatalogService) LinkTag(ctx context.Context, actor, productID, tagID uint) (*models.Tag, error) {
	prod, tag, err := s.loadPair(ctx, productID, tagID)
	if err != nil {
		return nil, err
	}
	if prod.ShopID != tag.ShopID {
		return nil, ErrShopMismatch
	}

	if err := s.Repo.LinkTag(ctx, productID, tagID); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicTags, "tag_linked", tagID, actor, map[string]any{"product_id": productID})
	return s.GetTag(ctx, tagID)
}

func (s *CatalogService) UnlinkTag(ctx context.Context, actor, productID, tagID uint) (*models.Product, *models.Tag, error) {
	if _, _, err := s.loadPair(ctx, productID, tagID); err != nil {
		return nil, nil, err
	}

	if err := s.Repo.UnlinkTag(ctx, productID, tagID); err != nil {
		return nil, nil, err
	}

	publish(ctx, s.Events, events.TopicTags, "tag_unlinked", tagID, actor, map[string]any{"product_id": productID})

	prod, tag, err := s.loadPair(ctx, productID, tagID)
	return prod, tag, err
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Error("search_index_failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) unindex(ctx context.Context, id uint) {
	if s.Search == nil {
		return
	}
	if err := s.Search.DeleteProduct(ctx, id); err != nil {
		logging.FromContext(ctx).Error("search_unindex_failed", "product_id", id, "error", err)
	}
}
