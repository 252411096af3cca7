package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shops_api/internal/models"
)

func (r *GormRepo) ListShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	if err := r.DB.WithContext(ctx).
		Preload("Products", orderByID).
		Preload("Tags", orderByID).
		Order("id ASC").
		Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *GormRepo) GetShop(ctx context.Context, id uint) (*models.Shop, error) {
	var shop models.Shop
	if err := r.DB.WithContext(ctx).
		Preload("Products", orderByID).
		Preload("Tags", orderByID).
		First(&shop, id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *GormRepo) ShopExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) CreateShop(ctx context.Context, shop *models.Shop) error {
	return r.create(ctx, shop, ErrShopAlreadyExist)
}

// DeleteShop removes the shop with its products, tags and their links, and
// returns the IDs of the removed products.
func (r *GormRepo) DeleteShop(ctx context.Context, id uint) ([]uint, error) {
	var productIDs []uint
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var shop models.Shop
		if err := tx.First(&shop, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Product{}).Where("shop_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
			return err
		}

		products := tx.Model(&models.Product{}).Select("id").Where("shop_id = ?", id)
		tags := tx.Model(&models.Tag{}).Select("id").Where("shop_id = ?", id)
		if err := tx.Exec("DELETE FROM products_tags WHERE product_id IN (?) OR tag_id IN (?)", products, tags).Error; err != nil {
			return err
		}

		if err := tx.Where("shop_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shop_id = ?", id).Delete(&models.Tag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&shop).Error
	})
	if err != nil {
		return nil, err
	}
	return productIDs, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
