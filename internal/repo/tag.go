package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shops_api/internal/models"
)

func (r *GormRepo) GetShopTags(ctx context.Context, shopID uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.DB.WithContext(ctx).
		Preload("Shop").
		Where("shop_id = ?", shopID).
		Order("id ASC").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *GormRepo) CreateTag(ctx context.Context, tag *models.Tag) error {
	return r.create(ctx, tag, ErrTagAlreadyExist)
}

func (r *GormRepo) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.DB.WithContext(ctx).
		Preload("Shop").
		Preload("Products", orderByID).
		First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *GormRepo) DeleteTag(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.First(&tag, id).Error; err != nil {
			return err
		}

		var links int64
		if err := tx.Table("products_tags").Where("tag_id = ?", id).Count(&links).Error; err != nil {
			return err
		}
		if links > 0 {
			return ErrTagInUse
		}

		return tx.Delete(&tag).Error
	})
}

// LinkTag is a no-op when the pair is already linked.
func (r *GormRepo) LinkTag(ctx context.Context, productID, tagID uint) error {
	var tag models.Tag
	if err := r.DB.WithContext(ctx).First(&tag, tagID).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Model(&models.Product{ID: productID}).Association("Tags").Append(&tag)
}

func (r *GormRepo) UnlinkTag(ctx context.Context, productID, tagID uint) error {
	return r.DB.WithContext(ctx).Model(&models.Product{ID: productID}).Association("Tags").Delete(&models.Tag{ID: tagID})
}
