package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shops_api/internal/models"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrShopAlreadyExist = errors.New("shop already exist")
	ErrTagAlreadyExist  = errors.New("tag already exist in shop")
	ErrTagInUse         = errors.New("tag is linked to products")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// create inserts row in one statement and reports a unique-index clash as dup.
// It relies on the connection being opened with TranslateError.
func (r *GormRepo) create(ctx context.Context, row any, dup error) error {
	err := r.DB.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return dup
	}
	return err
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	if err := r.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
