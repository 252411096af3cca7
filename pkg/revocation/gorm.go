package revocation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedToken rows are hard-deleted by Prune once the token has expired.
type RevokedToken struct {
	ID        uint       `gorm:"primaryKey"`
	JTI       string     `gorm:"column:jti;size:64;uniqueIndex;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
}

// mergeExpirySQL mirrors mergeExpiry: NULL (never) wins, otherwise the later expiry.
const mergeExpirySQL = `CASE
	WHEN excluded.expires_at IS NULL OR revoked_tokens.expires_at IS NULL THEN NULL
	WHEN excluded.expires_at > revoked_tokens.expires_at THEN excluded.expires_at
	ELSE revoked_tokens.expires_at
END`

type Gorm struct {
	DB *gorm.DB
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&RevokedToken{}); err != nil {
		return nil, fmt.Errorf("migrate revoked_tokens: %w", err)
	}
	return &Gorm{DB: db}, nil
}

func (g *Gorm) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	row := RevokedToken{JTI: jti}
	if !expiresAt.IsZero() {
		exp := expiresAt.UTC()
		row.ExpiresAt = &exp
	}
	err := g.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "jti"}},
			DoUpdates: clause.Assignments(map[string]any{"expires_at": gorm.Expr(mergeExpirySQL)}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("db revoke: %w", err)
	}
	return nil
}

func (g *Gorm) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := g.DB.WithContext(ctx).
		Model(&RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("db is_revoked: %w", err)
	}
	return count > 0, nil
}

func (g *Gorm) Prune(ctx context.Context, now time.Time) (int, error) {
	res := g.DB.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).
		Delete(&RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("db prune: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
