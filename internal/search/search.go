// Package search keeps a full-text index of products. Elasticsearch is used when
// configured; otherwise queries fall back to the catalog database.
package search

import (
	"context"

	"github.com/Skotchmaster/shops_api/internal/models"
)

type Index interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type ProductSearcher interface {
	SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error)
}

// DBIndex answers queries straight from the database, so indexing is a no-op.
type DBIndex struct {
	Repo ProductSearcher
}

func (DBIndex) IndexProduct(context.Context, *models.Product) error { return nil }
func (DBIndex) DeleteProduct(context.Context, uint) error           { return nil }

func (d DBIndex) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	return d.Repo.SearchProducts(ctx, query, from, size)
}
