package repositories

import (
	"context"
	"errors"
	"fmt"

	"partstream/fitment-engine/internal/fitment"
	gormModels "partstream/fitment-engine/internal/models/gorm"

	"gorm.io/gorm"
)

// ProductRef is the resolved reference the fitment core needs from the
// catalog: identity plus the denormalized display name.
type ProductRef struct {
	ID   string
	Name string
}

// ProductResolver looks up product references. The catalog is owned by the
// surrounding admin app; imports and mapping creation only resolve ids.
type ProductResolver interface {
	ResolveProduct(ctx context.Context, productID string) (*ProductRef, error)
}

// ProductRepo resolves products from the shared catalog tables.
type ProductRepo struct {
	db *gorm.DB
}

var _ ProductResolver = (*ProductRepo)(nil)

// NewProductRepo creates a new GORM-based product repository
func NewProductRepo(db *gorm.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

// ResolveProduct returns the reference for an active product, matching by
// primary id or SKU. Unknown references yield fitment.ErrNotFound.
func (r *ProductRepo) ResolveProduct(ctx context.Context, productID string) (*ProductRef, error) {
	var product gormModels.Product

	err := r.db.WithContext(ctx).
		Where("(id = ? OR sku = ?) AND is_active = ?", productID, productID, true).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, fitment.ErrNotFound)
		}
		return nil, storeFailure("failed to resolve product", err)
	}

	return &ProductRef{ID: product.ID, Name: product.Name}, nil
}
