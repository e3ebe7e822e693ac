package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/fitment"
	gormModels "partstream/fitment-engine/internal/models/gorm"
	"partstream/fitment-engine/internal/models/dtos"

	"gorm.io/gorm"
)

// MappingRepo is the transactional store for fitment mappings. All mutating
// methods are expected to run inside the transaction the service façade
// opens, so a mapping write and its history entry land atomically.
type MappingRepo struct {
	db *gorm.DB
}

// NewMappingRepo creates a new GORM-based mapping repository
func NewMappingRepo(db *gorm.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *MappingRepo) WithTx(tx *gorm.DB) *MappingRepo {
	return &MappingRepo{db: tx}
}

// Create persists a new mapping.
func (r *MappingRepo) Create(ctx context.Context, m *gormModels.FitmentMapping) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return storeFailure("failed to create mapping", err)
	}
	return nil
}

// GetByID fetches a mapping. Soft-deleted rows are treated as absent.
func (r *MappingRepo) GetByID(ctx context.Context, id string) (*gormModels.FitmentMapping, error) {
	var m gormModels.FitmentMapping

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("mapping %s: %w", id, fitment.ErrNotFound)
		}
		return nil, storeFailure("failed to fetch mapping", err)
	}

	return &m, nil
}

// Update applies the entity via compare-and-swap on the version counter.
// Exactly one of two concurrent updates against the same base version wins;
// the loser gets fitment.ErrConflict and must re-read.
func (r *MappingRepo) Update(ctx context.Context, m *gormModels.FitmentMapping) error {
	res := r.db.WithContext(ctx).
		Model(&gormModels.FitmentMapping{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]interface{}{
			"product_id":       m.ProductID,
			"product_name":     m.ProductName,
			"fitment_criteria": m.Criteria,
			"validation_state": m.ValidationState,
			"is_validated":     m.IsValidated,
			"is_manual":        m.IsManual,
			"source":           m.Source,
			"updated_by":       m.UpdatedBy,
			"version":          m.Version + 1,
		})

	if res.Error != nil {
		return storeFailure("failed to update mapping", res.Error)
	}

	if res.RowsAffected == 0 {
		// Distinguish a stale version from a vanished row.
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return err
		}
		return fmt.Errorf("mapping %s at version %d: %w", m.ID, m.Version, fitment.ErrConflict)
	}

	m.Version++
	return nil
}

// Delete soft-deletes a mapping. History entries keep referencing the id.
func (r *MappingRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&gormModels.FitmentMapping{})

	if res.Error != nil {
		return storeFailure("failed to delete mapping", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mapping %s: %w", id, fitment.ErrNotFound)
	}
	return nil
}

// FindByProduct returns all active mappings for a product.
func (r *MappingRepo) FindByProduct(ctx context.Context, productID string) ([]gormModels.FitmentMapping, error) {
	var mappings []gormModels.FitmentMapping

	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("updated_at DESC, id ASC").
		Find(&mappings).Error

	if err != nil {
		return nil, storeFailure(fmt.Sprintf("failed to fetch mappings for product %s", productID), err)
	}
	return mappings, nil
}

// FindByCriteriaOverlap returns the active mappings for a product whose
// criteria are compatible with the given set. Criteria are opaque JSON to
// the store, so the comparison happens in memory over the product's rows.
func (r *MappingRepo) FindByCriteriaOverlap(ctx context.Context, productID string, criteria fitment.Criteria) ([]gormModels.FitmentMapping, error) {
	candidates, err := r.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var overlapping []gormModels.FitmentMapping
	for _, m := range candidates {
		if m.Criteria.Fitment().Overlaps(criteria) {
			overlapping = append(overlapping, m)
		}
	}
	return overlapping, nil
}

// Search runs the paginated, filtered lookup. productQuery matches the
// product id exactly or the denormalized product name as a case-insensitive
// substring; filters are AND-combined. Ordering is updated_at descending
// with id ascending as tie-break so pagination is deterministic.
func (r *MappingRepo) Search(ctx context.Context, q dtos.SearchMappingsQuery) ([]gormModels.FitmentMapping, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	query := r.db.WithContext(ctx).Model(&gormModels.FitmentMapping{})

	if pq := strings.TrimSpace(q.ProductQuery); pq != "" {
		query = query.Where(
			"product_id = ? OR LOWER(product_name) LIKE ?",
			pq, "%"+strings.ToLower(pq)+"%",
		)
	}
	if q.IsValidated != nil {
		query = query.Where("is_validated = ?", *q.IsValidated)
	}
	if q.IsManual != nil {
		query = query.Where("is_manual = ?", *q.IsManual)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("failed to count mappings", err)
	}

	var mappings []gormModels.FitmentMapping
	err := query.
		Order("updated_at DESC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&mappings).Error

	if err != nil {
		return nil, 0, storeFailure("failed to search mappings", err)
	}
	return mappings, total, nil
}
