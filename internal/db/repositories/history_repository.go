package repositories

import (
	"context"

	"partstream/fitment-engine/internal/constants"
	gormModels "partstream/fitment-engine/internal/models/gorm"

	"gorm.io/gorm"
)

// HistoryRepo is the append-only ledger of mapping mutations. It exposes no
// update or delete: once written, an entry is immutable.
type HistoryRepo struct {
	db *gorm.DB
}

// NewHistoryRepo creates a new GORM-based history repository
func NewHistoryRepo(db *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *HistoryRepo) WithTx(tx *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: tx}
}

// Append writes one audit entry.
func (r *HistoryRepo) Append(ctx context.Context, entry *gormModels.MappingHistoryEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return storeFailure("failed to append history entry", err)
	}
	return nil
}

// ListByMapping returns entries newest-first. The seq tie-break keeps
// entries written in the same timestamp tick in causal order.
func (r *HistoryRepo) ListByMapping(ctx context.Context, mappingID string, page, pageSize int) ([]gormModels.MappingHistoryEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	query := r.db.WithContext(ctx).
		Model(&gormModels.MappingHistoryEntry{}).
		Where("mapping_id = ?", mappingID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("failed to count history entries", err)
	}

	var entries []gormModels.MappingHistoryEntry
	err := query.
		Order("created_at DESC, seq DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&entries).Error

	if err != nil {
		return nil, 0, storeFailure("failed to list history entries", err)
	}
	return entries, total, nil
}
