package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/fitment"
	gormModels "partstream/fitment-engine/internal/models/gorm"
	"partstream/fitment-engine/internal/models/dtos"

	"gorm.io/gorm"
)

// ImportJobRepo persists import job records so asynchronous imports stay
// observable after dispatch.
type ImportJobRepo struct {
	db *gorm.DB
}

// NewImportJobRepo creates a new GORM-based import job repository
func NewImportJobRepo(db *gorm.DB) *ImportJobRepo {
	return &ImportJobRepo{db: db}
}

// Create registers a pending job.
func (r *ImportJobRepo) Create(ctx context.Context, job *gormModels.ImportJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return storeFailure("failed to create import job", err)
	}
	return nil
}

// GetByID fetches a job record.
func (r *ImportJobRepo) GetByID(ctx context.Context, id string) (*gormModels.ImportJob, error) {
	var job gormModels.ImportJob

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import job %s: %w", id, fitment.ErrNotFound)
		}
		return nil, storeFailure("failed to fetch import job", err)
	}
	return &job, nil
}

// MarkRunning flips a pending job to running and stamps the start time.
func (r *ImportJobRepo) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&gormModels.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     constants.ImportRunning,
			"started_at": now,
		}).Error

	if err != nil {
		return storeFailure("failed to mark import job running", err)
	}
	return nil
}

// Finish stores the terminal status and the serialized report.
func (r *ImportJobRepo) Finish(ctx context.Context, id string, report *dtos.ImportReport, runErr error) error {
	now := time.Now().UTC()

	updates := map[string]interface{}{
		"status":      constants.ImportFailed,
		"finished_at": now,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if report != nil {
		updates["status"] = report.Status
		raw, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal import report: %w", err)
		}
		var doc gormModels.JSONB
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to encode import report: %w", err)
		}
		updates["report"] = doc
	}

	err := r.db.WithContext(ctx).
		Model(&gormModels.ImportJob{}).
		Where("id = ?", id).
		Updates(updates).Error

	if err != nil {
		return storeFailure("failed to finish import job", err)
	}
	return nil
}

// ParseReport decodes the stored report document, if any.
func ParseReport(doc gormModels.JSONB) (*dtos.ImportReport, error) {
	if doc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report document: %w", err)
	}
	var report dtos.ImportReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report document: %w", err)
	}
	return &report, nil
}
