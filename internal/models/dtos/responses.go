package dtos

import (
	"time"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/fitment"
	gormModels "partstream/fitment-engine/internal/models/gorm"
)

// APIResponse is the envelope every handler writes.
type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

// MappingResponse is the external shape of a fitment mapping.
type MappingResponse struct {
	ID              string                  `json:"id"`
	ProductID       string                  `json:"product_id"`
	ProductName     string                  `json:"product_name,omitempty"`
	Criteria        fitment.Criteria        `json:"fitment_criteria"`
	ValidationState fitment.ValidationState `json:"validation_state"`
	IsValidated     bool                    `json:"is_validated"`
	IsManual        bool                    `json:"is_manual"`
	Source          constants.MappingSource `json:"source"`
	Version         int                     `json:"version"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	CreatedBy       string                  `json:"created_by,omitempty"`
	UpdatedBy       string                  `json:"updated_by,omitempty"`
}

// NewMappingResponse converts the persisted entity.
func NewMappingResponse(m *gormModels.FitmentMapping) *MappingResponse {
	return &MappingResponse{
		ID:              m.ID,
		ProductID:       m.ProductID,
		ProductName:     m.ProductName,
		Criteria:        m.Criteria.Fitment(),
		ValidationState: m.ValidationState,
		IsValidated:     m.IsValidated,
		IsManual:        m.IsManual,
		Source:          m.Source,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		CreatedBy:       m.CreatedBy,
		UpdatedBy:       m.UpdatedBy,
	}
}

// HistoryEntryResponse is the external shape of one audit record.
type HistoryEntryResponse struct {
	ID        string                  `json:"id"`
	MappingID string                  `json:"mapping_id"`
	Actor     string                  `json:"actor"`
	Kind      constants.ChangeKind    `json:"kind"`
	Changes   gormModels.FieldChanges `json:"changes,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewHistoryEntryResponse converts the persisted entry.
func NewHistoryEntryResponse(e *gormModels.MappingHistoryEntry) *HistoryEntryResponse {
	return &HistoryEntryResponse{
		ID:        e.ID,
		MappingID: e.MappingID,
		Actor:     e.Actor,
		Kind:      e.Kind,
		Changes:   e.Changes,
		CreatedAt: e.CreatedAt,
	}
}

// Page wraps any offset-paginated list.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}
