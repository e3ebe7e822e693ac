package dtos

import "partstream/fitment-engine/internal/fitment"

// CreateMappingRequest is the body for POST /api/v1/mappings.
type CreateMappingRequest struct {
	ProductID string           `json:"product_id"`
	Criteria  fitment.Criteria `json:"fitment_criteria"`
}

// UpdateMappingRequest is the body for PUT /api/v1/mappings/{id}.
// Only non-nil fields are applied. Version is the base version the caller
// read; the update fails with a conflict when it is stale.
type UpdateMappingRequest struct {
	ProductID *string           `json:"product_id,omitempty"`
	Criteria  *fitment.Criteria `json:"fitment_criteria,omitempty"`
	Version   int               `json:"version"`
}

// ImportRequest is the body for POST /api/v1/imports. FilePath points at a
// catalog-exchange file already staged on the server's filesystem.
type ImportRequest struct {
	FilePath string       `json:"file_path"`
	Params   ImportParams `json:"params"`
}

// SearchMappingsQuery carries the decoded query parameters of
// GET /api/v1/mappings/search.
type SearchMappingsQuery struct {
	ProductQuery string `json:"product_query"`
	IsValidated  *bool  `json:"is_validated,omitempty"`
	IsManual     *bool  `json:"is_manual,omitempty"`
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
}
