package services

import (
	"context"
	"strings"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/db/repositories"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/logging"
	"partstream/fitment-engine/internal/models/dtos"
	gormModels "partstream/fitment-engine/internal/models/gorm"

	"gorm.io/gorm"
)

// MappingService is the façade external callers go through. Every mutation
// runs in one transaction with its audit entry: either both are visible or
// neither is.
type MappingService struct {
	db       *gorm.DB
	mappings *repositories.MappingRepo
	history  *repositories.HistoryRepo
	products repositories.ProductResolver
}

// NewMappingService creates the mapping service façade
func NewMappingService(
	db *gorm.DB,
	mappings *repositories.MappingRepo,
	history *repositories.HistoryRepo,
	products repositories.ProductResolver,
) *MappingService {
	return &MappingService{
		db:       db,
		mappings: mappings,
		history:  history,
		products: products,
	}
}

// CreateMapping creates a manual-entry mapping. New mappings always start
// Unvalidated. When an active mapping with overlapping criteria already
// exists for the product, that record is returned instead of creating a
// duplicate — this makes create safe to retry.
func (svc *MappingService) CreateMapping(ctx context.Context, req dtos.CreateMappingRequest, actorID string) (*gormModels.FitmentMapping, error) {
	if err := validateActor(actorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, &fitment.ValidationError{Field: "product_id", Reason: "must not be empty"}
	}
	if req.Criteria.IsZero() {
		return nil, &fitment.ValidationError{Field: "fitment_criteria", Reason: "at least one attribute must be constrained"}
	}

	ref, err := svc.products.ResolveProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	existing, err := svc.mappings.FindByCriteriaOverlap(ctx, ref.ID, req.Criteria)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logging.Debug("create mapping deduplicated against existing record",
			"product_id", ref.ID, "mapping_id", existing[0].ID)
		return &existing[0], nil
	}

	mapping := &gormModels.FitmentMapping{
		ProductID:       ref.ID,
		ProductName:     ref.Name,
		Criteria:        gormModels.Criteria(req.Criteria),
		ValidationState: fitment.StateUnvalidated,
		IsValidated:     false,
		IsManual:        true,
		Source:          constants.SourceManualEntry,
		CreatedBy:       actorID,
		UpdatedBy:       actorID,
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.mappings.WithTx(tx).Create(ctx, mapping); err != nil {
			return err
		}
		return svc.history.WithTx(tx).Append(ctx, &gormModels.MappingHistoryEntry{
			MappingID: mapping.ID,
			Actor:     actorID,
			Kind:      constants.ChangeCreated,
			Changes: gormModels.FieldChanges{
				"product_id":       {New: mapping.ProductID},
				"fitment_criteria": {New: req.Criteria.String()},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// UpdateMapping applies field edits against the caller's base version. Any
// field edit of a Validated mapping resets it to Unvalidated, forcing
// re-review; the reset rides in the same updated history entry.
func (svc *MappingService) UpdateMapping(ctx context.Context, mappingID string, req dtos.UpdateMappingRequest, actorID string) (*gormModels.FitmentMapping, error) {
	if err := validateActor(actorID); err != nil {
		return nil, err
	}

	mapping, err := svc.mappings.GetByID(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	if req.Version != 0 {
		// CAS against the version the caller read, not whatever is
		// current — two racing callers with the same base must not
		// both win.
		mapping.Version = req.Version
	}

	changes := make(gormModels.FieldChanges)

	if req.ProductID != nil && *req.ProductID != mapping.ProductID {
		ref, err := svc.products.ResolveProduct(ctx, *req.ProductID)
		if err != nil {
			return nil, err
		}
		changes["product_id"] = gormModels.FieldChange{Old: mapping.ProductID, New: ref.ID}
		mapping.ProductID = ref.ID
		mapping.ProductName = ref.Name
	}
	if req.Criteria != nil {
		if req.Criteria.IsZero() {
			return nil, &fitment.ValidationError{Field: "fitment_criteria", Reason: "at least one attribute must be constrained"}
		}
		if !mapping.Criteria.Fitment().Equal(*req.Criteria) {
			changes["fitment_criteria"] = gormModels.FieldChange{
				Old: mapping.Criteria.Fitment().String(),
				New: req.Criteria.String(),
			}
			mapping.Criteria = gormModels.Criteria(*req.Criteria)
		}
	}

	if len(changes) == 0 {
		return mapping, nil
	}

	if mapping.ValidationState == fitment.StateValidated {
		next, err := fitment.Apply(mapping.ValidationState, fitment.TransitionEditReset)
		if err != nil {
			return nil, err
		}
		changes["validation_state"] = gormModels.FieldChange{
			Old: string(mapping.ValidationState),
			New: string(next),
		}
		mapping.ValidationState = next
		mapping.IsValidated = next.IsValidated()
	}

	mapping.IsManual = true
	mapping.UpdatedBy = actorID

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.mappings.WithTx(tx).Update(ctx, mapping); err != nil {
			return err
		}
		return svc.history.WithTx(tx).Append(ctx, &gormModels.MappingHistoryEntry{
			MappingID: mapping.ID,
			Actor:     actorID,
			Kind:      constants.ChangeUpdated,
			Changes:   changes,
		})
	})
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// ValidateMapping confirms a mapping as accurate.
func (svc *MappingService) ValidateMapping(ctx context.Context, mappingID string, actorID string) (*gormModels.FitmentMapping, error) {
	return svc.transition(ctx, mappingID, fitment.TransitionConfirm, actorID)
}

// InvalidateMapping rejects a mapping from either state.
func (svc *MappingService) InvalidateMapping(ctx context.Context, mappingID string, actorID string) (*gormModels.FitmentMapping, error) {
	return svc.transition(ctx, mappingID, fitment.TransitionReject, actorID)
}

// transition applies one validation state change and emits exactly one
// history entry with the matching kind.
func (svc *MappingService) transition(ctx context.Context, mappingID string, t fitment.Transition, actorID string) (*gormModels.FitmentMapping, error) {
	if err := validateActor(actorID); err != nil {
		return nil, err
	}

	mapping, err := svc.mappings.GetByID(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	next, err := fitment.Apply(mapping.ValidationState, t)
	if err != nil {
		return nil, &fitment.ValidationError{Field: "validation_state", Reason: err.Error()}
	}

	prev := mapping.ValidationState
	mapping.ValidationState = next
	mapping.IsValidated = next.IsValidated()
	mapping.UpdatedBy = actorID

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.mappings.WithTx(tx).Update(ctx, mapping); err != nil {
			return err
		}
		return svc.history.WithTx(tx).Append(ctx, &gormModels.MappingHistoryEntry{
			MappingID: mapping.ID,
			Actor:     actorID,
			Kind:      t.ChangeKind(),
			Changes: gormModels.FieldChanges{
				"validation_state": {Old: string(prev), New: string(next)},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// DeleteMapping removes a mapping. The deleted history entry is written in
// the same transaction, before removal, so the audit trail survives.
func (svc *MappingService) DeleteMapping(ctx context.Context, mappingID string, actorID string) error {
	if err := validateActor(actorID); err != nil {
		return err
	}

	mapping, err := svc.mappings.GetByID(ctx, mappingID)
	if err != nil {
		return err
	}

	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := svc.history.WithTx(tx).Append(ctx, &gormModels.MappingHistoryEntry{
			MappingID: mapping.ID,
			Actor:     actorID,
			Kind:      constants.ChangeDeleted,
			Changes: gormModels.FieldChanges{
				"product_id":       {Old: mapping.ProductID},
				"fitment_criteria": {Old: mapping.Criteria.Fitment().String()},
			},
		})
		if err != nil {
			return err
		}
		return svc.mappings.WithTx(tx).Delete(ctx, mapping.ID)
	})
}

// GetMapping fetches one mapping.
func (svc *MappingService) GetMapping(ctx context.Context, mappingID string) (*gormModels.FitmentMapping, error) {
	return svc.mappings.GetByID(ctx, mappingID)
}

// GetMappingHistory pages through the audit trail, newest first. The lookup
// works for deleted mappings too.
func (svc *MappingService) GetMappingHistory(ctx context.Context, mappingID string, page, pageSize int) (*dtos.Page[*dtos.HistoryEntryResponse], error) {
	entries, total, err := svc.history.ListByMapping(ctx, mappingID, page, pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]*dtos.HistoryEntryResponse, len(entries))
	for i := range entries {
		items[i] = dtos.NewHistoryEntryResponse(&entries[i])
	}
	return &dtos.Page[*dtos.HistoryEntryResponse]{
		Items:    items,
		Page:     maxInt(page, 1),
		PageSize: clampPageSize(pageSize),
		Total:    total,
	}, nil
}

// SearchMappings runs the paginated, filtered lookup.
func (svc *MappingService) SearchMappings(ctx context.Context, q dtos.SearchMappingsQuery) (*dtos.Page[*dtos.MappingResponse], error) {
	mappings, total, err := svc.mappings.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	items := make([]*dtos.MappingResponse, len(mappings))
	for i := range mappings {
		items[i] = dtos.NewMappingResponse(&mappings[i])
	}
	return &dtos.Page[*dtos.MappingResponse]{
		Items:    items,
		Page:     maxInt(q.Page, 1),
		PageSize: clampPageSize(q.PageSize),
		Total:    total,
	}, nil
}

func validateActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return &fitment.ValidationError{Field: "actor", Reason: "acting user identity is required"}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampPageSize(size int) int {
	if size < 1 {
		return constants.DefaultPageSize
	}
	if size > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return size
}
