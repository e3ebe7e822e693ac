package services

import (
	"context"
	"errors"
	"testing"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/db/repositories"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/models/dtos"
	gormModels "partstream/fitment-engine/internal/models/gorm"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Mock ProductResolver
type mockProductResolver struct {
	resolveProductFunc func(ctx context.Context, idOrSKU string) (*repositories.ProductRef, error)
}

func (m *mockProductResolver) ResolveProduct(ctx context.Context, idOrSKU string) (*repositories.ProductRef, error) {
	return m.resolveProductFunc(ctx, idOrSKU)
}

func knownProducts(ids ...string) *mockProductResolver {
	return &mockProductResolver{
		resolveProductFunc: func(ctx context.Context, idOrSKU string) (*repositories.ProductRef, error) {
			for _, id := range ids {
				if id == idOrSKU {
					return &repositories.ProductRef{ID: id, Name: "Part " + id}, nil
				}
			}
			return nil, fitment.ErrNotFound
		},
	}
}

// Setup test database
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&gormModels.Product{},
		&gormModels.FitmentMapping{},
		&gormModels.MappingHistoryEntry{},
		&gormModels.ImportJob{},
	); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func newMappingService(db *gorm.DB, products repositories.ProductResolver) *MappingService {
	return NewMappingService(db, repositories.NewMappingRepo(db), repositories.NewHistoryRepo(db), products)
}

func listHistory(t *testing.T, svc *MappingService, mappingID string) []*dtos.HistoryEntryResponse {
	t.Helper()
	page, err := svc.GetMappingHistory(context.Background(), mappingID, 1, 50)
	if err != nil {
		t.Fatalf("GetMappingHistory: %v", err)
	}
	return page.Items
}

func TestMappingService_CreateMapping_Defaults(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford", Model: "F-150", YearFrom: 2010, YearTo: 2012},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	if mapping.ValidationState != fitment.StateUnvalidated || mapping.IsValidated {
		t.Error("new mappings must start unvalidated")
	}
	if !mapping.IsManual || mapping.Source != constants.SourceManualEntry {
		t.Errorf("expected manual-entry provenance, got manual=%v source=%s", mapping.IsManual, mapping.Source)
	}
	if mapping.Version != 1 {
		t.Errorf("expected version 1, got %d", mapping.Version)
	}
	if mapping.ProductName != "Part prod-1" {
		t.Errorf("expected denormalized product name, got %q", mapping.ProductName)
	}

	entries := listHistory(t, svc, mapping.ID)
	if len(entries) != 1 || entries[0].Kind != constants.ChangeCreated {
		t.Fatalf("expected exactly one created entry, got %d", len(entries))
	}
	if entries[0].Actor != "alice" {
		t.Errorf("expected actor alice, got %s", entries[0].Actor)
	}
}

func TestMappingService_CreateMapping_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	var validationErr *fitment.ValidationError

	_, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{ProductID: "prod-1", Criteria: fitment.Criteria{Make: "Ford"}}, "")
	if !errors.As(err, &validationErr) {
		t.Errorf("missing actor must be a validation error, got %v", err)
	}

	_, err = svc.CreateMapping(ctx, dtos.CreateMappingRequest{ProductID: "prod-1"}, "alice")
	if !errors.As(err, &validationErr) {
		t.Errorf("empty criteria must be a validation error, got %v", err)
	}

	_, err = svc.CreateMapping(ctx, dtos.CreateMappingRequest{ProductID: "nope", Criteria: fitment.Criteria{Make: "Ford"}}, "alice")
	if !errors.Is(err, fitment.ErrNotFound) {
		t.Errorf("unknown product must be not found, got %v", err)
	}
}

func TestMappingService_CreateMapping_DeduplicatesOverlap(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	first, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford", Model: "F-150", YearFrom: 2010, YearTo: 2012},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	// Overlapping years for the same product: return the existing record.
	second, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford", Model: "F-150", YearFrom: 2011, YearTo: 2014},
	}, "bob")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	if second.ID != first.ID {
		t.Error("overlapping create must return the existing mapping")
	}

	entries := listHistory(t, svc, first.ID)
	if len(entries) != 1 {
		t.Errorf("dedup must not write history, got %d entries", len(entries))
	}

	// Disjoint criteria create a second record.
	third, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford", Model: "F-150", YearFrom: 2016, YearTo: 2018},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	if third.ID == first.ID {
		t.Error("disjoint criteria must create a new mapping")
	}
}

func TestMappingService_UpdateMapping_ResetsValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford", Model: "F-150"},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}
	if _, err := svc.ValidateMapping(ctx, mapping.ID, "bob"); err != nil {
		t.Fatalf("ValidateMapping: %v", err)
	}

	newCriteria := fitment.Criteria{Make: "Ford", Model: "F-250"}
	updated, err := svc.UpdateMapping(ctx, mapping.ID, dtos.UpdateMappingRequest{
		Criteria: &newCriteria,
		Version:  2,
	}, "alice")
	if err != nil {
		t.Fatalf("UpdateMapping: %v", err)
	}

	if updated.ValidationState != fitment.StateUnvalidated || updated.IsValidated {
		t.Error("any field edit must reset a validated mapping to unvalidated")
	}
	if updated.Version != 3 {
		t.Errorf("expected version 3, got %d", updated.Version)
	}

	entries := listHistory(t, svc, mapping.ID)
	// created, validated, updated — newest first.
	if len(entries) != 3 || entries[0].Kind != constants.ChangeUpdated {
		t.Fatalf("expected updated entry on top, got %d entries", len(entries))
	}
	change, ok := entries[0].Changes["validation_state"]
	if !ok {
		t.Fatal("edit reset must record the state flip inside the updated entry")
	}
	if change.Old != string(fitment.StateValidated) || change.New != string(fitment.StateUnvalidated) {
		t.Errorf("unexpected state diff: %+v", change)
	}
	if _, ok := entries[0].Changes["fitment_criteria"]; !ok {
		t.Error("criteria diff missing from the updated entry")
	}
}

func TestMappingService_UpdateMapping_NoopWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	crit := fitment.Criteria{Make: "Ford", Model: "F-150"}
	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{ProductID: "prod-1", Criteria: crit}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	updated, err := svc.UpdateMapping(ctx, mapping.ID, dtos.UpdateMappingRequest{Criteria: &crit, Version: 1}, "alice")
	if err != nil {
		t.Fatalf("UpdateMapping: %v", err)
	}
	if updated.Version != 1 {
		t.Errorf("no-op update must not bump the version, got %d", updated.Version)
	}
	if entries := listHistory(t, svc, mapping.ID); len(entries) != 1 {
		t.Errorf("no-op update must not write history, got %d entries", len(entries))
	}
}

func TestMappingService_UpdateMapping_StaleVersionConflicts(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford"},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	critA := fitment.Criteria{Make: "Ford", Model: "F-150"}
	if _, err := svc.UpdateMapping(ctx, mapping.ID, dtos.UpdateMappingRequest{Criteria: &critA, Version: 1}, "alice"); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Second writer still holds base version 1.
	critB := fitment.Criteria{Make: "Ford", Model: "F-250"}
	_, err = svc.UpdateMapping(ctx, mapping.ID, dtos.UpdateMappingRequest{Criteria: &critB, Version: 1}, "bob")
	if !errors.Is(err, fitment.ErrConflict) {
		t.Errorf("expected ErrConflict for stale base version, got %v", err)
	}

	got, _ := svc.GetMapping(ctx, mapping.ID)
	if got.Criteria.Fitment().Model != "F-150" {
		t.Errorf("losing write must not land, got %s", got.Criteria.Fitment().Model)
	}
}

func TestMappingService_SameBaseVersion_OneWins(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford"},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	// Every writer read the mapping at version 1 before any of them wrote.
	models := []string{"F-150", "F-250", "F-350", "Ranger"}
	winners := 0
	for _, model := range models {
		crit := fitment.Criteria{Make: "Ford", Model: model}
		_, err := svc.UpdateMapping(ctx, mapping.ID, dtos.UpdateMappingRequest{Criteria: &crit, Version: 1}, "racer")
		switch {
		case err == nil:
			winners++
		case errors.Is(err, fitment.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("exactly one concurrent update against the same base must win, got %d", winners)
	}
}

func TestMappingService_ValidateInvalidate_HistoryKinds(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford"},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	validated, err := svc.ValidateMapping(ctx, mapping.ID, "bob")
	if err != nil {
		t.Fatalf("ValidateMapping: %v", err)
	}
	if !validated.IsValidated {
		t.Error("expected validated flag set")
	}

	// Re-validating is illegal.
	var validationErr *fitment.ValidationError
	if _, err := svc.ValidateMapping(ctx, mapping.ID, "bob"); !errors.As(err, &validationErr) {
		t.Errorf("re-validation must fail with a validation error, got %v", err)
	}

	invalidated, err := svc.InvalidateMapping(ctx, mapping.ID, "carol")
	if err != nil {
		t.Fatalf("InvalidateMapping: %v", err)
	}
	if invalidated.ValidationState != fitment.StateInvalidated || invalidated.IsValidated {
		t.Error("expected invalidated state")
	}

	entries := listHistory(t, svc, mapping.ID)
	if len(entries) != 3 {
		t.Fatalf("expected created+validated+invalidated, got %d", len(entries))
	}
	if entries[0].Kind != constants.ChangeInvalidated || entries[1].Kind != constants.ChangeValidated {
		t.Errorf("unexpected history order: %s, %s", entries[0].Kind, entries[1].Kind)
	}
}

func TestMappingService_DeleteMapping_HistorySurvives(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1"))
	ctx := context.Background()

	mapping, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
		ProductID: "prod-1",
		Criteria:  fitment.Criteria{Make: "Ford"},
	}, "alice")
	if err != nil {
		t.Fatalf("CreateMapping: %v", err)
	}

	if err := svc.DeleteMapping(ctx, mapping.ID, "bob"); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}

	if _, err := svc.GetMapping(ctx, mapping.ID); !errors.Is(err, fitment.ErrNotFound) {
		t.Errorf("deleted mapping must read as absent, got %v", err)
	}
	if err := svc.DeleteMapping(ctx, mapping.ID, "bob"); !errors.Is(err, fitment.ErrNotFound) {
		t.Errorf("double delete must be not found, got %v", err)
	}

	// The ledger outlives the mapping.
	entries := listHistory(t, svc, mapping.ID)
	if len(entries) != 2 || entries[0].Kind != constants.ChangeDeleted {
		t.Fatalf("expected deleted entry on top of surviving history, got %d entries", len(entries))
	}
	if entries[0].Changes["fitment_criteria"].Old == nil {
		t.Error("deleted entry must snapshot the removed criteria")
	}
}

func TestMappingService_SearchMappings_PageEnvelope(t *testing.T) {
	db := setupTestDB(t)
	svc := newMappingService(db, knownProducts("prod-1", "prod-2"))
	ctx := context.Background()

	for i, prod := range []string{"prod-1", "prod-2"} {
		_, err := svc.CreateMapping(ctx, dtos.CreateMappingRequest{
			ProductID: prod,
			Criteria:  fitment.Criteria{Make: "Ford", YearFrom: 2000 + i, YearTo: 2000 + i},
		}, "alice")
		if err != nil {
			t.Fatalf("CreateMapping: %v", err)
		}
	}

	page, err := svc.SearchMappings(ctx, dtos.SearchMappingsQuery{PageSize: 1000})
	if err != nil {
		t.Fatalf("SearchMappings: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Errorf("expected 2 mappings, got total=%d items=%d", page.Total, len(page.Items))
	}
	if page.Page != 1 || page.PageSize != constants.MaxPageSize {
		t.Errorf("expected clamped envelope, got page=%d size=%d", page.Page, page.PageSize)
	}
}
