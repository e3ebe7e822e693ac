package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"partstream/fitment-engine/internal/common"
	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/db/repositories"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/importer"
	"partstream/fitment-engine/internal/logging"
	"partstream/fitment-engine/internal/metrics"
	"partstream/fitment-engine/internal/models/dtos"
	gormModels "partstream/fitment-engine/internal/models/gorm"

	"gorm.io/gorm"
)

const productCacheTTL = 5 * time.Minute

// ImportService ingests ACES catalog-exchange files and reconciles them with
// the mapping store. Partial progress is durable: rows upserted before a
// later failure stay committed — catalog files are large and imperfect, so
// maximal ingestion beats all-or-nothing atomicity here.
type ImportService struct {
	db       *gorm.DB
	mappings *repositories.MappingRepo
	history  *repositories.HistoryRepo
	products repositories.ProductResolver
	cache    common.CacheInterface
	metrics  *metrics.MetricsRegistry
}

// NewImportService creates the ACES import pipeline
func NewImportService(
	db *gorm.DB,
	mappings *repositories.MappingRepo,
	history *repositories.HistoryRepo,
	products repositories.ProductResolver,
	cache common.CacheInterface,
	metricsReg *metrics.MetricsRegistry,
) *ImportService {
	return &ImportService{
		db:       db,
		mappings: mappings,
		history:  history,
		products: products,
		cache:    cache,
		metrics:  metricsReg,
	}
}

// ImportFromFile streams the file row by row and applies the conflict
// policy. The returned report enumerates every skipped row with a reason.
// Status is failed only when the file itself cannot be opened or read;
// per-row problems yield completed-with-errors. Cancellation is checked
// once per row; already committed rows remain.
func (svc *ImportService) ImportFromFile(ctx context.Context, path string, params dtos.ImportParams, actorID string) (*dtos.ImportReport, error) {
	report := &dtos.ImportReport{
		FilePath:  path,
		DryRun:    params.DryRun,
		StartedAt: time.Now().UTC(),
	}

	if err := validateActor(actorID); err != nil {
		return nil, err
	}
	if err := params.Normalize(); err != nil {
		return nil, &fitment.ValidationError{Field: "params", Reason: err.Error()}
	}

	f, err := os.Open(path)
	if err != nil {
		report.Finish()
		report.Status = constants.ImportFailed
		return report, &fitment.ImportError{Path: path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	var rowCh <-chan importer.Row
	var errCh <-chan error

	if strings.EqualFold(filepath.Ext(path), ".xml") {
		rowCh, errCh = importer.StreamXML(ctx, f, params.Schema.RowElement)
	} else {
		delim, _ := utf8.DecodeRuneInString(params.Schema.Delimiter)
		rowCh, errCh = importer.StreamDelimited(ctx, f, delim)
	}

	logging.Info("import started",
		"path", path,
		"policy", string(params.ConflictPolicy),
		"trusted", params.TrustedSource,
		"dry_run", params.DryRun,
	)

	for row := range rowCh {
		if ctx.Err() != nil {
			break
		}
		report.TotalRows++
		svc.processRow(ctx, row, params, actorID, report)
	}

	if streamErr := <-errCh; streamErr != nil {
		if report.TotalRows == 0 && !errors.Is(streamErr, context.Canceled) {
			// Nothing was readable: a catalog-level structural failure.
			report.Finish()
			report.Status = constants.ImportFailed
			return report, &fitment.ImportError{Path: path, Reason: "file is unparseable", Err: streamErr}
		}
		report.SkipRow(report.TotalRows+1, fmt.Sprintf("stream ended early: %v", streamErr))
	}

	report.Finish()

	if svc.metrics != nil {
		svc.metrics.ImportRowsTotal.WithLabelValues("created").Add(float64(report.Created))
		svc.metrics.ImportRowsTotal.WithLabelValues("merged").Add(float64(report.Merged))
		svc.metrics.ImportRowsTotal.WithLabelValues("skipped").Add(float64(len(report.Skipped)))
		svc.metrics.ImportDuration.Observe(float64(report.ElapsedMS) / 1000.0)
	}

	logging.Info("import finished",
		"path", path,
		"status", string(report.Status),
		"rows", report.TotalRows,
		"created", report.Created,
		"merged", report.Merged,
		"skipped", len(report.Skipped),
		"elapsed_ms", report.ElapsedMS,
	)

	return report, nil
}

// processRow handles a single parsed row; failures are recorded in the
// report, never propagated — a bad row must not abort the import.
func (svc *ImportService) processRow(ctx context.Context, row importer.Row, params dtos.ImportParams, actorID string, report *dtos.ImportReport) {
	if row.Err != nil {
		report.SkipRow(row.Num, row.Err.Error())
		return
	}

	productID, criteria, err := importer.DecodeRow(&params.Schema, row.Fields)
	if err != nil {
		report.SkipRow(row.Num, err.Error())
		return
	}
	if productID == "" {
		report.SkipRow(row.Num, "row does not reference a product")
		return
	}
	if criteria.IsZero() {
		report.SkipRow(row.Num, "row carries no fitment constraints")
		return
	}

	ref, err := svc.resolveProductCached(ctx, productID)
	if err != nil {
		if errors.Is(err, fitment.ErrNotFound) {
			report.SkipRow(row.Num, fmt.Sprintf("unknown product %q", productID))
		} else {
			report.SkipRow(row.Num, fmt.Sprintf("product lookup failed: %v", err))
		}
		return
	}

	overlapping, err := svc.mappings.FindByCriteriaOverlap(ctx, ref.ID, criteria)
	if err != nil {
		report.SkipRow(row.Num, fmt.Sprintf("overlap lookup failed: %v", err))
		return
	}

	if len(overlapping) == 0 {
		if params.DryRun {
			report.Created++
			return
		}
		if err := svc.createFromRow(ctx, ref, criteria, params, actorID); err != nil {
			report.SkipRow(row.Num, fmt.Sprintf("create failed: %v", err))
			return
		}
		report.Created++
		return
	}

	existing := overlapping[0]

	switch params.ConflictPolicy {
	case constants.PolicySkipDuplicates:
		report.SkipRow(row.Num, fmt.Sprintf("duplicate of mapping %s", existing.ID))
	case constants.PolicyMergeDuplicates, constants.PolicyOverwrite:
		if params.DryRun {
			report.Merged++
			return
		}
		if err := svc.reconcileRow(ctx, &existing, criteria, params, actorID); err != nil {
			report.SkipRow(row.Num, fmt.Sprintf("merge failed: %v", err))
			return
		}
		report.Merged++
	}
}

// createFromRow inserts a fresh system-import mapping; a trusted source
// validates it in the same transaction, emitting both entries.
func (svc *ImportService) createFromRow(ctx context.Context, ref *repositories.ProductRef, criteria fitment.Criteria, params dtos.ImportParams, actorID string) error {
	state := fitment.StateUnvalidated
	if params.TrustedSource {
		state = fitment.StateValidated
	}

	mapping := &gormModels.FitmentMapping{
		ProductID:       ref.ID,
		ProductName:     ref.Name,
		Criteria:        gormModels.Criteria(criteria),
		ValidationState: state,
		IsValidated:     state.IsValidated(),
		IsManual:        false,
		Source:          constants.SourceSystemImport,
		CreatedBy:       actorID,
		UpdatedBy:       actorID,
	}

	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.mappings.WithTx(tx).Create(ctx, mapping); err != nil {
			return err
		}
		hist := svc.history.WithTx(tx)
		err := hist.Append(ctx, &gormModels.MappingHistoryEntry{
			MappingID: mapping.ID,
			Actor:     actorID,
			Kind:      constants.ChangeCreated,
			Changes: gormModels.FieldChanges{
				"product_id":       {New: mapping.ProductID},
				"fitment_criteria": {New: criteria.String()},
			},
		})
		if err != nil {
			return err
		}
		if params.TrustedSource {
			return hist.Append(ctx, &gormModels.MappingHistoryEntry{
				MappingID: mapping.ID,
				Actor:     actorID,
				Kind:      constants.ChangeValidated,
				Changes: gormModels.FieldChanges{
					"validation_state": {
						Old: string(fitment.StateUnvalidated),
						New: string(fitment.StateValidated),
					},
				},
			})
		}
		return nil
	})
}

// reconcileRow merges or overwrites the row into an existing mapping per the
// conflict policy. Field changes and the trusted-source validation each emit
// their history entry; an identical row writes nothing (idempotent re-import).
func (svc *ImportService) reconcileRow(ctx context.Context, existing *gormModels.FitmentMapping, criteria fitment.Criteria, params dtos.ImportParams, actorID string) error {
	var next fitment.Criteria
	if params.ConflictPolicy == constants.PolicyOverwrite {
		next = criteria
	} else {
		next = existing.Criteria.Fitment().Merge(criteria)
	}

	changes := make(gormModels.FieldChanges)
	if !existing.Criteria.Fitment().Equal(next) {
		changes["fitment_criteria"] = gormModels.FieldChange{
			Old: existing.Criteria.Fitment().String(),
			New: next.String(),
		}
		existing.Criteria = gormModels.Criteria(next)
	}

	var transition fitment.Transition
	if params.TrustedSource && existing.ValidationState != fitment.StateValidated {
		transition = fitment.TransitionTrustedImport
	}

	if len(changes) == 0 && transition == "" {
		return nil
	}

	// An untrusted feed that alters a Validated mapping invalidates the
	// earlier confirmation: the edit reset fires exactly as it does for a
	// manual update, and the state diff rides the same updated entry.
	if len(changes) > 0 && !params.TrustedSource && existing.ValidationState == fitment.StateValidated {
		nextState, err := fitment.Apply(existing.ValidationState, fitment.TransitionEditReset)
		if err != nil {
			return err
		}
		changes["validation_state"] = gormModels.FieldChange{
			Old: string(existing.ValidationState),
			New: string(nextState),
		}
		existing.ValidationState = nextState
		existing.IsValidated = nextState.IsValidated()
	}

	transitionChanges := make(gormModels.FieldChanges)
	if transition != "" {
		nextState, err := fitment.Apply(existing.ValidationState, transition)
		if err != nil {
			return err
		}
		transitionChanges["validation_state"] = gormModels.FieldChange{
			Old: string(existing.ValidationState),
			New: string(nextState),
		}
		existing.ValidationState = nextState
		existing.IsValidated = nextState.IsValidated()

		// A trusted validation carries provenance with it.
		if existing.Source != constants.SourceSystemImport {
			transitionChanges["source"] = gormModels.FieldChange{
				Old: string(existing.Source),
				New: string(constants.SourceSystemImport),
			}
			existing.Source = constants.SourceSystemImport
		}
	}
	existing.UpdatedBy = actorID

	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := svc.mappings.WithTx(tx).Update(ctx, existing); err != nil {
			return err
		}
		hist := svc.history.WithTx(tx)
		if len(changes) > 0 {
			err := hist.Append(ctx, &gormModels.MappingHistoryEntry{
				MappingID: existing.ID,
				Actor:     actorID,
				Kind:      constants.ChangeUpdated,
				Changes:   changes,
			})
			if err != nil {
				return err
			}
		}
		if transition != "" {
			return hist.Append(ctx, &gormModels.MappingHistoryEntry{
				MappingID: existing.ID,
				Actor:     actorID,
				Kind:      transition.ChangeKind(),
				Changes:   transitionChanges,
			})
		}
		return nil
	})
}

// resolveProductCached memoizes product lookups for the duration of a run —
// catalog files repeat the same part thousands of times.
func (svc *ImportService) resolveProductCached(ctx context.Context, productID string) (*repositories.ProductRef, error) {
	if svc.cache == nil {
		return svc.products.ResolveProduct(ctx, productID)
	}

	key := string(constants.CachePrefixProduct) + productID
	val, err := svc.cache.GetOrSet(key, productCacheTTL, func() (any, error) {
		return svc.products.ResolveProduct(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	if ref, ok := val.(*repositories.ProductRef); ok {
		return ref, nil
	}

	// The Redis backend round-trips values through JSON and hands back a
	// generic document; reshape it into the typed reference.
	raw, err := json.Marshal(val)
	if err != nil {
		return svc.products.ResolveProduct(ctx, productID)
	}
	var ref repositories.ProductRef
	if err := json.Unmarshal(raw, &ref); err != nil || ref.ID == "" {
		return svc.products.ResolveProduct(ctx, productID)
	}
	return &ref, nil
}
