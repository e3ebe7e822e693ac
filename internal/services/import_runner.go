package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"partstream/fitment-engine/internal/db/repositories"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/logging"
	"partstream/fitment-engine/internal/models/dtos"
	gormModels "partstream/fitment-engine/internal/models/gorm"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentImports caps the number of import pipelines running at once.
// Imports over disjoint product sets need no coordination; overlapping ones
// settle conflicts through the row-level version check.
const maxConcurrentImports = 4

// ImportRunner dispatches imports as background work observable through the
// import_jobs table, and supports cooperative cancellation between rows.
type ImportRunner struct {
	baseCtx  context.Context
	group    *errgroup.Group
	importer *ImportService
	jobs     *repositories.ImportJobRepo

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewImportRunner creates the background import dispatcher. baseCtx bounds
// the lifetime of all jobs; shutting the server down cancels them all.
func NewImportRunner(baseCtx context.Context, importer *ImportService, jobs *repositories.ImportJobRepo) *ImportRunner {
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentImports)
	return &ImportRunner{
		baseCtx:  baseCtx,
		group:    g,
		importer: importer,
		jobs:     jobs,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// StartImport registers a job row and launches the pipeline in the
// background. The returned job id is the handle for status lookups and
// cancellation.
func (r *ImportRunner) StartImport(ctx context.Context, path string, params dtos.ImportParams, actorID string) (string, error) {
	if err := params.Normalize(); err != nil {
		return "", &fitment.ValidationError{Field: "params", Reason: err.Error()}
	}

	paramsDoc, err := toJSONB(params)
	if err != nil {
		return "", err
	}

	job := &gormModels.ImportJob{
		FilePath:  path,
		Params:    paramsDoc,
		CreatedBy: actorID,
	}
	if err := r.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithCancel(r.baseCtx)
	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	jobID := job.ID
	// TryGo keeps dispatch non-blocking: errgroup's Go would park the
	// caller until a slot frees once the limit is hit.
	started := r.group.TryGo(func() error {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.cancels, jobID)
			r.mu.Unlock()
		}()

		if err := r.jobs.MarkRunning(jobCtx, jobID); err != nil {
			logging.Error("failed to mark import job running", "job_id", jobID, "error", err.Error())
		}

		report, runErr := r.importer.ImportFromFile(jobCtx, path, params, actorID)
		if runErr != nil {
			logging.Error("import job failed", "job_id", jobID, "error", runErr.Error())
		}

		// Persist the outcome with a fresh context: the job ctx may
		// already be cancelled.
		if err := r.jobs.Finish(context.Background(), jobID, report, runErr); err != nil {
			logging.Error("failed to persist import job result", "job_id", jobID, "error", err.Error())
		}
		return nil
	})
	if !started {
		cancel()
		r.mu.Lock()
		delete(r.cancels, jobID)
		r.mu.Unlock()
		// The row was already registered; close it out so no pending job
		// lingers without an observer.
		if err := r.jobs.Finish(ctx, jobID, nil, fitment.ErrImportBusy); err != nil {
			logging.Error("failed to close rejected import job", "job_id", jobID, "error", err.Error())
		}
		return "", fmt.Errorf("import job %s: %w", jobID, fitment.ErrImportBusy)
	}

	return jobID, nil
}

// CancelImport requests cooperative cancellation of a running job. Rows
// already committed remain valid.
func (r *ImportRunner) CancelImport(jobID string) error {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("running import job %s: %w", jobID, fitment.ErrNotFound)
	}
	cancel()
	return nil
}

// GetJob returns the persisted job with its parsed report.
func (r *ImportRunner) GetJob(ctx context.Context, jobID string) (*dtos.ImportJobResponse, error) {
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	report, err := repositories.ParseReport(job.Report)
	if err != nil {
		return nil, err
	}

	return &dtos.ImportJobResponse{
		ID:         job.ID,
		FilePath:   job.FilePath,
		Status:     job.Status,
		Report:     report,
		Error:      job.Error,
		CreatedBy:  job.CreatedBy,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		CreatedAt:  job.CreatedAt,
	}, nil
}

// Wait blocks until all in-flight imports finish. Called on shutdown.
func (r *ImportRunner) Wait() {
	_ = r.group.Wait()
}

func toJSONB(v any) (gormModels.JSONB, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	var doc gormModels.JSONB
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return doc, nil
}
