package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/db/repositories"
	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/models/dtos"
	gormModels "partstream/fitment-engine/internal/models/gorm"
)

func TestImportRunner_StartImport_RunsToCompletion(t *testing.T) {
	db := setupTestDB(t)
	importSvc := newImportService(db, knownProducts("BP-1001"))
	jobs := repositories.NewImportJobRepo(db)
	runner := NewImportRunner(context.Background(), importSvc, jobs)
	ctx := context.Background()

	path := writeImportFile(t, "feed.csv",
		"PartNumber,Make,Model,YearFrom,YearTo\nBP-1001,Ford,F-150,2010,2012\n")

	jobID, err := runner.StartImport(ctx, path, dtos.ImportParams{Schema: csvSchema()}, "importer")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a job id")
	}

	runner.Wait()

	job, err := runner.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != constants.ImportCompleted {
		t.Errorf("expected completed job, got %s (error: %s)", job.Status, job.Error)
	}
	if job.Report == nil || job.Report.Created != 1 {
		t.Errorf("expected persisted report with 1 created, got %+v", job.Report)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Error("expected start and finish timestamps")
	}
}

func TestImportRunner_StartImport_BadParams(t *testing.T) {
	db := setupTestDB(t)
	importSvc := newImportService(db, knownProducts("BP-1001"))
	runner := NewImportRunner(context.Background(), importSvc, repositories.NewImportJobRepo(db))

	var validationErr *fitment.ValidationError
	_, err := runner.StartImport(context.Background(), "feed.csv", dtos.ImportParams{}, "importer")
	if !errors.As(err, &validationErr) {
		t.Errorf("expected validation error for unbound schema, got %v", err)
	}
}

func TestImportRunner_FailedImportPersistsError(t *testing.T) {
	db := setupTestDB(t)
	importSvc := newImportService(db, knownProducts("BP-1001"))
	jobs := repositories.NewImportJobRepo(db)
	runner := NewImportRunner(context.Background(), importSvc, jobs)
	ctx := context.Background()

	jobID, err := runner.StartImport(ctx, "/nonexistent/feed.csv", dtos.ImportParams{Schema: csvSchema()}, "importer")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	runner.Wait()

	job, err := runner.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != constants.ImportFailed {
		t.Errorf("expected failed job, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("expected the run error to be persisted")
	}
}

func TestImportRunner_CancelImport_UnknownJob(t *testing.T) {
	db := setupTestDB(t)
	importSvc := newImportService(db, knownProducts("BP-1001"))
	runner := NewImportRunner(context.Background(), importSvc, repositories.NewImportJobRepo(db))

	err := runner.CancelImport("no-such-job")
	if !errors.Is(err, fitment.ErrNotFound) {
		t.Errorf("cancelling a job that is not running must be not found, got %v", err)
	}
}

func TestImportRunner_DispatchAtCapacityDoesNotBlock(t *testing.T) {
	db := setupTestDB(t)
	importSvc := newImportService(db, knownProducts("BP-1001"))
	jobs := repositories.NewImportJobRepo(db)
	runner := NewImportRunner(context.Background(), importSvc, jobs)
	ctx := context.Background()

	// Occupy every worker slot so the next dispatch finds no capacity.
	release := make(chan struct{})
	for i := 0; i < maxConcurrentImports; i++ {
		if !runner.group.TryGo(func() error { <-release; return nil }) {
			t.Fatal("expected a free slot while filling the group")
		}
	}

	path := writeImportFile(t, "feed.csv",
		"PartNumber,Make,Model,YearFrom,YearTo\nBP-1001,Ford,F-150,2010,2012\n")

	done := make(chan struct{})
	var jobErr error
	go func() {
		_, jobErr = runner.StartImport(ctx, path, dtos.ImportParams{Schema: csvSchema()}, "importer")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StartImport must return immediately when the runner is saturated")
	}
	if !errors.Is(jobErr, fitment.ErrImportBusy) {
		t.Errorf("expected ErrImportBusy, got %v", jobErr)
	}

	// The registered row must not linger as pending with nothing running it.
	var job gormModels.ImportJob
	if err := db.First(&job).Error; err != nil {
		t.Fatalf("expected the rejected job row to exist: %v", err)
	}
	if job.Status != constants.ImportFailed {
		t.Errorf("rejected dispatch must close its job row, got %s", job.Status)
	}

	close(release)
	runner.Wait()
}
