package dtos

import (
	"time"

	"partstream/fitment-engine/internal/constants"
)

// SkippedRow records one row the pipeline could not apply, with enough
// context for a human to fix the source file.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportReport is the primary failure-visibility channel for bulk imports.
// Every skipped row is enumerated, never just counted.
type ImportReport struct {
	FilePath   string                 `json:"file_path"`
	Status     constants.ImportStatus `json:"status"`
	DryRun     bool                   `json:"dry_run,omitempty"`
	TotalRows  int                    `json:"total_rows"`
	Created    int                    `json:"created"`
	Merged     int                    `json:"merged"`
	Skipped    []SkippedRow           `json:"skipped,omitempty"`
	ElapsedMS  int64                  `json:"elapsed_ms"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// SkipRow appends a skipped-row record.
func (r *ImportReport) SkipRow(row int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Row: row, Reason: reason})
}

// Finish stamps the terminal status: failed is reserved for file-level
// failures and is set by the pipeline directly, so here only the
// row-level distinction remains.
func (r *ImportReport) Finish() {
	r.FinishedAt = time.Now().UTC()
	// Whole milliseconds so the value survives the JSONB round-trip intact.
	r.ElapsedMS = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	if len(r.Skipped) > 0 {
		r.Status = constants.ImportCompletedWithErrors
	} else {
		r.Status = constants.ImportCompleted
	}
}

// ImportJobResponse is the external shape of a persisted import job.
type ImportJobResponse struct {
	ID         string                 `json:"id"`
	FilePath   string                 `json:"file_path"`
	Status     constants.ImportStatus `json:"status"`
	Report     *ImportReport          `json:"report,omitempty"`
	Error      string                 `json:"error,omitempty"`
	CreatedBy  string                 `json:"created_by,omitempty"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
