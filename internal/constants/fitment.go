package constants

// MappingSource is the provenance of a fitment mapping.
type MappingSource string

const (
	SourceSystemImport MappingSource = "system-import"
	SourceManualEntry  MappingSource = "manual-entry"
	SourceMigrated     MappingSource = "migrated"
)

// ChangeKind classifies a mapping history entry.
type ChangeKind string

const (
	ChangeCreated     ChangeKind = "created"
	ChangeUpdated     ChangeKind = "updated"
	ChangeValidated   ChangeKind = "validated"
	ChangeInvalidated ChangeKind = "invalidated"
	ChangeDeleted     ChangeKind = "deleted"
)

// ConflictPolicy controls how the import pipeline treats rows that overlap
// an existing mapping for the same product.
type ConflictPolicy string

const (
	PolicySkipDuplicates  ConflictPolicy = "skip-duplicates"
	PolicyMergeDuplicates ConflictPolicy = "merge-duplicates"
	PolicyOverwrite       ConflictPolicy = "overwrite"
)

// ImportStatus is the terminal (or in-flight) status of an import job.
type ImportStatus string

const (
	ImportPending             ImportStatus = "pending"
	ImportRunning             ImportStatus = "running"
	ImportCompleted           ImportStatus = "completed"
	ImportCompletedWithErrors ImportStatus = "completed-with-errors"
	ImportFailed              ImportStatus = "failed"
)
