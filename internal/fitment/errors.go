package fitment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a mapping or product reference is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic-concurrency check fails.
	// The caller must re-read the mapping and retry.
	ErrConflict = errors.New("version conflict")

	// ErrStoreUnavailable is returned when the underlying store is unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrImportBusy is returned when the concurrent-import limit is reached
	// and a new background job cannot be dispatched right now.
	ErrImportBusy = errors.New("too many concurrent imports")
)

// ValidationError reports malformed input on create/update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ImportError reports a catalog-level structural failure, as opposed to
// per-row issues which are captured in the import report.
type ImportError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("import %s: %s", e.Path, e.Reason)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
