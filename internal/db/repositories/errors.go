package repositories

import (
	"fmt"

	"partstream/fitment-engine/internal/fitment"
)

// storeFailure classifies an unexpected database error as a store
// availability problem, keeping it distinguishable from domain errors like
// absence or version conflicts.
func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, fitment.ErrStoreUnavailable)
}
