package repositories

import (
	"testing"

	gormModels "partstream/fitment-engine/internal/models/gorm"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

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
