package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"partstream/fitment-engine/internal/constants"
	"partstream/fitment-engine/internal/fitment"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Criteria stores fitment.Criteria as a JSONB column.
type Criteria fitment.Criteria

// Scan implements the sql.Scanner interface for Criteria
func (c *Criteria) Scan(value interface{}) error {
	if value == nil {
		*c = Criteria{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported criteria column type %T", value)
	}
	return json.Unmarshal(data, c)
}

// Value implements the driver.Valuer interface for Criteria
func (c Criteria) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Fitment converts the column type back to the domain type.
func (c Criteria) Fitment() fitment.Criteria {
	return fitment.Criteria(c)
}

// FitmentMapping associates a catalog product with vehicle-fitment criteria.
type FitmentMapping struct {
	ID              string                    `gorm:"column:id;primaryKey;type:uuid"`
	ProductID       string                    `gorm:"column:product_id;index;not null"`
	ProductName     string                    `gorm:"column:product_name"`
	Criteria        Criteria                  `gorm:"column:fitment_criteria;type:jsonb;not null"`
	ValidationState fitment.ValidationState   `gorm:"column:validation_state;type:varchar(20);default:'unvalidated'"`
	IsValidated     bool                      `gorm:"column:is_validated;index;default:false"`
	IsManual        bool                      `gorm:"column:is_manual;default:false"`
	Source          constants.MappingSource   `gorm:"column:source;type:varchar(20)"`
	Version         int                       `gorm:"column:version;default:1"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
	CreatedBy       string                    `gorm:"column:created_by"`
	UpdatedBy       string                    `gorm:"column:updated_by"`
	DeletedAt       gorm.DeletedAt            `gorm:"column:deleted_at;index"`
}

// TableName specifies the table name for GORM
func (FitmentMapping) TableName() string {
	return "fitment_mappings"
}

// BeforeCreate generates the mapping ID. IDs are app-generated so the same
// code path works against Postgres and the sqlite test databases.
func (m *FitmentMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ValidationState == "" {
		m.ValidationState = fitment.StateUnvalidated
	}
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
