package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"partstream/fitment-engine/internal/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB holds a free-form JSON document (import params, final report).
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb column type %T", value)
	}
	return json.Unmarshal(data, j)
}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// ImportJob tracks one ACES import run, so fire-and-forget imports are
// observable through a status lookup after dispatch.
type ImportJob struct {
	ID         string                 `gorm:"column:id;primaryKey;type:uuid"`
	FilePath   string                 `gorm:"column:file_path;not null"`
	Status     constants.ImportStatus `gorm:"column:status;type:varchar(30);default:'pending'"`
	Params     JSONB                  `gorm:"column:params;type:jsonb"`
	Report     JSONB                  `gorm:"column:report;type:jsonb"`
	Error      string                 `gorm:"column:error"`
	CreatedBy  string                 `gorm:"column:created_by"`
	StartedAt  *time.Time             `gorm:"column:started_at"`
	FinishedAt *time.Time             `gorm:"column:finished_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ImportJob) TableName() string {
	return "import_jobs"
}

func (j *ImportJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = constants.ImportPending
	}
	return nil
}
