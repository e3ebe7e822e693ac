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

// FieldChange captures the old and new value of one changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// FieldChanges stores the per-field diff of a mutation as JSONB.
type FieldChanges map[string]FieldChange

// Scan implements the sql.Scanner interface for FieldChanges
func (fc *FieldChanges) Scan(value interface{}) error {
	if value == nil {
		*fc = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported changes column type %T", value)
	}
	return json.Unmarshal(data, fc)
}

// Value implements the driver.Valuer interface for FieldChanges
func (fc FieldChanges) Value() (driver.Value, error) {
	if fc == nil {
		return nil, nil
	}
	return json.Marshal(fc)
}

// MappingHistoryEntry is one append-only audit record for a mapping
// mutation. MappingID is a weak reference: the mapping row may be deleted
// later, its history persists. Entries are never updated or deleted.
//
// Seq is the insertion sequence and, together with created_at, gives readers
// a total order per mapping.
type MappingHistoryEntry struct {
	Seq       int64                `gorm:"column:seq;primaryKey;autoIncrement"`
	ID        string               `gorm:"column:id;type:uuid;uniqueIndex"`
	MappingID string               `gorm:"column:mapping_id;index;not null"`
	Actor     string               `gorm:"column:actor;not null"`
	Kind      constants.ChangeKind `gorm:"column:kind;type:varchar(20);not null"`
	Changes   FieldChanges         `gorm:"column:changes;type:jsonb"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (MappingHistoryEntry) TableName() string {
	return "mapping_history"
}

func (e *MappingHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
