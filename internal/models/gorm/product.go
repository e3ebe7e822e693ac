package gorm

import "time"

// Product is the catalog entity mappings point at. The catalog itself is
// owned by the surrounding admin app; this core only resolves references.
type Product struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	SKU       string    `gorm:"column:sku;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Product) TableName() string {
	return "products"
}
