package models

import (
	"time"

	"github.com/google/uuid"
)

// Tool is a stock-tracked inventory item. Quantity is the on-hand count and
// never goes negative; deductions happen only through guarded updates.
type Tool struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;type:text;not null;uniqueIndex"`
	Description *string    `gorm:"column:description"`
	Quantity    int        `gorm:"column:quantity;not null;default:0"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Category    *ToolCategory
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
