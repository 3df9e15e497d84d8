package models

import (
	"time"

	"github.com/google/uuid"
)

// ToolUsage records consumption of approved stock by a user.
type ToolUsage struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ToolID       uuid.UUID `gorm:"column:tool_id;type:uuid;not null;index"`
	Tool         *Tool     `gorm:"foreignKey:ToolID"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	User         *User     `gorm:"foreignKey:UserID"`
	QuantityUsed int       `gorm:"column:quantity_used;not null"`
	DateUsed     time.Time `gorm:"column:date_used;not null;autoCreateTime"`
}
