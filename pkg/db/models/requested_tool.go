package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hifravl/toolstock-backend/pkg/enums"
)

// RequestedTool is a single line of a request. Lines are owned exclusively by
// their header and share its status lifecycle.
type RequestedTool struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID           `gorm:"column:request_id;type:uuid;not null;index"`
	ToolID    uuid.UUID           `gorm:"column:tool_id;type:uuid;not null;index"`
	Tool      *Tool               `gorm:"foreignKey:ToolID"`
	Quantity  int                 `gorm:"column:quantity;not null"`
	Status    enums.RequestStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
