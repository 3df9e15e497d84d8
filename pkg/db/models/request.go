package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hifravl/toolstock-backend/pkg/enums"
)

// Request is the header of a multi-line tool request. Once decided it is
// immutable; only the header status and decision timestamps ever change.
type Request struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequesterID   uuid.UUID           `gorm:"column:requester_id;type:uuid;not null;index"`
	Requester     *User               `gorm:"foreignKey:RequesterID"`
	Status        enums.RequestStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	DateRequested time.Time           `gorm:"column:date_requested;not null;autoCreateTime"`
	DateApproved  *time.Time          `gorm:"column:date_approved"`
	DateRejected  *time.Time          `gorm:"column:date_rejected"`
	ApproverID    *uuid.UUID          `gorm:"column:approver_id;type:uuid"`
	Approver      *User               `gorm:"foreignKey:ApproverID"`
	Lines         []RequestedTool     `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
