package usage

import (
	"time"

	"github.com/google/uuid"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
)

// UsageDTO is the transport shape for one consumption record.
type UsageDTO struct {
	ID           uuid.UUID `json:"id"`
	ToolID       uuid.UUID `json:"tool_id"`
	ToolName     *string   `json:"tool_name,omitempty"`
	UserID       uuid.UUID `json:"user_id"`
	UserName     *string   `json:"user_name,omitempty"`
	QuantityUsed int       `json:"quantity_used"`
	DateUsed     time.Time `json:"date_used"`
}

func FromModel(record *models.ToolUsage) *UsageDTO {
	if record == nil {
		return nil
	}
	dto := &UsageDTO{
		ID:           record.ID,
		ToolID:       record.ToolID,
		UserID:       record.UserID,
		QuantityUsed: record.QuantityUsed,
		DateUsed:     record.DateUsed,
	}
	if record.Tool != nil {
		name := record.Tool.Name
		dto.ToolName = &name
	}
	if record.User != nil {
		name := record.User.Name
		dto.UserName = &name
	}
	return dto
}

func FromModels(records []models.ToolUsage) []UsageDTO {
	out := make([]UsageDTO, 0, len(records))
	for i := range records {
		out = append(out, *FromModel(&records[i]))
	}
	return out
}
