package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
)

// LineDTO is the transport shape for a request line. InStock reflects the
// tool's on-hand quantity at read time, not at request time.
type LineDTO struct {
	ID       uuid.UUID           `json:"id"`
	ToolID   uuid.UUID           `json:"tool_id"`
	ToolName *string             `json:"tool_name,omitempty"`
	Quantity int                 `json:"quantity"`
	InStock  *int                `json:"in_stock,omitempty"`
	Status   enums.RequestStatus `json:"status"`
}

// RequestDTO is the transport shape for a request header with its lines.
type RequestDTO struct {
	ID            uuid.UUID           `json:"id"`
	RequesterID   uuid.UUID           `json:"requester_id"`
	RequesterName *string             `json:"requester_name,omitempty"`
	Status        enums.RequestStatus `json:"status"`
	DateRequested time.Time           `json:"date_requested"`
	DateApproved  *time.Time          `json:"date_approved,omitempty"`
	DateRejected  *time.Time          `json:"date_rejected,omitempty"`
	ApproverID    *uuid.UUID          `json:"approver_id,omitempty"`
	Lines         []LineDTO           `json:"lines"`
}

// RequestListDTO carries one page of requests plus the next cursor.
type RequestListDTO struct {
	Items      []RequestDTO `json:"items"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

func FromModel(request *models.Request) *RequestDTO {
	if request == nil {
		return nil
	}
	dto := &RequestDTO{
		ID:            request.ID,
		RequesterID:   request.RequesterID,
		Status:        request.Status,
		DateRequested: request.DateRequested,
		DateApproved:  request.DateApproved,
		DateRejected:  request.DateRejected,
		ApproverID:    request.ApproverID,
		Lines:         make([]LineDTO, 0, len(request.Lines)),
	}
	if request.Requester != nil {
		name := request.Requester.Name
		dto.RequesterName = &name
	}
	for i := range request.Lines {
		line := request.Lines[i]
		lineDTO := LineDTO{
			ID:       line.ID,
			ToolID:   line.ToolID,
			Quantity: line.Quantity,
			Status:   line.Status,
		}
		if line.Tool != nil {
			name := line.Tool.Name
			stock := line.Tool.Quantity
			lineDTO.ToolName = &name
			lineDTO.InStock = &stock
		}
		dto.Lines = append(dto.Lines, lineDTO)
	}
	return dto
}

func FromModels(items []models.Request) []RequestDTO {
	out := make([]RequestDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}

func ListFromResult(list *RequestList) *RequestListDTO {
	if list == nil {
		return &RequestListDTO{Items: []RequestDTO{}}
	}
	return &RequestListDTO{
		Items:      FromModels(list.Items),
		NextCursor: list.NextCursor,
	}
}
