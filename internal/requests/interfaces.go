package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	"github.com/hifravl/toolstock-backend/pkg/pagination"
)

// ListFilters narrows the admin request listing.
type ListFilters struct {
	Status *enums.RequestStatus
}

// RequestList is a cursor page of requests.
type RequestList struct {
	Items      []models.Request
	NextCursor *string
}

// Repository defines the persistence surface of the request engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRequest(ctx context.Context, request *models.Request) (*models.Request, error)
	FindRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Request, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*RequestList, error)
	FindToolsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tool, error)
	DeductToolQuantity(ctx context.Context, toolID uuid.UUID, qty int) (bool, error)
	FindToolQuantity(ctx context.Context, toolID uuid.UUID) (int, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateLineStatuses(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus) error
	UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error
	DeleteRequest(ctx context.Context, id uuid.UUID) error
}

// Clock abstracts time for deterministic decision timestamps in tests.
type Clock interface {
	Now() time.Time
}
