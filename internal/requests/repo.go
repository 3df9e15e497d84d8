package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	"github.com/hifravl/toolstock-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, request *models.Request) (*models.Request, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Tool").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Request, error) {
	var items []models.Request
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Tool").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*RequestList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Tool").
		Preload("Requester")

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var items []models.Request
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	list := &RequestList{}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	list.Items = items
	return list, nil
}

func (r *repository) FindToolsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tools []models.Tool
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&tools).Error
	if err != nil {
		return nil, err
	}
	return tools, nil
}

// DeductToolQuantity applies a guarded decrement. The WHERE clause re-checks
// stock inside the transaction so concurrent approvals cannot drive the
// quantity negative; a false return means the guard failed.
func (r *repository) DeductToolQuantity(ctx context.Context, toolID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE tools
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity >= ?
	`, qty, toolID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindToolQuantity(ctx context.Context, toolID uuid.UUID) (int, error) {
	var tool models.Tool
	err := r.db.WithContext(ctx).
		Select("quantity").
		Where("id = ?", toolID).
		First(&tool).Error
	if err != nil {
		return 0, err
	}
	return tool.Quantity, nil
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateLineStatuses(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.RequestedTool{}).
		Where("request_id = ?", requestID).
		Update("status", status).Error
}

func (r *repository) UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RequestedTool{}).
		Where("id = ?", lineID).
		Updates(updates).Error
}

func (r *repository) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		Delete(&models.RequestedTool{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Request{}).Error
}
