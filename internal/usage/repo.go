package usage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
)

// Repository exposes persistence for tool usage records.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a usage repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateUsage inserts a consumption record.
func (r *Repository) CreateUsage(ctx context.Context, record *models.ToolUsage) (*models.ToolUsage, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindTool loads the tool a usage record points at.
func (r *Repository) FindTool(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	var tool models.Tool
	if err := r.db.WithContext(ctx).First(&tool, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tool, nil
}

// LockTool takes the tool row's write lock for the current transaction, so
// concurrent recorders against the same tool serialize and each sees the
// previous transaction's committed usage rows. A false return means the tool
// does not exist.
func (r *Repository) LockTool(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE tools
		SET quantity = quantity
		WHERE id = ?
	`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListByTool returns every usage record for a tool, newest first.
func (r *Repository) ListByTool(ctx context.Context, toolID uuid.UUID) ([]models.ToolUsage, error) {
	var records []models.ToolUsage
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("tool_id = ?", toolID).
		Order("date_used DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListByUser returns a user's usage records, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ToolUsage, error) {
	var records []models.ToolUsage
	err := r.db.WithContext(ctx).
		Preload("Tool").
		Where("user_id = ?", userID).
		Order("date_used DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SumApprovedQuantity totals the quantity granted to a user for one tool
// across all of their approved request lines.
func (r *Repository) SumApprovedQuantity(ctx context.Context, userID, toolID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.RequestedTool{}).
		Select("COALESCE(SUM(requested_tools.quantity), 0)").
		Joins("JOIN requests ON requests.id = requested_tools.request_id").
		Where("requests.requester_id = ?", userID).
		Where("requests.status = ?", enums.RequestStatusApproved).
		Where("requested_tools.tool_id = ?", toolID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SumUsedQuantity totals how much of a tool a user has already consumed.
func (r *Repository) SumUsedQuantity(ctx context.Context, userID, toolID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.ToolUsage{}).
		Select("COALESCE(SUM(quantity_used), 0)").
		Where("user_id = ?", userID).
		Where("tool_id = ?", toolID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
