package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
)

// Repository exposes persistence for the tool catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
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

// CreateTool inserts a new tool.
func (r *Repository) CreateTool(ctx context.Context, tool *models.Tool) (*models.Tool, error) {
	if err := r.db.WithContext(ctx).Create(tool).Error; err != nil {
		return nil, err
	}
	return tool, nil
}

// FindToolByID loads a tool with its category.
func (r *Repository) FindToolByID(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	var tool models.Tool
	err := r.db.WithContext(ctx).
		Preload("Category").
		First(&tool, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// FindToolByName loads a tool by its unique name.
func (r *Repository) FindToolByName(ctx context.Context, name string) (*models.Tool, error) {
	var tool models.Tool
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&tool).Error
	if err != nil {
		return nil, err
	}
	return &tool, nil
}

// ListTools returns tools ordered by name, optionally filtered by a name search.
func (r *Repository) ListTools(ctx context.Context, query string) ([]models.Tool, error) {
	q := r.db.WithContext(ctx).Preload("Category")
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(trimmed)+"%")
	}
	var tools []models.Tool
	if err := q.Order("name ASC").Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

// UpdateTool applies the provided column updates.
func (r *Repository) UpdateTool(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteTool removes a tool; dependent lines and usages ride on FK cascades.
func (r *Repository) DeleteTool(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Tool{}).Error
}

// CreateCategory inserts a new category.
func (r *Repository) CreateCategory(ctx context.Context, category *models.ToolCategory) (*models.ToolCategory, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// FindCategoryByID loads a category.
func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.ToolCategory, error) {
	var category models.ToolCategory
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryByName loads a category by its unique name.
func (r *Repository) FindCategoryByName(ctx context.Context, name string) (*models.ToolCategory, error) {
	var category models.ToolCategory
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategoriesWithTools returns all categories with their tools preloaded.
func (r *Repository) ListCategoriesWithTools(ctx context.Context) ([]models.ToolCategory, error) {
	var categories []models.ToolCategory
	err := r.db.WithContext(ctx).
		Preload("Tools", func(db *gorm.DB) *gorm.DB {
			return db.Order("tools.name ASC")
		}).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// ListUncategorizedTools returns tools that have no category.
func (r *Repository) ListUncategorizedTools(ctx context.Context) ([]models.Tool, error) {
	var tools []models.Tool
	err := r.db.WithContext(ctx).
		Where("category_id IS NULL").
		Order("name ASC").
		Find(&tools).Error
	if err != nil {
		return nil, err
	}
	return tools, nil
}

// UpdateCategory applies the provided column updates.
func (r *Repository) UpdateCategory(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ToolCategory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteCategory removes a category; member tools keep existing with a NULL category.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Tool{}).
		Where("category_id = ?", id).
		Update("category_id", nil).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ToolCategory{}).Error
}
