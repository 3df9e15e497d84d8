package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db"
	"github.com/hifravl/toolstock-backend/pkg/db/models"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateToolInput carries the fields for a new tool.
type CreateToolInput struct {
	Name        string
	Description *string
	Quantity    int
	CategoryID  *uuid.UUID
}

// UpdateToolInput carries optional tool updates; nil fields are left alone.
type UpdateToolInput struct {
	Name        *string
	Description *string
	Quantity    *int
	CategoryID  *uuid.UUID
}

// CategoryWithTools groups a category and its member tools for the catalog view.
type CategoryWithTools struct {
	Category *models.ToolCategory
	Tools    []models.Tool
}

// Service defines catalog management operations.
type Service interface {
	CreateTool(ctx context.Context, input CreateToolInput) (*models.Tool, error)
	GetTool(ctx context.Context, id uuid.UUID) (*models.Tool, error)
	ListTools(ctx context.Context, query string) ([]models.Tool, error)
	UpdateTool(ctx context.Context, id uuid.UUID, input UpdateToolInput) (*models.Tool, error)
	DeleteTool(ctx context.Context, id uuid.UUID) error
	CreateCategory(ctx context.Context, name string) (*models.ToolCategory, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*models.ToolCategory, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	Catalog(ctx context.Context) ([]CategoryWithTools, error)
	ImportCSV(ctx context.Context, input ImportInput) (*ImportSummary, error)
	ExportCSV(ctx context.Context) ([]byte, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService builds the catalog service.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateTool(ctx context.Context, input CreateToolInput) (*models.Tool, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool name is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
	}

	tool := &models.Tool{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		Quantity:    input.Quantity,
		CategoryID:  input.CategoryID,
	}
	created, err := s.repo.CreateTool(ctx, tool)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "tool name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tool")
	}
	return created, nil
}

func (s *service) GetTool(ctx context.Context, id uuid.UUID) (*models.Tool, error) {
	tool, err := s.repo.FindToolByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tool not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tool")
	}
	return tool, nil
}

func (s *service) ListTools(ctx context.Context, query string) ([]models.Tool, error) {
	tools, err := s.repo.ListTools(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tools")
	}
	return tools, nil
}

func (s *service) UpdateTool(ctx context.Context, id uuid.UUID, input UpdateToolInput) (*models.Tool, error) {
	if _, err := s.GetTool(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tool name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		updates["category_id"] = *input.CategoryID
	}
	if len(updates) == 0 {
		return s.GetTool(ctx, id)
	}

	if err := s.repo.UpdateTool(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "tool name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tool")
	}
	return s.GetTool(ctx, id)
}

func (s *service) DeleteTool(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetTool(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteTool(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete tool")
	}
	return nil
}

func (s *service) CreateCategory(ctx context.Context, name string) (*models.ToolCategory, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category, err := s.repo.CreateCategory(ctx, &models.ToolCategory{ID: uuid.New(), Name: trimmed})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, name string) (*models.ToolCategory, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if err := s.repo.UpdateCategory(ctx, id, map[string]any{"name": trimmed}); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	return s.repo.FindCategoryByID(ctx, id)
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteCategory(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		return nil
	})
}

// Catalog groups every tool under its category, with uncategorized tools last.
func (s *service) Catalog(ctx context.Context) ([]CategoryWithTools, error) {
	categories, err := s.repo.ListCategoriesWithTools(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}

	grouped := make([]CategoryWithTools, 0, len(categories)+1)
	for i := range categories {
		category := categories[i]
		grouped = append(grouped, CategoryWithTools{
			Category: &category,
			Tools:    category.Tools,
		})
	}

	uncategorized, err := s.repo.ListUncategorizedTools(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list uncategorized tools")
	}
	if len(uncategorized) > 0 {
		grouped = append(grouped, CategoryWithTools{Tools: uncategorized})
	}
	return grouped, nil
}
