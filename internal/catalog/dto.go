package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
)

// ToolDTO is the transport shape for a catalog tool.
type ToolDTO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	Quantity     int        `json:"quantity"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	CategoryName *string    `json:"category_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CategoryDTO is the transport shape for a tool category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CatalogSectionDTO groups one category and its tools for the catalog view.
// A nil category marks the trailing uncategorized section.
type CatalogSectionDTO struct {
	Category *CategoryDTO `json:"category"`
	Tools    []ToolDTO    `json:"tools"`
}

func ToolFromModel(tool *models.Tool) *ToolDTO {
	if tool == nil {
		return nil
	}
	dto := &ToolDTO{
		ID:          tool.ID,
		Name:        tool.Name,
		Description: tool.Description,
		Quantity:    tool.Quantity,
		CategoryID:  tool.CategoryID,
		CreatedAt:   tool.CreatedAt,
		UpdatedAt:   tool.UpdatedAt,
	}
	if tool.Category != nil {
		name := tool.Category.Name
		dto.CategoryName = &name
	}
	return dto
}

func ToolsFromModels(tools []models.Tool) []ToolDTO {
	out := make([]ToolDTO, 0, len(tools))
	for i := range tools {
		out = append(out, *ToolFromModel(&tools[i]))
	}
	return out
}

func CategoryFromModel(category *models.ToolCategory) *CategoryDTO {
	if category == nil {
		return nil
	}
	return &CategoryDTO{ID: category.ID, Name: category.Name}
}

func SectionsFromGroups(groups []CategoryWithTools) []CatalogSectionDTO {
	out := make([]CatalogSectionDTO, 0, len(groups))
	for _, group := range groups {
		out = append(out, CatalogSectionDTO{
			Category: CategoryFromModel(group.Category),
			Tools:    ToolsFromModels(group.Tools),
		})
	}
	return out
}
