package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/pkg/db/models"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
)

var csvHeader = []string{"name", "description", "quantity", "category"}

// ImportInput configures a catalog CSV import.
type ImportInput struct {
	Reader io.Reader
	// DryRun validates and reports without persisting anything.
	DryRun bool
	// DeleteInactive removes tools that are absent from the file.
	DeleteInactive bool
}

// ImportSummary reports the outcome of a catalog import.
type ImportSummary struct {
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Deleted   int      `json:"deleted"`
	DryRun    bool     `json:"dry_run"`
	Errors    []string `json:"errors,omitempty"`
}

type importRow struct {
	name        string
	description string
	quantity    int
	category    string
}

// ImportCSV upserts tools from a CSV file. Rows are matched by tool name;
// categories are created on demand. Quantity from the file is authoritative
// for new tools only; existing stock counts are never overwritten.
func (s *service) ImportCSV(ctx context.Context, input ImportInput) (*ImportSummary, error) {
	if input.Reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "import file is required")
	}

	rows, parseErrs, err := parseImportRows(input.Reader)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{DryRun: input.DryRun, Errors: parseErrs}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		seen := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			seen[row.name] = struct{}{}
			if err := s.applyRow(ctx, repo, row, input.DryRun, summary); err != nil {
				return err
			}
		}

		if input.DeleteInactive {
			existing, err := repo.ListTools(ctx, "")
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tools")
			}
			for _, tool := range existing {
				if _, ok := seen[tool.Name]; ok {
					continue
				}
				summary.Deleted++
				if input.DryRun {
					continue
				}
				if err := repo.DeleteTool(ctx, tool.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inactive tool")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *service) applyRow(ctx context.Context, repo *Repository, row importRow, dryRun bool, summary *ImportSummary) error {
	categoryID, err := resolveCategory(ctx, repo, row.category, dryRun)
	if err != nil {
		return err
	}

	existing, err := repo.FindToolByName(ctx, row.name)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tool")
		}
		summary.Created++
		if dryRun {
			return nil
		}
		tool := &models.Tool{
			ID:         uuid.New(),
			Name:       row.name,
			Quantity:   row.quantity,
			CategoryID: categoryID,
		}
		if row.description != "" {
			desc := row.description
			tool.Description = &desc
		}
		if _, err := repo.CreateTool(ctx, tool); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tool")
		}
		return nil
	}

	updates := map[string]any{}
	if row.description != "" && (existing.Description == nil || *existing.Description != row.description) {
		updates["description"] = row.description
	}
	if !sameCategory(existing.CategoryID, categoryID) {
		updates["category_id"] = categoryID
	}
	if len(updates) == 0 {
		summary.Unchanged++
		return nil
	}

	summary.Updated++
	if dryRun {
		return nil
	}
	if err := repo.UpdateTool(ctx, existing.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tool")
	}
	return nil
}

func sameCategory(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func resolveCategory(ctx context.Context, repo *Repository, name string, dryRun bool) (*uuid.UUID, error) {
	if name == "" {
		return nil, nil
	}
	category, err := repo.FindCategoryByName(ctx, name)
	if err == nil {
		return &category.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
	}
	if dryRun {
		return nil, nil
	}
	created, err := repo.CreateCategory(ctx, &models.ToolCategory{ID: uuid.New(), Name: name})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return &created.ID, nil
}

func parseImportRows(r io.Reader) ([]importRow, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "import file is empty")
	}
	if err := validateHeader(header); err != nil {
		return nil, nil, err
	}

	var rows []importRow
	var parseErrs []string
	lineNo := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			parseErrs = append(parseErrs, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			parseErrs = append(parseErrs, fmt.Sprintf("line %d: name is required", lineNo))
			continue
		}
		quantity := 0
		if qty := strings.TrimSpace(record[2]); qty != "" {
			parsed, err := strconv.Atoi(qty)
			if err != nil || parsed < 0 {
				parseErrs = append(parseErrs, fmt.Sprintf("line %d: invalid quantity %q", lineNo, qty))
				continue
			}
			quantity = parsed
		}

		rows = append(rows, importRow{
			name:        name,
			description: strings.TrimSpace(record[1]),
			quantity:    quantity,
			category:    strings.TrimSpace(record[3]),
		})
	}
	return rows, parseErrs, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return pkgerrors.New(pkgerrors.CodeValidation, "import header must be name,description,quantity,category")
	}
	for i, col := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return pkgerrors.New(pkgerrors.CodeValidation, "import header must be name,description,quantity,category")
		}
	}
	return nil
}

// ExportCSV renders the full catalog in the import file format.
func (s *service) ExportCSV(ctx context.Context) ([]byte, error) {
	tools, err := s.repo.ListTools(ctx, "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tools")
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv header")
	}
	for _, tool := range tools {
		description := ""
		if tool.Description != nil {
			description = *tool.Description
		}
		category := ""
		if tool.Category != nil {
			category = tool.Category.Name
		}
		record := []string{tool.Name, description, strconv.Itoa(tool.Quantity), category}
		if err := writer.Write(record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write csv row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush csv")
	}
	return buf.Bytes(), nil
}
