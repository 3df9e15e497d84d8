package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hifravl/toolstock-backend/api/responses"
	"github.com/hifravl/toolstock-backend/api/validators"
	"github.com/hifravl/toolstock-backend/internal/catalog"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
	"github.com/hifravl/toolstock-backend/pkg/logger"
)

type createToolBody struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Quantity    int     `json:"quantity" validate:"min=0"`
	CategoryID  *string `json:"category_id,omitempty"`
}

type updateToolBody struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
	CategoryID  *string `json:"category_id,omitempty"`
}

type categoryBody struct {
	Name string `json:"name" validate:"required"`
}

// CatalogView returns every tool grouped under its category.
func CatalogView(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grouped, err := svc.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.SectionsFromGroups(grouped))
	}
}

// ToolsList returns tools, optionally filtered by a name search.
func ToolsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		tools, err := svc.ListTools(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.ToolsFromModels(tools))
	}
}

// ToolGet returns a single tool by ID.
func ToolGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toolID, err := validators.ParseURLParamUUID(chi.URLParam(r, "toolId"), "tool id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tool, err := svc.GetTool(r.Context(), toolID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.ToolFromModel(tool))
	}
}

// ToolCreate adds a tool to the catalog.
func ToolCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createToolBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.CreateToolInput{
			Name:        body.Name,
			Description: body.Description,
			Quantity:    body.Quantity,
		}
		if body.CategoryID != nil {
			categoryID, err := validators.ParseURLParamUUID(*body.CategoryID, "category id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CategoryID = &categoryID
		}

		tool, err := svc.CreateTool(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, catalog.ToolFromModel(tool))
	}
}

// ToolUpdate applies a partial update to a tool.
func ToolUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toolID, err := validators.ParseURLParamUUID(chi.URLParam(r, "toolId"), "tool id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateToolBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateToolInput{
			Name:        body.Name,
			Description: body.Description,
			Quantity:    body.Quantity,
		}
		if body.CategoryID != nil {
			categoryID, err := validators.ParseURLParamUUID(*body.CategoryID, "category id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CategoryID = &categoryID
		}

		tool, err := svc.UpdateTool(r.Context(), toolID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.ToolFromModel(tool))
	}
}

// ToolDelete removes a tool and its dependent history.
func ToolDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		toolID, err := validators.ParseURLParamUUID(chi.URLParam(r, "toolId"), "tool id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteTool(r.Context(), toolID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// CategoryCreate adds a tool category.
func CategoryCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body categoryBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, catalog.CategoryFromModel(category))
	}
}

// CategoryUpdate renames a category.
func CategoryUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.ParseURLParamUUID(chi.URLParam(r, "categoryId"), "category id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categoryBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.UpdateCategory(r.Context(), categoryID, body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.CategoryFromModel(category))
	}
}

// CategoryDelete removes a category; its tools become uncategorized.
func CategoryDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.ParseURLParamUUID(chi.URLParam(r, "categoryId"), "category id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCategory(r.Context(), categoryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// CatalogImport ingests a CSV payload into the catalog, either as a raw body
// or as a multipart "file" field. The dry_run and delete_missing query flags
// mirror the seeding tool's behavior.
func CatalogImport(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
		deleteMissing, _ := strconv.ParseBool(r.URL.Query().Get("delete_missing"))

		var reader io.Reader = r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			file, _, err := r.FormFile("file")
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "multipart field \"file\" is required"))
				return
			}
			defer file.Close()
			reader = file
		}

		summary, err := svc.ImportCSV(r.Context(), catalog.ImportInput{
			Reader:         reader,
			DryRun:         dryRun,
			DeleteInactive: deleteMissing,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CatalogExport streams the catalog as CSV in the import format.
func CatalogExport(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.ExportCSV(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="catalog.csv"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(out); err != nil && logg != nil {
			logg.Error(r.Context(), "catalog.export.write", err)
		}
	}
}
