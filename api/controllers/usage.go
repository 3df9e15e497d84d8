package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hifravl/toolstock-backend/api/responses"
	"github.com/hifravl/toolstock-backend/api/validators"
	"github.com/hifravl/toolstock-backend/internal/usage"
	"github.com/hifravl/toolstock-backend/pkg/logger"
)

type recordUsageBody struct {
	ToolID   string `json:"tool_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// UsageRecord logs consumption against the caller's approved allowance.
func UsageRecord(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordUsageBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toolID, err := validators.ParseURLParamUUID(body.ToolID, "tool id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Record(r.Context(), usage.Actor{UserID: actor.UserID, Role: actor.Role}, usage.RecordInput{
			ToolID:   toolID,
			Quantity: body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, usage.FromModel(record))
	}
}

// UsageAllowance reports the caller's remaining balance for one tool.
func UsageAllowance(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toolID, err := validators.ParseURLParamUUID(chi.URLParam(r, "toolId"), "tool id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allowance, err := svc.AllowanceFor(r.Context(), usage.Actor{UserID: actor.UserID, Role: actor.Role}, toolID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, allowance)
	}
}

// UsageOwnHistory returns the caller's consumption records.
func UsageOwnHistory(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.OwnHistory(r.Context(), usage.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage.FromModels(records))
	}
}

// AdminToolUsageHistory returns every consumption record for one tool.
func AdminToolUsageHistory(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toolID, err := validators.ParseURLParamUUID(chi.URLParam(r, "toolId"), "tool id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.HistoryForTool(r.Context(), usage.Actor{UserID: actor.UserID, Role: actor.Role}, toolID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage.FromModels(records))
	}
}
