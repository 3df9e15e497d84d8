package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hifravl/toolstock-backend/api/responses"
	"github.com/hifravl/toolstock-backend/api/validators"
	"github.com/hifravl/toolstock-backend/internal/requests"
	"github.com/hifravl/toolstock-backend/pkg/db/models"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
	"github.com/hifravl/toolstock-backend/pkg/logger"
	"github.com/hifravl/toolstock-backend/pkg/pagination"
)

// AdminRequestsList returns a status-filtered, cursor-paginated page of all requests.
func AdminRequestsList(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), requests.ListAllInput{
			Actor: requests.Actor{UserID: actor.UserID, Role: actor.Role},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.ListFromResult(list))
	}
}

// AdminRequestApprove approves every line of a pending request and deducts stock.
func AdminRequestApprove(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestDecision(logg, svc.Approve)
}

// AdminRequestReject rejects a pending request without touching stock.
func AdminRequestReject(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestDecision(logg, svc.Reject)
}

func requestDecision(
	logg *logger.Logger,
	decide func(ctx context.Context, input requests.DecisionInput) (*models.Request, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLParamUUID(chi.URLParam(r, "requestId"), "request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decided, err := decide(r.Context(), requests.DecisionInput{
			RequestID: requestID,
			Actor:     requests.Actor{UserID: actor.UserID, Role: actor.Role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.FromModel(decided))
	}
}

type linePatchBody struct {
	ID       string  `json:"id" validate:"required"`
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Status   *string `json:"status,omitempty"`
}

type editRequestBody struct {
	Lines []linePatchBody `json:"lines" validate:"required,min=1,dive"`
}

func parseLinePatches(body []linePatchBody) ([]requests.LinePatch, error) {
	patches := make([]requests.LinePatch, 0, len(body))
	for _, item := range body {
		lineID, err := validators.ParseURLParamUUID(item.ID, "line id")
		if err != nil {
			return nil, err
		}
		patch := requests.LinePatch{LineID: lineID, Quantity: item.Quantity}
		if item.Status != nil {
			status, err := enums.ParseRequestStatus(*item.Status)
			if err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid line status")
			}
			patch.Status = &status
		}
		patches = append(patches, patch)
	}
	return patches, nil
}

// AdminRequestEdit patches individual lines of a pending request by line id.
func AdminRequestEdit(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLParamUUID(chi.URLParam(r, "requestId"), "request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body editRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patches, err := parseLinePatches(body.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.EditPending(r.Context(), requests.EditInput{
			RequestID: requestID,
			Actor:     requests.Actor{UserID: actor.UserID, Role: actor.Role},
			Patches:   patches,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.FromModel(updated))
	}
}

// AdminRequestDelete removes a pending request and its lines.
func AdminRequestDelete(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseURLParamUUID(chi.URLParam(r, "requestId"), "request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePending(r.Context(), requests.DecisionInput{
			RequestID: requestID,
			Actor:     requests.Actor{UserID: actor.UserID, Role: actor.Role},
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
