package controllers

import (
	"net/http"

	"github.com/hifravl/toolstock-backend/api/responses"
	"github.com/hifravl/toolstock-backend/api/validators"
	"github.com/hifravl/toolstock-backend/internal/requests"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
	"github.com/hifravl/toolstock-backend/pkg/logger"
)

type requestLineBody struct {
	ToolID   string `json:"tool_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type createRequestBody struct {
	Lines []requestLineBody `json:"lines" validate:"required,min=1,dive"`
}

func parseRequestLines(body []requestLineBody) ([]requests.RequestLine, error) {
	lines := make([]requests.RequestLine, 0, len(body))
	for _, raw := range body {
		toolID, err := validators.ParseURLParamUUID(raw.ToolID, "tool id")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line")
		}
		lines = append(lines, requests.RequestLine{ToolID: toolID, Quantity: raw.Quantity})
	}
	return lines, nil
}

// RequestCreate opens a pending multi-line tool request for the caller.
func RequestCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines, err := parseRequestLines(body.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), requests.CreateInput{
			Actor: requests.Actor{UserID: actor.UserID, Role: actor.Role},
			Lines: lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, requests.FromModel(created))
	}
}

// RequestsListOwn returns the caller's requests, newest first.
func RequestsListOwn(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListOwn(r.Context(), requests.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.FromModels(items))
	}
}
