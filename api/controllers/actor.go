package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hifravl/toolstock-backend/api/middleware"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	pkgerrors "github.com/hifravl/toolstock-backend/pkg/errors"
)

// actorIdentity is the authenticated caller extracted from the request context.
type actorIdentity struct {
	UserID uuid.UUID
	Role   enums.Role
}

func actorFromRequest(r *http.Request) (actorIdentity, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return actorIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return actorIdentity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	role, err := enums.ParseRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actorIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return actorIdentity{UserID: userID, Role: role}, nil
}
