package controllers

import (
	"net/http"

	"github.com/mercatohq/mercato-backend/api/middleware"
	"github.com/mercatohq/mercato-backend/api/responses"
	"github.com/mercatohq/mercato-backend/api/validators"
	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
)

// OrderAuditTrail returns the transition history for one order, newest
// first. Admin only.
func OrderAuditTrail(repo audit.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok || actor.Role != enums.ActorRoleAdmin {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
			return
		}
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := repo.ListByTarget(r.Context(), orderID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit trail"))
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
