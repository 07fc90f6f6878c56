package controllers

import (
	"net/http"

	"github.com/mercatohq/mercato-backend/api/middleware"
	"github.com/mercatohq/mercato-backend/api/responses"
	"github.com/mercatohq/mercato-backend/api/validators"
	"github.com/mercatohq/mercato-backend/internal/disputes"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
)

type openDisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// OpenDispute lets the buyer contest a delivered order inside the window.
func OpenDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor headers missing"))
			return
		}
		if actor.Role != enums.ActorRoleBuyer {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can open a dispute"))
			return
		}

		var req openDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Open(r.Context(), disputes.OpenInput{
			OrderID: orderID,
			BuyerID: actor.ID,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}
