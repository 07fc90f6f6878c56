package controllers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/api/responses"
	"github.com/mercatohq/mercato-backend/api/validators"
	paymentwebhook "github.com/mercatohq/mercato-backend/internal/webhooks/payments"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
)

const webhookSecretHeader = "X-Webhook-Secret"

type paymentWebhookRequest struct {
	OrderID   uuid.UUID  `json:"order_id" validate:"required"`
	Status    string     `json:"status" validate:"required"`
	Reference string     `json:"reference" validate:"required"`
	Provider  string     `json:"provider" validate:"required"`
	Method    string     `json:"method,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// PaymentWebhook ingests provider callbacks. Providers retry until they see
// 2xx, so every outcome the service treats as handled returns 200.
func PaymentWebhook(svc *paymentwebhook.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			presented := r.Header.Get(webhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
				return
			}
		}

		var req paymentWebhookRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}

		if err := svc.HandleEvent(r.Context(), paymentwebhook.Event{
			OrderID:       req.OrderID,
			PaymentStatus: status,
			Reference:     req.Reference,
			Provider:      req.Provider,
			Method:        req.Method,
			PaidAt:        req.PaidAt,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
