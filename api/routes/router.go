package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercatohq/mercato-backend/api/controllers"
	"github.com/mercatohq/mercato-backend/api/middleware"
	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/internal/disputes"
	"github.com/mercatohq/mercato-backend/internal/fulfillment"
	"github.com/mercatohq/mercato-backend/internal/notifications"
	"github.com/mercatohq/mercato-backend/internal/orders"
	paymentwebhook "github.com/mercatohq/mercato-backend/internal/webhooks/payments"
	"github.com/mercatohq/mercato-backend/pkg/config"
	"github.com/mercatohq/mercato-backend/pkg/db"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/redis"
)

// Services bundles everything the router hands to controllers.
type Services struct {
	Orders           orders.Service
	Fulfillment      fulfillment.Service
	Disputes         disputes.Service
	PaymentWebhook   *paymentwebhook.Service
	AuditRepo        audit.Repository
	NotificationRepo notifications.Repository
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	services Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.ActorContext(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", controllers.PaymentWebhook(services.PaymentWebhook, cfg.Lifecycle.PaymentWebhookSecret, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", controllers.CreateOrder(services.Orders, logg))
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", controllers.OrderDetail(services.Orders, logg))
			r.Post("/status", controllers.TransitionOrder(services.Orders, logg))
			r.Post("/cancel", controllers.CancelOrder(services.Orders, logg))
			r.Post("/dispute", controllers.OpenDispute(services.Disputes, logg))
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Post("/status", controllers.UpdateItemStatus(services.Fulfillment, logg))
				r.Put("/tracking", controllers.SetItemTracking(services.Fulfillment, logg))
			})
		})
	})

	r.Get("/api/v1/buyers/{buyerID}/orders", controllers.ListBuyerOrders(services.Orders, logg))
	r.Get("/api/v1/vendors/{vendorID}/orders", controllers.ListVendorOrders(services.Orders, logg))

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Get("/", controllers.ListNotifications(services.NotificationRepo, logg))
		r.Post("/{notificationID}/read", controllers.MarkNotificationRead(services.NotificationRepo, logg))
	})

	r.Get("/api/admin/v1/orders/{orderID}/audit", controllers.OrderAuditTrail(services.AuditRepo, logg))

	return r
}
