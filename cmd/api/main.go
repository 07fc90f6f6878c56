package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mercatohq/mercato-backend/api/routes"
	"github.com/mercatohq/mercato-backend/internal/audit"
	"github.com/mercatohq/mercato-backend/internal/commission"
	"github.com/mercatohq/mercato-backend/internal/disputes"
	"github.com/mercatohq/mercato-backend/internal/fulfillment"
	"github.com/mercatohq/mercato-backend/internal/inventory"
	"github.com/mercatohq/mercato-backend/internal/notifications"
	"github.com/mercatohq/mercato-backend/internal/orders"
	paymentwebhook "github.com/mercatohq/mercato-backend/internal/webhooks/payments"
	"github.com/mercatohq/mercato-backend/pkg/config"
	"github.com/mercatohq/mercato-backend/pkg/db"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/migrate"
	"github.com/mercatohq/mercato-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, services),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gdb := dbClient.DB()

	auditRepo := audit.NewRepository(gdb)
	auditor, err := audit.NewService(auditRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	notificationRepo := notifications.NewRepository(gdb)
	notifier, err := notifications.NewService(notificationRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	restorer := inventory.NewRestorer()

	ordersRepo := orders.NewRepository(gdb)
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, auditor, notifier, restorer, logg)
	if err != nil {
		return routes.Services{}, err
	}

	fulfillmentSvc, err := fulfillment.NewService(ordersRepo, dbClient, auditor, notifier, logg)
	if err != nil {
		return routes.Services{}, err
	}

	disputesSvc, err := disputes.NewService(disputes.NewRepository(gdb), ordersRepo, dbClient, auditor, notifier, logg, cfg.Lifecycle.DisputeWindow)
	if err != nil {
		return routes.Services{}, err
	}

	commissionRepo := commission.NewRepository(gdb)
	calculator, err := commission.NewService(commissionRepo, cfg.Lifecycle.DefaultCommissionRate)
	if err != nil {
		return routes.Services{}, err
	}

	webhookSvc, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		OrderRepo:  ordersRepo,
		TxRunner:   dbClient,
		Commission: calculator,
		Categories: commissionRepo,
		Auditor:    auditor,
		Notifier:   notifier,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Orders:           ordersSvc,
		Fulfillment:      fulfillmentSvc,
		Disputes:         disputesSvc,
		PaymentWebhook:   webhookSvc,
		AuditRepo:        auditRepo,
		NotificationRepo: notificationRepo,
	}, nil
}
