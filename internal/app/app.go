// Package app wires the stores, clients and services shared by the api,
// worker and tracker entrypoints.
package app

import (
	"context"
	"net/http"

	"github.com/unifly3582/orderflow/internal/aws"
	"github.com/unifly3582/orderflow/internal/config"
	"github.com/unifly3582/orderflow/internal/courier"
	"github.com/unifly3582/orderflow/internal/customers"
	"github.com/unifly3582/orderflow/internal/handlers"
	"github.com/unifly3582/orderflow/internal/idempotency"
	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/metrics"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/settings"
	"github.com/unifly3582/orderflow/internal/tracking"
	"github.com/unifly3582/orderflow/internal/whatsapp"
)

type App struct {
	Config *config.Config

	Orders          *orders.Store
	Customers       *customers.Store
	Settings        *settings.Store
	NotificationLog *notify.LogStore
	Idempotency     *idempotency.Store

	Gate       *notify.Gate
	Lifecycle  *lifecycle.Service
	Reconciler *tracking.Reconciler
	Metrics    *metrics.Emitter
}

// Build loads AWS clients and assembles an App from cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, err
	}
	return New(cfg, clients), nil
}

// New assembles an App from already constructed AWS clients.
func New(cfg *config.Config, clients *aws.AWSClients) *App {
	a := &App{
		Config:          cfg,
		Orders:                orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.CountersTable),
		Customers:       customers.NewStore(clients.DynamoDB, cfg.CustomersTable),
		Settings:              settings.NewStore(clients.DynamoDB, cfg.SettingsTable),
		NotificationLog: notify.NewLogStore(clients.DynamoDB, cfg.NotificationLogTable),
		Idempotency:           idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Metrics:         metrics.NewEmitter(clients.CloudWatch, cfg.MetricsNamespace),
	}

	wa := whatsapp.NewClient(
		cfg.WhatsApp.BaseURL,
		cfg.WhatsApp.PhoneNumberID,
		cfg.WhatsApp.AccessToken,
		cfg.WhatsApp.Language,
		&http.Client{Timeout: cfg.WhatsApp.Timeout},
	)
	a.Gate = notify.NewGate(wa, a.NotificationLog, a.Orders, nil)
	a.Lifecycle = lifecycle.NewService(a.Orders, a.Customers, a.Settings, a.Gate)

	// a nil *Publisher must not end up inside the interface
	var queue tracking.Queue
	if cfg.TrackingQueueURL != "" && clients.SQS != nil {
		queue = aws.NewPublisher(clients.SQS, cfg.TrackingQueueURL)
	}
	tracker := courier.NewClient(cfg.Courier.BaseURL, cfg.Courier.Token, &http.Client{Timeout: cfg.Courier.Timeout})
	a.Reconciler = tracking.NewReconciler(a.Orders, tracker, a.Gate, queue).
		WithConcurrency(cfg.TrackingConcurrency)

	return a
}

// HandlerConfig exposes the App to the HTTP layer.
func (a *App) HandlerConfig() handlers.HandlerConfig {
	return handlers.HandlerConfig{
		Orders:                a.Lifecycle,
		Idempotency:           a.Idempotency,
		Notifications:         a.NotificationLog,
		Settings:              a.Settings,
		Tracking:              a.Reconciler,
		WebhookSecret:         a.Config.Razorpay.WebhookSecret,
		AllowUnsignedWebhooks: a.Config.RunLocal,
		EnqueueTracking:       a.Config.TrackingQueueURL != "",
	}
}
