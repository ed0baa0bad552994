// Package handlers exposes the order back office over HTTP.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/unifly3582/orderflow/internal/approval"
	"github.com/unifly3582/orderflow/internal/courier"
	"github.com/unifly3582/orderflow/internal/idempotency"
	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/settings"
	"github.com/unifly3582/orderflow/internal/tracking"
	"github.com/unifly3582/orderflow/internal/validation"
)

// OrderService is satisfied by *lifecycle.Service.
type OrderService interface {
	CreateOrder(ctx context.Context, in lifecycle.NewOrder) (*orders.Order, approval.Decision, error)
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Approve(ctx context.Context, orderID, adminID string) (*orders.Order, error)
	Reject(ctx context.Context, orderID, adminID, reason string) (*orders.Order, error)
	Cancel(ctx context.Context, orderID, actor, reason string) (*orders.Order, error)
	MarkReadyForShipping(ctx context.Context, orderID, actor string) (*orders.Order, error)
	CreateShipment(ctx context.Context, orderID string, sh lifecycle.Shipment) (*orders.Order, error)
	HandlePaymentEvent(ctx context.Context, ev lifecycle.PaymentEvent) (lifecycle.PaymentResult, error)
}

// IdempotencyStore is satisfied by *idempotency.Store.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, requestHash string) (*idempotency.IdempotencyRecord, bool, error)
	MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

type NotificationLog interface {
	ListByOrder(ctx context.Context, orderID string) ([]notify.LogEntry, error)
}

type SettingsStore interface {
	GetAutoApproval(ctx context.Context) (settings.AutoApproval, error)
	PutAutoApproval(ctx context.Context, a settings.AutoApproval) error
}

// TrackingService is satisfied by *tracking.Reconciler.
type TrackingService interface {
	Apply(ctx context.Context, orderID string, u courier.Update) (tracking.Result, error)
	SyncAll(ctx context.Context) ([]tracking.Result, error)
	Enqueue(ctx context.Context) (int, error)
}

// HandlerConfig groups dependencies for the HTTP handlers.
type HandlerConfig struct {
	Orders        OrderService
	Idempotency   IdempotencyStore
	Notifications NotificationLog
	Settings      SettingsStore
	Tracking      TrackingService
	// WebhookSecret verifies Razorpay signatures. Without it every webhook
	// is rejected unless AllowUnsignedWebhooks is set.
	WebhookSecret string
	// AllowUnsignedWebhooks skips signature checks when no secret is
	// configured. Only for local runs.
	AllowUnsignedWebhooks bool
	// EnqueueTracking makes POST /tracking/sync fan out through the queue
	// instead of reconciling inline.
	EnqueueTracking bool
}

type handler struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
}

// RegisterRoutes registers every API route on r.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &handler{cfg: cfg, v: validation.New()}

	r.POST("/orders", h.createOrder)
	r.GET("/orders/:id", h.getOrder)
	r.GET("/orders/:id/notifications", h.listNotifications)

	r.POST("/orders/:id/approve", h.approve)
	r.POST("/orders/:id/reject", h.reject)
	r.POST("/orders/:id/cancel", h.cancel)
	r.POST("/orders/:id/ready", h.markReady)
	r.POST("/orders/:id/shipment", h.createShipment)

	r.GET("/settings/auto-approval", h.getAutoApproval)
	r.PUT("/settings/auto-approval", h.putAutoApproval)

	r.POST("/webhooks/razorpay", h.razorpayWebhook)
	r.POST("/webhooks/tracking", h.trackingWebhook)
	r.POST("/tracking/sync", h.syncTracking)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, orders.ErrNotFound):
		status, code = http.StatusNotFound, "order_not_found"
	case errors.Is(err, lifecycle.ErrInvalidOrder):
		status, code = http.StatusBadRequest, "invalid_order"
	case errors.Is(err, lifecycle.ErrNotApproved):
		status, code = http.StatusConflict, "order_not_approved"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, tracking.ErrAWBMismatch):
		status, code = http.StatusConflict, "awb_mismatch"
	case errors.Is(err, tracking.ErrNotTracked):
		status, code = http.StatusConflict, "order_not_tracked"
	case errors.Is(err, orders.ErrVersionConflict):
		status, code = http.StatusConflict, "concurrent_update"
	}
	if status == http.StatusInternalServerError {
		log.Printf("[http] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": code, "detail": err.Error()})
}
