// Package lifecycle owns every order state change: creation with
// auto-approval, payment webhooks and admin actions.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/unifly3582/orderflow/internal/approval"
	"github.com/unifly3582/orderflow/internal/customers"
	"github.com/unifly3582/orderflow/internal/metrics"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/settings"
	"github.com/unifly3582/orderflow/internal/status"
)

var (
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidEvent      = errors.New("invalid payment event")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrGatewayMismatch   = errors.New("gateway order id does not match order")
	ErrNotApproved       = errors.New("order is not approved")
)

type OrderStore interface {
	NextOrderID(ctx context.Context) (string, error)
	Create(ctx context.Context, o *orders.Order) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*orders.Order, error)
	Mutate(ctx context.Context, orderID string, fn func(*orders.Order) (bool, error)) (*orders.Order, bool, error)
}

type CustomerStore interface {
	Get(ctx context.Context, phone string) (*customers.Customer, error)
	CreateIfAbsent(ctx context.Context, c *customers.Customer) (bool, error)
}

type SettingsReader interface {
	GetAutoApproval(ctx context.Context) (settings.AutoApproval, error)
}

// Notifier is satisfied by *notify.Gate.
type Notifier interface {
	Dispatch(ctx context.Context, o *orders.Order, ev notify.Event) notify.Outcome
}

// Service applies lifecycle transitions. Every method re-reads the order
// and treats "already there" as success.
type Service struct {
	orders    OrderStore
	customers CustomerStore
	settings  SettingsReader
	notifier  Notifier
	nowFunc   func() time.Time
}

func NewService(orderStore OrderStore, customerStore CustomerStore, settingsReader SettingsReader, notifier Notifier) *Service {
	return &Service{
		orders:    orderStore,
		customers: customerStore,
		settings:  settingsReader,
		notifier:  notifier,
		nowFunc:   time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowFunc = now
	return s
}

// NewOrder is the input to CreateOrder.
type NewOrder struct {
	Source          string
	Customer        orders.CustomerInfo
	ShippingAddress orders.Address
	Items           []orders.LineItem
	Shipping        float64
	Discount        float64
	GrandTotal      float64
	PaymentMethod   status.PaymentMethod
	GatewayOrderID  string
	WhatsAppOptIn   *bool
}

// Get returns the order or orders.ErrNotFound.
func (s *Service) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

// CreateOrder issues an id, runs auto-approval and persists the order.
// The customer record is created afterwards for first-time buyers, so a
// first order always lands in the manual queue.
func (s *Service) CreateOrder(ctx context.Context, in NewOrder) (*orders.Order, approval.Decision, error) {
	phone := customers.NormalizePhone(in.Customer.Phone)
	if phone == "" {
		return nil, approval.Decision{}, fmt.Errorf("%w: customer phone is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return nil, approval.Decision{}, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	if in.PaymentMethod == status.PaymentMethodPrepaid && in.GatewayOrderID == "" {
		return nil, approval.Decision{}, fmt.Errorf("%w: prepaid order needs a gateway order id", ErrInvalidOrder)
	}

	cust, err := s.customers.Get(ctx, phone)
	if err != nil {
		return nil, approval.Decision{}, fmt.Errorf("load customer: %w", err)
	}
	cfg, err := s.settings.GetAutoApproval(ctx)
	if err != nil {
		log.Printf("[lifecycle] auto-approval settings unavailable, using defaults: %v", err)
		cfg = settings.Defaults()
	}

	now := s.nowFunc()
	o := &orders.Order{
		Source:          in.Source,
		CustomerInfo:    orders.CustomerInfo{Name: in.Customer.Name, Phone: phone, Email: in.Customer.Email},
		ShippingAddress: in.ShippingAddress,
		Items:           in.Items,
		PaymentInfo: orders.PaymentInfo{
			Method:          in.PaymentMethod,
			Status:          status.PaymentStatusPending,
			RazorpayOrderID: in.GatewayOrderID,
		},
		CustomerNotifications: orders.CustomerNotifications{
			Preferences: orders.NotificationPreferences{WhatsApp: in.WhatsAppOptIn},
		},
		CreatedAt: now,
	}
	var subtotal float64
	for _, it := range in.Items {
		subtotal += float64(it.Quantity) * it.UnitPrice
		if !it.HasShippingData() {
			o.NeedsManualVerification = true
		}
	}
	o.PricingInfo = orders.PricingInfo{Subtotal: subtotal, Shipping: in.Shipping, Discount: in.Discount, GrandTotal: in.GrandTotal}

	decision := approval.Evaluate(approval.Input{
		GrandTotal:              in.GrandTotal,
		DistinctItems:           o.DistinctItemCount(),
		NeedsManualVerification: o.NeedsManualVerification,
		Customer:                cust,
	}, cfg, now)

	o.Approval = orders.Approval{Status: decision.ApprovalStatus, Reasons: decision.Reasons}
	if decision.Approved {
		o.Approval.DecidedAt = &now
		o.Approval.DecidedBy = orders.ActorSystem
	}
	if in.PaymentMethod == status.PaymentMethodPrepaid {
		o.SetStatus(status.PaymentPending)
	} else {
		o.SetStatus(decision.InternalStatus)
	}

	if o.OrderID, err = s.orders.NextOrderID(ctx); err != nil {
		return nil, decision, err
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, decision, err
	}
	metrics.OrdersCreatedTotal.WithLabelValues(string(in.PaymentMethod), string(decision.ApprovalStatus)).Inc()
	log.Printf("[lifecycle] created order=%s status=%s approval=%s reasons=%v",
		o.OrderID, o.InternalStatus, o.Approval.Status, o.Approval.Reasons)

	if cust == nil {
		if _, err := s.customers.CreateIfAbsent(ctx, &customers.Customer{Phone: phone, Name: in.Customer.Name, Email: in.Customer.Email}); err != nil {
			log.Printf("[lifecycle] create customer failed order=%s phone=%s: %v", o.OrderID, phone, err)
		}
	}

	if in.PaymentMethod != status.PaymentMethodPrepaid {
		s.notifier.Dispatch(ctx, o, notify.EventOrderPlaced)
	}
	return o, decision, nil
}

// transition runs fn inside a version-guarded write and dispatches the
// notification event fn selected, if any, after the write succeeded. The
// returned event is the one dispatched.
func (s *Service) transition(ctx context.Context, orderID string, fn func(o *orders.Order, ev *notify.Event) (bool, error)) (*orders.Order, notify.Event, error) {
	var ev notify.Event
	o, changed, err := s.orders.Mutate(ctx, orderID, func(o *orders.Order) (bool, error) {
		ev = ""
		return fn(o, &ev)
	})
	if err != nil {
		return o, "", err
	}
	if !changed || ev == "" {
		return o, "", nil
	}
	s.notifier.Dispatch(ctx, o, ev)
	return o, ev, nil
}
