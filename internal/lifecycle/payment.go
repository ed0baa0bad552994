package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/unifly3582/orderflow/internal/metrics"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/status"
)

// ActorGateway marks changes driven by payment gateway webhooks.
const ActorGateway = "razorpay"

// PaymentEvent is a verified gateway webhook, already decoded.
type PaymentEvent struct {
	Type status.PaymentEvent
	// OrderRef is our order id as carried in the gateway notes or receipt,
	// if present.
	OrderRef         string
	GatewayOrderID   string
	PaymentID        string
	Amount           float64
	ErrorCode        string
	ErrorDescription string
	RefundID         string
	RefundAmount     float64
}

// PaymentResult describes what HandlePaymentEvent did.
type PaymentResult struct {
	OrderID string
	Applied bool
	Event   notify.Event
}

// HandlePaymentEvent applies a gateway event to its order. Replays of an
// event already reflected on the order are no-ops.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev PaymentEvent) (PaymentResult, error) {
	var res PaymentResult
	if ev.GatewayOrderID == "" {
		return res, fmt.Errorf("%w: missing gateway order id", ErrInvalidEvent)
	}
	if _, err := status.MapPaymentEvent(ev.Type, status.PaymentPending, false); err != nil {
		metrics.PaymentEventsTotal.WithLabelValues(string(ev.Type), "unsupported").Inc()
		return res, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	o, err := s.resolve(ctx, ev)
	if err != nil {
		metrics.PaymentEventsTotal.WithLabelValues(string(ev.Type), "unresolved").Inc()
		return res, err
	}
	res.OrderID = o.OrderID

	var applied bool
	updated, dispatched, err := s.transition(ctx, o.OrderID, func(cur *orders.Order, notification *notify.Event) (bool, error) {
		if cur.PaymentInfo.RazorpayOrderID != ev.GatewayOrderID {
			return false, ErrGatewayMismatch
		}
		changed, next := s.applyPayment(cur, ev)
		*notification = next
		applied = changed
		return changed, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrGatewayMismatch) {
			outcome = "mismatch"
		}
		metrics.PaymentEventsTotal.WithLabelValues(string(ev.Type), outcome).Inc()
		return res, fmt.Errorf("apply %s to order %s: %w", ev.Type, o.OrderID, err)
	}

	res.Applied = applied
	res.Event = dispatched
	if applied {
		metrics.PaymentEventsTotal.WithLabelValues(string(ev.Type), "applied").Inc()
	} else {
		metrics.PaymentEventsTotal.WithLabelValues(string(ev.Type), "duplicate").Inc()
	}
	log.Printf("[lifecycle] payment event=%s order=%s applied=%t status=%s payment=%s",
		ev.Type, o.OrderID, applied, updated.InternalStatus, updated.PaymentInfo.Status)
	return res, nil
}

// resolve finds the order an event belongs to: our own reference first,
// then the gateway order id index.
func (s *Service) resolve(ctx context.Context, ev PaymentEvent) (*orders.Order, error) {
	if ev.OrderRef != "" {
		o, err := s.orders.Get(ctx, ev.OrderRef)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}
	o, err := s.orders.FindByGatewayOrderID(ctx, ev.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: gateway order %s", orders.ErrNotFound, ev.GatewayOrderID)
	}
	return o, nil
}

// applyPayment mutates o for ev and returns whether anything changed along
// with the notification the change calls for.
func (s *Service) applyPayment(o *orders.Order, ev PaymentEvent) (bool, notify.Event) {
	eff, _ := status.MapPaymentEvent(ev.Type, o.InternalStatus, o.NeedsManualVerification)
	now := s.nowFunc()
	p := &o.PaymentInfo

	switch ev.Type {
	case status.EventOrderPaid:
		if p.Status == status.PaymentStatusCompleted || p.Status == status.PaymentStatusRefunded {
			return false, ""
		}
		retried := cancelledByFailedPayment(o)
		p.Status = *eff.PaymentStatus
		p.AmountPaid = ev.Amount
		p.PaidAt = &now
		if ev.PaymentID != "" {
			p.RazorpayPaymentID = ev.PaymentID
		}
		if retried {
			// the customer paid on a retry of the same gateway order
			eff, _ = status.MapPaymentEvent(ev.Type, status.PaymentPending, o.NeedsManualVerification)
			o.Cancellation = nil
			log.Printf("[lifecycle] restoring order=%s after payment retry payment=%s", o.OrderID, ev.PaymentID)
		}
		if eff.InternalStatus == nil {
			if o.InternalStatus.IsTerminal() {
				log.Printf("[lifecycle] WARN payment captured on %s order=%s", o.InternalStatus, o.OrderID)
			}
			return true, ""
		}
		o.SetStatus(*eff.InternalStatus)
		return true, notify.EventOrderPlaced

	case status.EventPaymentFailed:
		if p.Status == status.PaymentStatusCompleted || p.Status == status.PaymentStatusRefunded {
			// an earlier attempt failed after a later one succeeded
			return false, ""
		}
		if p.Status == status.PaymentStatusFailed && p.RazorpayPaymentID == ev.PaymentID && p.FailureCode == ev.ErrorCode {
			return false, ""
		}
		p.Status = *eff.PaymentStatus
		p.FailureCode = ev.ErrorCode
		p.FailureReason = ev.ErrorDescription
		if ev.PaymentID != "" {
			p.RazorpayPaymentID = ev.PaymentID
		}
		if eff.InternalStatus == nil {
			return true, ""
		}
		o.Cancel(ActorGateway, "payment failed: "+ev.ErrorDescription, now)
		return true, notify.EventPaymentFailed

	case status.EventPaymentAuthorized, status.EventPaymentCaptured:
		if ev.PaymentID == "" || p.RazorpayPaymentID == ev.PaymentID {
			return false, ""
		}
		p.RazorpayPaymentID = ev.PaymentID
		return true, ""

	case status.EventRefundCreated:
		if p.Status == status.PaymentStatusRefunded && p.RazorpayRefundID == ev.RefundID {
			return false, ""
		}
		p.Status = *eff.PaymentStatus
		p.RazorpayRefundID = ev.RefundID
		p.RefundAmount = ev.RefundAmount
		p.RefundedAt = &now
		if o.InternalStatus.IsTerminal() {
			// refunds after delivery or return settle money only
			return true, ""
		}
		o.Cancel(ActorGateway, "refunded", now)
		return true, notify.EventCancelled

	case status.EventRefundProcessed:
		if p.RefundProcessedAt != nil {
			return false, ""
		}
		p.RefundProcessedAt = &now
		if p.RazorpayRefundID == "" {
			p.RazorpayRefundID = ev.RefundID
		}
		return true, ""
	}
	return false, ""
}

// cancelledByFailedPayment reports whether o was cancelled only because a
// gateway payment attempt failed, which a later successful attempt undoes.
func cancelledByFailedPayment(o *orders.Order) bool {
	return o.InternalStatus == status.Cancelled &&
		o.PaymentInfo.Status == status.PaymentStatusFailed &&
		o.Cancellation != nil &&
		o.Cancellation.By == ActorGateway
}
