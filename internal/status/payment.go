package status

import "fmt"

// PaymentStatus is the state of the payment attached to an order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusRefunded  PaymentStatus = "Refunded"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodPrepaid PaymentMethod = "Prepaid"
)

// PaymentEvent is a gateway webhook event type.
type PaymentEvent string

const (
	EventOrderPaid         PaymentEvent = "order.paid"
	EventPaymentFailed     PaymentEvent = "payment.failed"
	EventPaymentAuthorized PaymentEvent = "payment.authorized"
	EventPaymentCaptured   PaymentEvent = "payment.captured"
	EventRefundCreated     PaymentEvent = "refund.created"
	EventRefundProcessed   PaymentEvent = "refund.processed"
)

// PaymentEffect is what a gateway event does to an order. A nil pointer
// field leaves the corresponding order field untouched.
type PaymentEffect struct {
	PaymentStatus  *PaymentStatus
	InternalStatus *Internal
}

// MapPaymentEvent resolves a gateway event against the order's current
// status. needsManualVerification is the flag stored on the order at
// creation time; it is not re-derived here.
func MapPaymentEvent(ev PaymentEvent, current Internal, needsManualVerification bool) (PaymentEffect, error) {
	var eff PaymentEffect
	switch ev {
	case EventOrderPaid:
		eff.PaymentStatus = paymentPtr(PaymentStatusCompleted)
		if current == PaymentPending {
			next := CreatedPending
			if needsManualVerification {
				next = NeedsManualVerification
			}
			eff.InternalStatus = &next
		}
	case EventPaymentFailed:
		eff.PaymentStatus = paymentPtr(PaymentStatusFailed)
		if current == PaymentPending {
			next := Cancelled
			eff.InternalStatus = &next
		}
	case EventPaymentAuthorized, EventPaymentCaptured, EventRefundProcessed:
		// identifiers only
	case EventRefundCreated:
		eff.PaymentStatus = paymentPtr(PaymentStatusRefunded)
		next := Cancelled
		eff.InternalStatus = &next
	default:
		return eff, fmt.Errorf("unknown payment event %q", ev)
	}
	return eff, nil
}

func paymentPtr(s PaymentStatus) *PaymentStatus { return &s }
