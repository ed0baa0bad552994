// Package notify decides whether a customer notification goes out for an
// order milestone and keeps the per-order ledger that makes it at-most-once.
package notify

import "github.com/unifly3582/orderflow/internal/status"

// Event is a logical notification milestone. It is the idempotency key:
// one order is notified at most once per consecutive Event.
type Event string

const (
	EventOrderPlaced    Event = "order_placed"
	EventShipped        Event = "shipped"
	EventOutForDelivery Event = "out_for_delivery"
	EventDelivered      Event = "delivered"
	EventCancelled      Event = "cancelled"
	EventPaymentFailed  Event = "payment_failed"
)

// EventForStatus names the milestone for an internal status, used when no
// more specific event applies.
func EventForStatus(s status.Internal) Event {
	return Event(s)
}

// Skip explains why a notification was not sent.
type Skip string

const (
	SkipNoEvent     Skip = "no_event"
	SkipOptedOut    Skip = "opted_out"
	SkipAlreadySent Skip = "already_sent"
	SkipNoTemplate  Skip = "no_template"
	SkipNoPhone     Skip = "no_phone"
)

// Outcome is the result of one Dispatch call.
type Outcome struct {
	Event     Event
	Sent      bool
	Skipped   Skip
	MessageID string
	Err       error
}
