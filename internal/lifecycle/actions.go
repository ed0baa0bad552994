package lifecycle

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/status"
)

// Approve records an admin approval. Orders waiting in the manual queue
// move to approved; orders still awaiting payment cannot be approved.
func (s *Service) Approve(ctx context.Context, orderID, adminID string) (*orders.Order, error) {
	o, _, err := s.transition(ctx, orderID, func(o *orders.Order, _ *notify.Event) (bool, error) {
		if o.Approval.Status == orders.ApprovalApproved {
			return false, nil
		}
		if o.InternalStatus == status.PaymentPending || o.InternalStatus.IsTerminal() {
			return false, fmt.Errorf("%w: cannot approve %s order", ErrInvalidTransition, o.InternalStatus)
		}
		now := s.nowFunc()
		o.Approval.Status = orders.ApprovalApproved
		o.Approval.DecidedAt = &now
		o.Approval.DecidedBy = adminID
		if o.InternalStatus == status.CreatedPending || o.InternalStatus == status.NeedsManualVerification {
			if !o.NeedsManualVerification {
				o.SetStatus(status.Approved)
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] approve order=%s by=%s status=%s", orderID, adminID, o.InternalStatus)
	return o, nil
}

// Reject records an admin rejection and cancels the order.
func (s *Service) Reject(ctx context.Context, orderID, adminID, reason string) (*orders.Order, error) {
	o, _, err := s.transition(ctx, orderID, func(o *orders.Order, ev *notify.Event) (bool, error) {
		if o.Approval.Status == orders.ApprovalRejected {
			return false, nil
		}
		if !CanTransition(o.InternalStatus, status.Cancelled) || inCourierHands(o.InternalStatus) {
			return false, fmt.Errorf("%w: cannot reject %s order", ErrInvalidTransition, o.InternalStatus)
		}
		now := s.nowFunc()
		o.Approval.Status = orders.ApprovalRejected
		o.Approval.DecidedAt = &now
		o.Approval.DecidedBy = adminID
		if reason = strings.TrimSpace(reason); reason != "" {
			o.Approval.Reasons = append(o.Approval.Reasons, reason)
		}
		o.Cancel(adminID, reason, now)
		*ev = notify.EventCancelled
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] reject order=%s by=%s", orderID, adminID)
	return o, nil
}

// Cancel cancels any order that has not reached a terminal state or the
// return leg.
func (s *Service) Cancel(ctx context.Context, orderID, actor, reason string) (*orders.Order, error) {
	o, _, err := s.transition(ctx, orderID, func(o *orders.Order, ev *notify.Event) (bool, error) {
		if o.InternalStatus == status.Cancelled {
			return false, nil
		}
		if !CanTransition(o.InternalStatus, status.Cancelled) {
			return false, fmt.Errorf("%w: cannot cancel %s order", ErrInvalidTransition, o.InternalStatus)
		}
		o.Cancel(actor, strings.TrimSpace(reason), s.nowFunc())
		*ev = notify.EventCancelled
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] cancel order=%s by=%s", orderID, actor)
	return o, nil
}

// MarkReadyForShipping confirms weight and dimensions were verified and
// queues an approved order for shipment booking.
func (s *Service) MarkReadyForShipping(ctx context.Context, orderID, actor string) (*orders.Order, error) {
	o, _, err := s.transition(ctx, orderID, func(o *orders.Order, _ *notify.Event) (bool, error) {
		if o.InternalStatus == status.ReadyForShipping {
			return false, nil
		}
		if o.Approval.Status != orders.ApprovalApproved {
			return false, ErrNotApproved
		}
		if !CanTransition(o.InternalStatus, status.ReadyForShipping) {
			return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.InternalStatus, status.ReadyForShipping)
		}
		o.NeedsManualVerification = false
		o.SetStatus(status.ReadyForShipping)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] ready for shipping order=%s by=%s", orderID, actor)
	return o, nil
}

// Shipment is the courier booking attached by CreateShipment.
type Shipment struct {
	CourierPartner string
	AWB            string
	TrackingURL    string
}

// CreateShipment attaches an AWB, marks the order shipped and enrols it
// for tracking. Repeating the call with the same AWB is a no-op.
func (s *Service) CreateShipment(ctx context.Context, orderID string, sh Shipment) (*orders.Order, error) {
	if strings.TrimSpace(sh.AWB) == "" {
		return nil, fmt.Errorf("%w: awb is required", ErrInvalidOrder)
	}
	o, _, err := s.transition(ctx, orderID, func(o *orders.Order, ev *notify.Event) (bool, error) {
		if o.ShipmentInfo.AWB == sh.AWB && o.ShipmentInfo.ShippedAt != nil {
			return false, nil
		}
		if o.Approval.Status != orders.ApprovalApproved {
			return false, ErrNotApproved
		}
		if o.NeedsManualVerification {
			return false, fmt.Errorf("%w: weight and dimensions not verified", ErrInvalidTransition)
		}
		if !CanTransition(o.InternalStatus, status.Shipped) {
			return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.InternalStatus, status.Shipped)
		}
		now := s.nowFunc()
		o.ShipmentInfo.CourierPartner = sh.CourierPartner
		o.ShipmentInfo.AWB = sh.AWB
		o.ShipmentInfo.TrackingURL = sh.TrackingURL
		o.ShipmentInfo.ShippedAt = &now
		o.NeedsTracking = true
		o.SetStatus(status.Shipped)
		*ev = notify.EventShipped
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[lifecycle] shipment order=%s awb=%s courier=%s", orderID, sh.AWB, sh.CourierPartner)
	return o, nil
}

// inCourierHands reports whether the parcel has left the warehouse.
func inCourierHands(s status.Internal) bool {
	return s.InCourierPhase() || s == status.ReturnInitiated
}
