// Package tracking keeps shipped orders in step with the courier.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unifly3582/orderflow/internal/courier"
	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/metrics"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/status"
)

const DefaultConcurrency = 8

var (
	ErrAWBMismatch = errors.New("tracking update awb does not match order")
	ErrNotTracked  = errors.New("order is not being tracked")
)

type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	Mutate(ctx context.Context, orderID string, fn func(*orders.Order) (bool, error)) (*orders.Order, bool, error)
	ListNeedingTracking(ctx context.Context) ([]orders.Order, error)
}

// Tracker is satisfied by *courier.Client.
type Tracker interface {
	Track(ctx context.Context, awb string) (courier.Update, error)
}

// Notifier is satisfied by *notify.Gate.
type Notifier interface {
	Dispatch(ctx context.Context, o *orders.Order, ev notify.Event) notify.Outcome
}

// Queue is satisfied by *aws.Publisher.
type Queue interface {
	Publish(ctx context.Context, message any, attributes map[string]string) error
}

// SyncMessage asks a worker to reconcile one order.
type SyncMessage struct {
	OrderID string `json:"order_id"`
	AWB     string `json:"awb"`
}

// Result is the outcome of reconciling one order.
type Result struct {
	OrderID       string          `json:"orderId"`
	AWB           string          `json:"awb,omitempty"`
	CourierStatus string          `json:"courierStatus,omitempty"`
	Status        status.Internal `json:"status,omitempty"`
	Changed       bool            `json:"changed"`
	Event         notify.Event    `json:"event,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type Reconciler struct {
	orders      OrderStore
	tracker     Tracker
	notifier    Notifier
	queue       Queue
	concurrency int
	nowFunc     func() time.Time
}

// NewReconciler wires a reconciler. queue may be nil when Enqueue is not
// used.
func NewReconciler(orderStore OrderStore, tracker Tracker, notifier Notifier, queue Queue) *Reconciler {
	return &Reconciler{
		orders:      orderStore,
		tracker:     tracker,
		notifier:    notifier,
		queue:       queue,
		concurrency: DefaultConcurrency,
		nowFunc:     time.Now,
	}
}

func (r *Reconciler) WithConcurrency(n int) *Reconciler {
	if n > 0 {
		r.concurrency = n
	}
	return r
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.nowFunc = now
	return r
}

// Apply folds one courier observation into the order. It serves both the
// scheduled poll and the courier push webhook. Orders without an AWB or
// no longer tracked are refused with ErrNotTracked.
func (r *Reconciler) Apply(ctx context.Context, orderID string, u courier.Update) (Result, error) {
	res := Result{OrderID: orderID, AWB: u.AWB, CourierStatus: u.Status}
	var (
		proposed notify.Event
		changed  bool
	)
	o, _, err := r.orders.Mutate(ctx, orderID, func(o *orders.Order) (bool, error) {
		proposed, changed = "", false
		if !o.NeedsTracking || o.ShipmentInfo.AWB == "" {
			return false, fmt.Errorf("%w: order %s is %s", ErrNotTracked, o.OrderID, o.InternalStatus)
		}
		if u.AWB != "" && u.AWB != o.ShipmentInfo.AWB {
			return false, fmt.Errorf("%w: got %s, order has %s", ErrAWBMismatch, u.AWB, o.ShipmentInfo.AWB)
		}
		now := r.nowFunc()
		o.ShipmentInfo.LastTrackedAt = &now
		if u.Status == o.ShipmentInfo.CurrentTrackingStatus {
			return true, nil
		}

		changed = true
		o.ShipmentInfo.CurrentTrackingStatus = u.Status
		if u.Location != "" {
			o.ShipmentInfo.TrackingLocation = u.Location
		}
		if u.ExpectedDelivery != nil {
			o.ShipmentInfo.ExpectedDeliveryDate = u.ExpectedDelivery
		}

		mapped, known := status.MapCourierStatus(u.Status)
		if !known {
			metrics.UnmappedCourierStatusTotal.Inc()
			log.Printf("[tracking] WARN unmapped courier status order=%s awb=%s status=%q", o.OrderID, o.ShipmentInfo.AWB, u.Status)
		}
		ev := proposeEvent(o, u.Status, mapped)
		if !advance(o, mapped) {
			ev = ""
		}
		if o.InternalStatus.IsTerminal() {
			o.NeedsTracking = false
		}
		proposed = ev
		return true, nil
	})
	if err != nil {
		metrics.TrackingSyncTotal.WithLabelValues("failed").Inc()
		res.Error = err.Error()
		return res, err
	}

	res.Status = o.InternalStatus
	res.Changed = changed
	if !changed {
		metrics.TrackingSyncTotal.WithLabelValues("unchanged").Inc()
		return res, nil
	}
	metrics.TrackingSyncTotal.WithLabelValues("updated").Inc()
	log.Printf("[tracking] order=%s awb=%s courier_status=%q status=%s event=%s",
		o.OrderID, o.ShipmentInfo.AWB, u.Status, o.InternalStatus, proposed)

	if proposed != "" {
		r.notifier.Dispatch(ctx, o, proposed)
		res.Event = proposed
	}
	return res, nil
}

// proposeEvent picks the notification for a changed courier status.
func proposeEvent(o *orders.Order, raw string, mapped status.Internal) notify.Event {
	switch {
	case status.IsOutForDelivery(raw):
		return notify.EventOutForDelivery
	case mapped.InCourierPhase():
		if !o.NotificationHistory.HasSent(string(notify.EventShipped)) {
			return notify.EventShipped
		}
		// transit legs after the first scan are not customer milestones
		return ""
	default:
		return notify.Event(mapped)
	}
}

// advance moves o to mapped unless that would go backwards. It reports
// false when the move was refused.
func advance(o *orders.Order, mapped status.Internal) bool {
	cur := o.InternalStatus
	switch {
	case cur == mapped:
		return true
	case cur.IsTerminal():
		log.Printf("[tracking] WARN order=%s is %s, ignoring courier %s", o.OrderID, cur, mapped)
		return false
	case cur == status.ReturnInitiated && mapped.InCourierPhase():
		return false
	case !lifecycle.CanTransition(cur, mapped):
		log.Printf("[tracking] WARN order=%s refusing %s -> %s", o.OrderID, cur, mapped)
		return false
	}
	o.SetStatus(mapped)
	return true
}

// SyncOrder polls the courier for one order and applies the result.
func (r *Reconciler) SyncOrder(ctx context.Context, orderID string) (Result, error) {
	o, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return Result{OrderID: orderID, Error: err.Error()}, err
	}
	if o == nil {
		return Result{OrderID: orderID, Error: orders.ErrNotFound.Error()}, orders.ErrNotFound
	}
	if !o.NeedsTracking || o.ShipmentInfo.AWB == "" {
		return Result{OrderID: orderID, Status: o.InternalStatus}, ErrNotTracked
	}

	u, err := r.tracker.Track(ctx, o.ShipmentInfo.AWB)
	if err != nil {
		metrics.TrackingSyncTotal.WithLabelValues("failed").Inc()
		log.Printf("[tracking] courier lookup failed order=%s awb=%s: %v", orderID, o.ShipmentInfo.AWB, err)
		return Result{OrderID: orderID, AWB: o.ShipmentInfo.AWB, Status: o.InternalStatus, Error: err.Error()}, err
	}
	if u.AWB == "" {
		u.AWB = o.ShipmentInfo.AWB
	}
	return r.Apply(ctx, orderID, u)
}

// SyncAll reconciles every tracked order with bounded parallelism. A
// failing order is reported in its Result and never stops the batch.
func (r *Reconciler) SyncAll(ctx context.Context) ([]Result, error) {
	tracked, err := r.orders.ListNeedingTracking(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(tracked))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range tracked {
		i := i // per-iteration copy; go.mod targets go1.21 loop semantics
		id := tracked[i].OrderID
		g.Go(func() error {
			res, err := r.SyncOrder(ctx, id)
			switch {
			case errors.Is(err, ErrNotTracked):
				// finished since the list was taken
			case err != nil && res.Error == "":
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("[tracking] sync complete orders=%d failed=%d", len(results), Failed(results))
	return results, nil
}

// Enqueue publishes one SyncMessage per tracked order and returns how many
// were sent.
func (r *Reconciler) Enqueue(ctx context.Context) (int, error) {
	if r.queue == nil {
		return 0, errors.New("tracking queue not configured")
	}
	tracked, err := r.orders.ListNeedingTracking(ctx)
	if err != nil {
		return 0, err
	}
	var (
		sent int
		errs []error
	)
	for _, o := range tracked {
		if o.ShipmentInfo.AWB == "" {
			continue
		}
		msg := SyncMessage{OrderID: o.OrderID, AWB: o.ShipmentInfo.AWB}
		if err := r.queue.Publish(ctx, msg, map[string]string{"order_id": o.OrderID}); err != nil {
			errs = append(errs, fmt.Errorf("enqueue order %s: %w", o.OrderID, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Failed counts results carrying an error.
func Failed(results []Result) int {
	n := 0
	for _, res := range results {
		if res.Error != "" {
			n++
		}
	}
	return n
}
