package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/unifly3582/orderflow/internal/courier"
)

// Courier serves canned tracking updates keyed by AWB.
type Courier struct {
	mu      sync.Mutex
	updates map[string]courier.Update
	errs    map[string]error
	Calls   int
}

func NewCourier() *Courier {
	return &Courier{updates: map[string]courier.Update{}, errs: map[string]error{}}
}

// Set makes the next Track calls for awb report rawStatus.
func (c *Courier) Set(awb, rawStatus string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates[awb] = courier.Update{AWB: awb, Status: rawStatus}
	delete(c.errs, awb)
}

// Fail makes Track fail for awb.
func (c *Courier) Fail(awb string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[awb] = err
}

func (c *Courier) Track(ctx context.Context, awb string) (courier.Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if err := c.errs[awb]; err != nil {
		return courier.Update{}, err
	}
	u, ok := c.updates[awb]
	if !ok {
		return courier.Update{}, fmt.Errorf("%w %s", courier.ErrNoShipment, awb)
	}
	return u, nil
}

// Queue records published messages.
type Queue struct {
	mu       sync.Mutex
	Messages []any
	Err      error
}

func (q *Queue) Publish(ctx context.Context, message any, attributes map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Messages = append(q.Messages, message)
	return nil
}
