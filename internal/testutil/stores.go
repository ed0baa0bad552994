// Package testutil provides in-memory stand-ins for the DynamoDB stores and
// external channels, for service-level tests.
package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/unifly3582/orderflow/internal/customers"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/settings"
)

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// clone deep-copies through the same codec the real store uses, so tests
// also catch fields that do not survive persistence.
func clone[T any](v T) T {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		panic(err)
	}
	return out
}

// Orders is an in-memory orders store with Store's semantics.
type Orders struct {
	mu      sync.Mutex
	items   map[string]orders.Order
	counter int64
	Now     func() time.Time
	Writes  int
	// MutateErr, when set, is returned by every Mutate call.
	MutateErr error
}

func NewOrders() *Orders {
	return &Orders{items: map[string]orders.Order{}, Now: time.Now}
}

func (s *Orders) NextOrderID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return strconv.FormatInt(10000+s.counter, 10), nil
}

func (s *Orders) Create(ctx context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[o.OrderID]; ok {
		return orders.ErrOrderExists
	}
	now := s.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.Version = 1
	o.GatewayOrderID = o.PaymentInfo.RazorpayOrderID
	s.items[o.OrderID] = clone(*o)
	s.Writes++
	return nil
}

// Put stores o as-is, for seeding.
func (s *Orders) Put(o orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Version == 0 {
		o.Version = 1
	}
	o.GatewayOrderID = o.PaymentInfo.RazorpayOrderID
	s.items[o.OrderID] = clone(o)
}

func (s *Orders) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[orderID]
	if !ok {
		return nil, nil
	}
	c := clone(o)
	return &c, nil
}

// MustGet is Get for tests that know the order exists.
func (s *Orders) MustGet(orderID string) orders.Order {
	o, _ := s.Get(context.Background(), orderID)
	if o == nil {
		panic("order " + orderID + " not found")
	}
	return *o
}

func (s *Orders) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.items {
		if o.GatewayOrderID == gatewayOrderID {
			c := clone(o)
			return &c, nil
		}
	}
	return nil, nil
}

// Mutate holds the lock for the whole read-modify-write, which gives the
// same outcome as the version-guarded write of the real store.
func (s *Orders) Mutate(ctx context.Context, orderID string, fn func(*orders.Order) (bool, error)) (*orders.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MutateErr != nil {
		return nil, false, s.MutateErr
	}
	cur, ok := s.items[orderID]
	if !ok {
		return nil, false, orders.ErrNotFound
	}
	o := clone(cur)
	changed, err := fn(&o)
	if err != nil {
		return &o, false, err
	}
	if !changed {
		return &o, false, nil
	}
	o.Version++
	o.UpdatedAt = s.Now()
	o.GatewayOrderID = o.PaymentInfo.RazorpayOrderID
	s.items[orderID] = clone(o)
	s.Writes++
	return &o, true, nil
}

func (s *Orders) ListNeedingTracking(ctx context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.items {
		if o.NeedsTracking {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

// Customers is an in-memory customers store.
type Customers struct {
	mu    sync.Mutex
	items map[string]customers.Customer
	Now   func() time.Time
}

func NewCustomers(seed ...customers.Customer) *Customers {
	c := &Customers{items: map[string]customers.Customer{}, Now: time.Now}
	for _, cu := range seed {
		c.items[cu.Phone] = cu
	}
	return c
}

func (s *Customers) Get(ctx context.Context, phone string) (*customers.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[phone]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Customers) CreateIfAbsent(ctx context.Context, c *customers.Customer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[c.Phone]; ok {
		return false, nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.Now()
	}
	s.items[c.Phone] = *c
	return true, nil
}

// Settings serves a fixed auto-approval configuration.
type Settings struct {
	mu    sync.Mutex
	Value settings.AutoApproval
	Err   error
}

func (s *Settings) GetAutoApproval(ctx context.Context) (settings.AutoApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Value, s.Err
}

func (s *Settings) PutAutoApproval(ctx context.Context, a settings.AutoApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Value = a
	return s.Err
}

// NotificationLog is an in-memory append-only log.
type NotificationLog struct {
	mu      sync.Mutex
	entries []notify.LogEntry
}

func (l *NotificationLog) Append(ctx context.Context, e notify.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *NotificationLog) ListByOrder(ctx context.Context, orderID string) ([]notify.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []notify.LogEntry
	for _, e := range l.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns every entry, optionally filtered by event.
func (l *NotificationLog) Entries(events ...notify.Event) []notify.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(events) == 0 {
		return append([]notify.LogEntry(nil), l.entries...)
	}
	var out []notify.LogEntry
	for _, e := range l.entries {
		for _, ev := range events {
			if e.Event == ev {
				out = append(out, e)
			}
		}
	}
	return out
}
