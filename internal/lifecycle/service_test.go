package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifly3582/orderflow/internal/approval"
	"github.com/unifly3582/orderflow/internal/customers"
	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/settings"
	"github.com/unifly3582/orderflow/internal/status"
	"github.com/unifly3582/orderflow/internal/testutil"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock     *testutil.Clock
	orders    *testutil.Orders
	customers *testutil.Customers
	settings  *testutil.Settings
	log       *testutil.NotificationLog
	channel   *testutil.Channel
	svc       *lifecycle.Service
}

func newFixture(t *testing.T, seed ...customers.Customer) *fixture {
	t.Helper()
	f := &fixture{
		clock:     testutil.NewClock(now),
		orders:    testutil.NewOrders(),
		customers: testutil.NewCustomers(seed...),
		settings: &testutil.Settings{Value: settings.AutoApproval{
			MaxAutoApprovalValue: 2000,
			MinCustomerAgeDays:   30,
		}},
		log:     &testutil.NotificationLog{},
		channel: &testutil.Channel{},
	}
	f.orders.Now = f.clock.Now
	f.customers.Now = f.clock.Now
	gate := notify.NewGate(f.channel, f.log, f.orders, nil)
	f.svc = lifecycle.NewService(f.orders, f.customers, f.settings, gate).WithClock(f.clock.Now)
	return f
}

func veteran() customers.Customer {
	return customers.Customer{Phone: "+919876543210", Name: "Asha", CreatedAt: now.AddDate(0, 0, -90)}
}

func measuredItem() orders.LineItem {
	return orders.LineItem{
		SKU: "tea", Name: "Assam Tea", Quantity: 2, UnitPrice: 250, WeightGram: 500,
		Dimensions: &orders.Dimensions{LengthCM: 10, BreadthCM: 10, HeightCM: 5},
	}
}

func codOrder(total float64) lifecycle.NewOrder {
	return lifecycle.NewOrder{
		Source:          "storefront",
		Customer:        orders.CustomerInfo{Name: "Asha", Phone: "9876543210"},
		ShippingAddress: orders.Address{Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"},
		Items:           []orders.LineItem{measuredItem()},
		GrandTotal:      total,
		PaymentMethod:   status.PaymentMethodCOD,
	}
}

func prepaidOrder(total float64, gatewayID string) lifecycle.NewOrder {
	in := codOrder(total)
	in.PaymentMethod = status.PaymentMethodPrepaid
	in.GatewayOrderID = gatewayID
	return in
}

func TestCreateOrder_AutoApprovesVeteranCOD(t *testing.T) {
	f := newFixture(t, veteran())

	o, d, err := f.svc.CreateOrder(context.Background(), codOrder(500))
	require.NoError(t, err)

	assert.True(t, d.Approved)
	assert.Equal(t, "10001", o.OrderID)
	assert.Equal(t, status.CreatedPending, o.InternalStatus)
	assert.Equal(t, status.FacingConfirmed, o.CustomerFacingStatus)
	assert.Equal(t, orders.ApprovalApproved, o.Approval.Status)
	assert.Equal(t, orders.ActorSystem, o.Approval.DecidedBy)
	assert.Equal(t, "+919876543210", o.CustomerInfo.Phone)
	assert.Equal(t, 500.0, o.PricingInfo.Subtotal)
	assert.Equal(t, status.PaymentStatusPending, o.PaymentInfo.Status)

	assert.Equal(t, []string{"order_confirmation"}, f.channel.Templates())
	stored := f.orders.MustGet(o.OrderID)
	assert.Equal(t, string(notify.EventOrderPlaced), stored.NotificationHistory.LastEvent)
}

func TestCreateOrder_NewCustomerGoesToManualQueue(t *testing.T) {
	f := newFixture(t)

	o, d, err := f.svc.CreateOrder(context.Background(), codOrder(500))
	require.NoError(t, err)

	assert.False(t, d.Approved)
	assert.Equal(t, orders.ApprovalPending, o.Approval.Status)
	assert.Equal(t, []string{approval.ReasonCustomerNotFound}, o.Approval.Reasons)

	c, err := f.customers.Get(context.Background(), "+919876543210")
	require.NoError(t, err)
	require.NotNil(t, c, "first order creates the customer record")
	assert.Equal(t, "Asha", c.Name)
}

func TestCreateOrder_MissingDimensionsNeedsVerification(t *testing.T) {
	f := newFixture(t, veteran())
	in := codOrder(500)
	in.Items[0].Dimensions = nil

	o, _, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, o.NeedsManualVerification)
	assert.Equal(t, status.NeedsManualVerification, o.InternalStatus)
}

func TestCreateOrder_SettingsErrorFallsBackToDefaults(t *testing.T) {
	f := newFixture(t, veteran())
	f.settings.Err = errors.New("throttled")

	o, d, err := f.svc.CreateOrder(context.Background(), codOrder(100))
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, []string{approval.ReasonAutoApprovalOff}, o.Approval.Reasons)
}

func TestCreateOrder_PrepaidWaitsForPayment(t *testing.T) {
	f := newFixture(t, veteran())

	o, _, err := f.svc.CreateOrder(context.Background(), prepaidOrder(500, "order_rzp1"))
	require.NoError(t, err)
	assert.Equal(t, status.PaymentPending, o.InternalStatus)
	assert.Equal(t, "order_rzp1", o.PaymentInfo.RazorpayOrderID)
	assert.Empty(t, f.channel.Sent, "prepaid orders are confirmed on payment")
}

func TestCreateOrder_Rejects(t *testing.T) {
	f := newFixture(t)

	noPhone := codOrder(100)
	noPhone.Customer.Phone = ""
	_, _, err := f.svc.CreateOrder(context.Background(), noPhone)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidOrder)

	_, _, err = f.svc.CreateOrder(context.Background(), prepaidOrder(100, ""))
	assert.ErrorIs(t, err, lifecycle.ErrInvalidOrder)

	noItems := codOrder(100)
	noItems.Items = nil
	_, _, err = f.svc.CreateOrder(context.Background(), noItems)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidOrder)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "404")
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, lifecycle.CanTransition(status.PaymentPending, status.CreatedPending))
	assert.True(t, lifecycle.CanTransition(status.InTransit, status.Delivered))
	assert.True(t, lifecycle.CanTransition(status.Shipped, status.ReturnInitiated))
	assert.True(t, lifecycle.CanTransition(status.ReturnInitiated, status.Returned))

	assert.False(t, lifecycle.CanTransition(status.ReturnInitiated, status.InTransit))
	assert.False(t, lifecycle.CanTransition(status.ReturnInitiated, status.Cancelled))
	assert.False(t, lifecycle.CanTransition(status.Shipped, status.Shipped))
	for _, terminal := range []status.Internal{status.Delivered, status.Returned, status.Cancelled} {
		for _, to := range status.All {
			assert.False(t, lifecycle.CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}
