package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/status"
	"github.com/unifly3582/orderflow/internal/testutil"
)

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return "template rejected" }
func (e *codedErr) ErrorCode() string { return e.code }

type fixture struct {
	orders  *testutil.Orders
	log     *testutil.NotificationLog
	channel *testutil.Channel
	gate    *notify.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:  testutil.NewOrders(),
		log:     &testutil.NotificationLog{},
		channel: &testutil.Channel{},
	}
	f.gate = notify.NewGate(f.channel, f.log, f.orders, nil)
	return f
}

func shippedOrder(id string) orders.Order {
	o := orders.Order{
		OrderID:         id,
		CustomerInfo:    orders.CustomerInfo{Name: "Asha", Phone: "+919876543210"},
		ShippingAddress: orders.Address{Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"},
		Items:           []orders.LineItem{{SKU: "tea", Name: "Assam Tea", Quantity: 2, UnitPrice: 250}},
		PricingInfo:     orders.PricingInfo{GrandTotal: 500},
		ShipmentInfo:    orders.ShipmentInfo{CourierPartner: "Delhivery", AWB: "AWB123"},
	}
	o.SetStatus(status.Shipped)
	return o
}

func (f *fixture) seed(o orders.Order) *orders.Order {
	f.orders.Put(o)
	got := f.orders.MustGet(o.OrderID)
	return &got
}

func TestDispatch_SendsAndAdvancesLedger(t *testing.T) {
	f := newFixture(t)
	o := f.seed(shippedOrder("10001"))

	out := f.gate.Dispatch(context.Background(), o, notify.EventShipped)

	require.True(t, out.Sent)
	assert.NoError(t, out.Err)
	assert.Equal(t, "wamid.1", out.MessageID)

	require.Len(t, f.channel.Sent, 1)
	msg := f.channel.Sent[0]
	assert.Equal(t, "+919876543210", msg.To)
	assert.Equal(t, "order_shipped", msg.Template)
	assert.Equal(t, []string{"Asha", "10001", "Delhivery", "AWB123", "https://www.delhivery.com/track/package/AWB123"}, msg.Params)

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, notify.LogStatusSent, entries[0].Status)
	assert.Equal(t, "wamid.1", entries[0].MessageID)
	assert.NotEmpty(t, entries[0].LogID)

	stored := f.orders.MustGet("10001")
	assert.Equal(t, "shipped", stored.NotificationHistory.LastEvent)
	assert.NotNil(t, stored.NotificationHistory.LastNotifiedAt)
	assert.Equal(t, "shipped", o.NotificationHistory.LastEvent, "caller copy is refreshed")
}

func TestDispatch_SameEventTwiceSendsOnce(t *testing.T) {
	f := newFixture(t)
	o := f.seed(shippedOrder("10001"))
	ctx := context.Background()

	first := f.gate.Dispatch(ctx, o, notify.EventDelivered)
	reloaded := f.orders.MustGet("10001")
	second := f.gate.Dispatch(ctx, &reloaded, notify.EventDelivered)

	assert.True(t, first.Sent)
	assert.False(t, second.Sent)
	assert.Equal(t, notify.SkipAlreadySent, second.Skipped)
	assert.Len(t, f.channel.Sent, 1)
	assert.Len(t, f.log.Entries(notify.EventDelivered), 1)
}

func TestDispatch_OptOut(t *testing.T) {
	f := newFixture(t)
	o := shippedOrder("10001")
	off := false
	o.CustomerNotifications.Preferences.WhatsApp = &off

	out := f.gate.Dispatch(context.Background(), f.seed(o), notify.EventShipped)
	assert.Equal(t, notify.SkipOptedOut, out.Skipped)
	assert.Empty(t, f.channel.Sent)
	assert.Empty(t, f.log.Entries())
}

func TestDispatch_ExplicitOptInStillSends(t *testing.T) {
	f := newFixture(t)
	o := shippedOrder("10001")
	on := true
	o.CustomerNotifications.Preferences.WhatsApp = &on

	assert.True(t, f.gate.Dispatch(context.Background(), f.seed(o), notify.EventShipped).Sent)
}

func TestDispatch_EventsWithoutTemplateAreSkipped(t *testing.T) {
	f := newFixture(t)
	o := f.seed(shippedOrder("10001"))

	out := f.gate.Dispatch(context.Background(), o, notify.EventForStatus(status.InTransit))
	assert.Equal(t, notify.SkipNoTemplate, out.Skipped)

	out = f.gate.Dispatch(context.Background(), o, "")
	assert.Equal(t, notify.SkipNoEvent, out.Skipped)
	assert.Empty(t, f.channel.Sent)
}

func TestDispatch_FailureIsLoggedAndRetryable(t *testing.T) {
	f := newFixture(t)
	f.channel.Err = &codedErr{code: "132001"}
	o := f.seed(shippedOrder("10001"))
	ctx := context.Background()

	out := f.gate.Dispatch(ctx, o, notify.EventShipped)
	require.Error(t, out.Err)
	assert.False(t, out.Sent)

	entries := f.log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, notify.LogStatusFailed, entries[0].Status)
	assert.Equal(t, "132001", entries[0].ErrorCode)
	assert.Equal(t, "template rejected", entries[0].Error)

	stored := f.orders.MustGet("10001")
	assert.Empty(t, stored.NotificationHistory.LastEvent, "failed send must not advance the ledger")

	f.channel.Err = nil
	retry := f.gate.Dispatch(ctx, &stored, notify.EventShipped)
	assert.True(t, retry.Sent)
	assert.Len(t, f.log.Entries(notify.EventShipped), 2)
}

func TestDispatch_LedgerErrorDoesNotFailSend(t *testing.T) {
	f := newFixture(t)
	o := f.seed(shippedOrder("10001"))
	f.orders.MutateErr = errors.New("dynamo down")

	out := f.gate.Dispatch(context.Background(), o, notify.EventShipped)
	assert.True(t, out.Sent)
	assert.NoError(t, out.Err)
}

func TestDispatch_NewEventAfterDifferentOneSends(t *testing.T) {
	f := newFixture(t)
	o := f.seed(shippedOrder("10001"))
	ctx := context.Background()

	require.True(t, f.gate.Dispatch(ctx, o, notify.EventShipped).Sent)
	require.True(t, f.gate.Dispatch(ctx, o, notify.EventOutForDelivery).Sent)
	require.True(t, f.gate.Dispatch(ctx, o, notify.EventDelivered).Sent)

	assert.Equal(t, []string{"order_shipped", "order_out_for_delivery", "order_delivered"}, f.channel.Templates())
	stored := f.orders.MustGet("10001")
	assert.Equal(t, []string{"shipped", "out_for_delivery", "delivered"}, stored.NotificationHistory.Sent)
}

func TestTemplates_OrderPlacedParams(t *testing.T) {
	o := shippedOrder("10001")
	o.ShippingAddress.Line2 = "Flat 4"
	o.Items = append(o.Items, orders.LineItem{SKU: "mug", Name: "Mug", Quantity: 1})
	o.PricingInfo.GrandTotal = 1249.5

	params := notify.DefaultTemplates()[notify.EventOrderPlaced].Params(&o)
	assert.Equal(t, []string{
		"Asha",
		"10001",
		"₹1249.50",
		"Assam Tea x2, Mug x1",
		"12 MG Road, Flat 4, Pune, MH - 411001",
	}, params)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹0.00", notify.FormatAmount(0))
	assert.Equal(t, "₹499.99", notify.FormatAmount(499.99))
	assert.Equal(t, "₹1000.00", notify.FormatAmount(1000))
}

func TestDecide_MissingPhone(t *testing.T) {
	g := notify.NewGate(&testutil.Channel{}, &testutil.NotificationLog{}, testutil.NewOrders(), nil)
	o := shippedOrder("1")
	o.CustomerInfo.Phone = ""
	assert.Equal(t, notify.SkipNoPhone, g.Decide(&o, notify.EventShipped))
}
