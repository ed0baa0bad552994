package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/unifly3582/orderflow/internal/orders"
)

// Template is a pre-approved channel template and the positional body
// parameters it expects.
type Template struct {
	Name   string
	Params func(o *orders.Order) []string
}

// DefaultTrackingURL is used when a shipment carries no tracking link.
const DefaultTrackingURL = "https://www.delhivery.com/track/package/%s"

// DefaultTemplates maps every customer-visible event to its template.
// Events without an entry are never sent.
func DefaultTemplates() map[Event]Template {
	return map[Event]Template{
		EventOrderPlaced: {
			Name: "order_confirmation",
			Params: func(o *orders.Order) []string {
				return []string{customerName(o), o.OrderID, FormatAmount(o.PricingInfo.GrandTotal), itemList(o), address(o)}
			},
		},
		EventShipped: {
			Name: "order_shipped",
			Params: func(o *orders.Order) []string {
				return []string{customerName(o), o.OrderID, o.ShipmentInfo.CourierPartner, o.ShipmentInfo.AWB, trackingURL(o)}
			},
		},
		EventOutForDelivery: {
			Name: "order_out_for_delivery",
			Params: func(o *orders.Order) []string {
				return []string{customerName(o), o.OrderID, o.ShipmentInfo.AWB, trackingURL(o)}
			},
		},
		EventDelivered: {
			Name: "order_delivered",
			Params: func(o *orders.Order) []string {
				return []string{customerName(o), o.OrderID}
			},
		},
		EventCancelled: {
			Name: "order_cancelled",
			Params: func(o *orders.Order) []string {
				return []string{customerName(o), o.OrderID, FormatAmount(o.PricingInfo.GrandTotal)}
			},
		},
		EventPaymentFailed: {
			Name: "payment_failed",
			Params: func(o *orders.Order) []string {
				return []string{customerName(o), o.OrderID, FormatAmount(o.PricingInfo.GrandTotal)}
			},
		},
	}
}

// FormatAmount renders rupees with two decimals, e.g. ₹1249.50.
func FormatAmount(v float64) string {
	return "₹" + decimal.NewFromFloat(v).StringFixed(2)
}

func customerName(o *orders.Order) string {
	if n := strings.TrimSpace(o.CustomerInfo.Name); n != "" {
		return n
	}
	return "Customer"
}

func itemList(o *orders.Order) string {
	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
	}
	return strings.Join(parts, ", ")
}

func address(o *orders.Order) string {
	a := o.ShippingAddress
	var parts []string
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	s := strings.Join(parts, ", ")
	if a.Pincode != "" {
		s += " - " + a.Pincode
	}
	return s
}

func trackingURL(o *orders.Order) string {
	if o.ShipmentInfo.TrackingURL != "" {
		return o.ShipmentInfo.TrackingURL
	}
	return fmt.Sprintf(DefaultTrackingURL, o.ShipmentInfo.AWB)
}
