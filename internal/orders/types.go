package orders

import (
	"time"

	"github.com/unifly3582/orderflow/internal/status"
)

// ApprovalStatus is the admin/system approval decision for an order.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ActorSystem marks decisions taken without an admin.
const ActorSystem = "system"

// Order is the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID              string                `dynamodbav:"order_id" json:"orderId"` // PK
	Source               string                `dynamodbav:"source,omitempty" json:"source,omitempty"`
	InternalStatus       status.Internal       `dynamodbav:"internal_status" json:"internalStatus"`
	CustomerFacingStatus status.CustomerFacing `dynamodbav:"customer_facing_status" json:"customerFacingStatus"`

	CustomerInfo    CustomerInfo  `dynamodbav:"customer_info" json:"customerInfo"`
	ShippingAddress Address       `dynamodbav:"shipping_address" json:"shippingAddress"`
	Items           []LineItem    `dynamodbav:"items" json:"items"`
	PricingInfo     PricingInfo   `dynamodbav:"pricing_info" json:"pricingInfo"`
	PaymentInfo     PaymentInfo   `dynamodbav:"payment_info" json:"paymentInfo"`
	Approval        Approval      `dynamodbav:"approval" json:"approval"`
	ShipmentInfo    ShipmentInfo  `dynamodbav:"shipment_info" json:"shipmentInfo"`
	Cancellation    *Cancellation `dynamodbav:"cancellation,omitempty" json:"cancellation,omitempty"`

	// GatewayOrderID mirrors PaymentInfo.RazorpayOrderID at the top level so
	// the razorpay_order_id-index GSI can key on it.
	GatewayOrderID string `dynamodbav:"razorpay_order_id,omitempty" json:"-"`

	NeedsManualVerification bool `dynamodbav:"needs_manual_verification" json:"needsManualVerification"`
	NeedsTracking           bool `dynamodbav:"needs_tracking" json:"needsTracking"`

	CustomerNotifications CustomerNotifications `dynamodbav:"customer_notifications" json:"customerNotifications"`
	NotificationHistory   NotificationHistory   `dynamodbav:"notification_history" json:"notificationHistory"`

	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updatedAt"`
	Version   int64     `dynamodbav:"version" json:"version"`
}

type CustomerInfo struct {
	Name  string `dynamodbav:"name" json:"name"`
	Phone string `dynamodbav:"phone" json:"phone"` // normalized, joins to customers
	Email string `dynamodbav:"email,omitempty" json:"email,omitempty"`
}

type Address struct {
	Line1   string `dynamodbav:"line1" json:"line1"`
	Line2   string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City    string `dynamodbav:"city" json:"city"`
	State   string `dynamodbav:"state" json:"state"`
	Pincode string `dynamodbav:"pincode" json:"pincode"`
}

// LineItem is one product line. Weight is in grams, dimensions in cm.
type LineItem struct {
	SKU        string      `dynamodbav:"sku" json:"sku"`
	Name       string      `dynamodbav:"name" json:"name"`
	Quantity   int         `dynamodbav:"quantity" json:"quantity"`
	UnitPrice  float64     `dynamodbav:"unit_price" json:"unitPrice"`
	WeightGram float64     `dynamodbav:"weight_gram,omitempty" json:"weightGram,omitempty"`
	Dimensions *Dimensions `dynamodbav:"dimensions,omitempty" json:"dimensions,omitempty"`
}

type Dimensions struct {
	LengthCM  float64 `dynamodbav:"length_cm" json:"lengthCm"`
	BreadthCM float64 `dynamodbav:"breadth_cm" json:"breadthCm"`
	HeightCM  float64 `dynamodbav:"height_cm" json:"heightCm"`
}

// HasShippingData reports whether the item carries enough data to book a
// shipment without manual measurement.
func (it LineItem) HasShippingData() bool {
	if it.WeightGram <= 0 || it.Dimensions == nil {
		return false
	}
	d := it.Dimensions
	return d.LengthCM > 0 && d.BreadthCM > 0 && d.HeightCM > 0
}

type PricingInfo struct {
	Subtotal   float64 `dynamodbav:"subtotal" json:"subtotal"`
	Shipping   float64 `dynamodbav:"shipping" json:"shipping"`
	Discount   float64 `dynamodbav:"discount" json:"discount"`
	GrandTotal float64 `dynamodbav:"grand_total" json:"grandTotal"`
}

type PaymentInfo struct {
	Method            status.PaymentMethod `dynamodbav:"method" json:"method"`
	Status            status.PaymentStatus `dynamodbav:"status" json:"status"`
	RazorpayOrderID   string               `dynamodbav:"razorpay_order_id,omitempty" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string               `dynamodbav:"razorpay_payment_id,omitempty" json:"razorpayPaymentId,omitempty"`
	RazorpayRefundID  string               `dynamodbav:"razorpay_refund_id,omitempty" json:"razorpayRefundId,omitempty"`
	AmountPaid        float64              `dynamodbav:"amount_paid,omitempty" json:"amountPaid,omitempty"`
	RefundAmount      float64              `dynamodbav:"refund_amount,omitempty" json:"refundAmount,omitempty"`
	FailureReason     string               `dynamodbav:"failure_reason,omitempty" json:"failureReason,omitempty"`
	FailureCode       string               `dynamodbav:"failure_code,omitempty" json:"failureCode,omitempty"`
	PaidAt            *time.Time           `dynamodbav:"paid_at,omitempty" json:"paidAt,omitempty"`
	RefundedAt        *time.Time           `dynamodbav:"refunded_at,omitempty" json:"refundedAt,omitempty"`
	RefundProcessedAt *time.Time           `dynamodbav:"refund_processed_at,omitempty" json:"refundProcessedAt,omitempty"`
}

type Approval struct {
	Status    ApprovalStatus `dynamodbav:"status" json:"status"`
	DecidedAt *time.Time     `dynamodbav:"decided_at,omitempty" json:"decidedAt,omitempty"`
	DecidedBy string         `dynamodbav:"decided_by,omitempty" json:"decidedBy,omitempty"`
	Reasons   []string       `dynamodbav:"reasons,omitempty" json:"reasons,omitempty"`
}

// Cancellation records who cancelled the order and why.
type Cancellation struct {
	By     string    `dynamodbav:"by" json:"by"`
	Reason string    `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
	At     time.Time `dynamodbav:"at" json:"at"`
}

type ShipmentInfo struct {
	CourierPartner        string     `dynamodbav:"courier_partner,omitempty" json:"courierPartner,omitempty"`
	AWB                   string     `dynamodbav:"awb,omitempty" json:"awb,omitempty"`
	TrackingURL           string     `dynamodbav:"tracking_url,omitempty" json:"trackingUrl,omitempty"`
	CurrentTrackingStatus string     `dynamodbav:"current_tracking_status" json:"currentTrackingStatus"`
	TrackingLocation      string     `dynamodbav:"tracking_location,omitempty" json:"trackingLocation,omitempty"`
	ExpectedDeliveryDate  *time.Time `dynamodbav:"expected_delivery_date,omitempty" json:"expectedDeliveryDate,omitempty"`
	ShippedAt             *time.Time `dynamodbav:"shipped_at,omitempty" json:"shippedAt,omitempty"`
	LastTrackedAt         *time.Time `dynamodbav:"last_tracked_at,omitempty" json:"lastTrackedAt,omitempty"`
}

type CustomerNotifications struct {
	Preferences NotificationPreferences `dynamodbav:"notification_preferences" json:"notificationPreferences"`
}

// NotificationPreferences holds per-channel opt-ins; nil means not set.
type NotificationPreferences struct {
	WhatsApp *bool `dynamodbav:"whatsapp,omitempty" json:"whatsapp,omitempty"`
}

// NotificationHistory is the per-order idempotency ledger for customer
// notifications. LastEvent is the only dedupe key; Sent keeps every event
// that was ever delivered.
type NotificationHistory struct {
	LastEvent      string     `dynamodbav:"last_event" json:"lastEvent"`
	LastNotifiedAt *time.Time `dynamodbav:"last_notified_at,omitempty" json:"lastNotifiedAt,omitempty"`
	Sent           []string   `dynamodbav:"sent,omitempty" json:"sent,omitempty"`
}

// HasSent reports whether event was ever delivered for this order.
func (h NotificationHistory) HasSent(event string) bool {
	for _, e := range h.Sent {
		if e == event {
			return true
		}
	}
	return false
}

// Record advances the pointer to event.
func (h *NotificationHistory) Record(event string, at time.Time) {
	h.LastEvent = event
	h.LastNotifiedAt = &at
	if !h.HasSent(event) {
		h.Sent = append(h.Sent, event)
	}
}

// WhatsAppEnabled is true unless the customer explicitly opted out.
func (o *Order) WhatsAppEnabled() bool {
	p := o.CustomerNotifications.Preferences.WhatsApp
	return p == nil || *p
}

// SetStatus moves the order to s and keeps the customer-facing projection
// in step.
func (o *Order) SetStatus(s status.Internal) {
	o.InternalStatus = s
	o.CustomerFacingStatus = status.ToCustomerFacing(s)
}

// Cancel moves the order to cancelled and stops tracking it.
func (o *Order) Cancel(by, reason string, at time.Time) {
	o.SetStatus(status.Cancelled)
	o.NeedsTracking = false
	o.Cancellation = &Cancellation{By: by, Reason: reason, At: at}
}

// DistinctItemCount counts line items by SKU.
func (o *Order) DistinctItemCount() int {
	seen := make(map[string]struct{}, len(o.Items))
	for _, it := range o.Items {
		key := it.SKU
		if key == "" {
			key = it.Name
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}
