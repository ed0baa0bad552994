package validation

import "time"

type Customer struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required,min=10,max=16"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type Address struct {
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
}

// Dimensions are in centimetres.
type Dimensions struct {
	LengthCM  float64 `json:"lengthCm" validate:"gt=0"`
	BreadthCM float64 `json:"breadthCm" validate:"gt=0"`
	HeightCM  float64 `json:"heightCm" validate:"gt=0"`
}

// Item represents a single order line item.
type Item struct {
	SKU        string      `json:"sku" validate:"required"`
	Name       string      `json:"name" validate:"required"`
	Quantity   int         `json:"quantity" validate:"required,min=1"`
	UnitPrice  float64     `json:"unitPrice" validate:"required,gt=0"`
	WeightGram float64     `json:"weightGram,omitempty" validate:"gte=0"` // 0 means unknown
	Dimensions *Dimensions `json:"dimensions,omitempty" validate:"omitempty"`
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	Source          string   `json:"source" validate:"omitempty,oneof=admin customer storefront"`
	Customer        Customer `json:"customer" validate:"required"`
	ShippingAddress Address  `json:"shippingAddress" validate:"required"`
	Items           []Item   `json:"items" validate:"required,min=1,dive"`
	Shipping        float64  `json:"shipping" validate:"gte=0"`
	Discount        float64  `json:"discount" validate:"gte=0"`
	GrandTotal      float64  `json:"grandTotal" validate:"required,gt=0"` // total the client claims
	PaymentMethod   string   `json:"paymentMethod" validate:"required,oneof=COD Prepaid"`
	RazorpayOrderID string   `json:"razorpayOrderId,omitempty" validate:"required_if=PaymentMethod Prepaid"`
	WhatsAppOptIn   *bool    `json:"whatsappOptIn,omitempty"`
}

// AdminActionRequest is the body of approve, cancel and ready.
type AdminActionRequest struct {
	AdminID string `json:"adminId" validate:"required"`
	Reason  string `json:"reason,omitempty" validate:"max=500"`
}

type RejectRequest struct {
	AdminID string `json:"adminId" validate:"required"`
	Reason  string `json:"reason" validate:"required,max=500"`
}

type ShipmentRequest struct {
	CourierPartner string `json:"courierPartner" validate:"required"`
	AWB            string `json:"awb" validate:"required,alphanum"`
	TrackingURL    string `json:"trackingUrl,omitempty" validate:"omitempty,url"`
}

// TrackingWebhookRequest is a courier push for one shipment.
type TrackingWebhookRequest struct {
	OrderID              string     `json:"orderId" validate:"required"`
	AWB                  string     `json:"awb" validate:"required"`
	Status               string     `json:"status" validate:"required"`
	Location             string     `json:"location,omitempty"`
	StatusDateTime       *time.Time `json:"statusDateTime,omitempty"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate,omitempty"`
}
