// Package razorpay verifies and decodes Razorpay webhooks.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/status"
)

// SignatureHeader carries the hex HMAC of the raw body.
const SignatureHeader = "X-Razorpay-Signature"

var (
	ErrBadSignature = errors.New("razorpay signature mismatch")
	ErrBadPayload   = errors.New("malformed razorpay webhook")
	ErrNoSecret     = errors.New("razorpay webhook secret not configured")
)

// VerifySignature checks signature against HMAC-SHA256(body, secret). An
// empty secret fails every check.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" {
		return ErrNoSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the signature Razorpay would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Amount           int64           `json:"amount"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
	Notes            json.RawMessage `json:"notes"`
}

type orderEntity struct {
	ID         string          `json:"id"`
	AmountPaid int64           `json:"amount_paid"`
	Receipt    string          `json:"receipt"`
	Notes      json.RawMessage `json:"notes"`
}

type refundEntity struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    int64           `json:"amount"`
	Notes     json.RawMessage `json:"notes"`
}

// ParseWebhook decodes a webhook body into a payment event. Amounts are
// converted from paise to rupees.
func ParseWebhook(body []byte) (lifecycle.PaymentEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return lifecycle.PaymentEvent{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if env.Event == "" {
		return lifecycle.PaymentEvent{}, fmt.Errorf("%w: missing event", ErrBadPayload)
	}

	ev := lifecycle.PaymentEvent{Type: status.PaymentEvent(env.Event)}
	if p := env.Payload.Payment; p != nil {
		ev.PaymentID = p.Entity.ID
		ev.GatewayOrderID = p.Entity.OrderID
		ev.Amount = rupees(p.Entity.Amount)
		ev.ErrorCode = p.Entity.ErrorCode
		ev.ErrorDescription = p.Entity.ErrorDescription
		ev.OrderRef = noteOrderID(p.Entity.Notes)
	}
	if o := env.Payload.Order; o != nil {
		if o.Entity.ID != "" {
			ev.GatewayOrderID = o.Entity.ID
		}
		if o.Entity.AmountPaid > 0 {
			ev.Amount = rupees(o.Entity.AmountPaid)
		}
		if ev.OrderRef == "" {
			ev.OrderRef = noteOrderID(o.Entity.Notes)
		}
		if ev.OrderRef == "" {
			ev.OrderRef = o.Entity.Receipt
		}
	}
	if r := env.Payload.Refund; r != nil {
		ev.RefundID = r.Entity.ID
		ev.RefundAmount = rupees(r.Entity.Amount)
		if ev.PaymentID == "" {
			ev.PaymentID = r.Entity.PaymentID
		}
		if ev.OrderRef == "" {
			ev.OrderRef = noteOrderID(r.Entity.Notes)
		}
	}
	if ev.GatewayOrderID == "" {
		return ev, fmt.Errorf("%w: %s carries no order id", ErrBadPayload, env.Event)
	}
	return ev, nil
}

func rupees(paise int64) float64 {
	return decimal.New(paise, -2).InexactFloat64()
}

// noteOrderID reads notes.order_id. Razorpay sends notes as an empty array
// when none were set, so anything but an object yields "".
func noteOrderID(raw json.RawMessage) string {
	var notes map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &notes) != nil {
		return ""
	}
	switch v := notes["order_id"].(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	}
	return ""
}
