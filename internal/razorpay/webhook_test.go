package razorpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifly3582/orderflow/internal/status"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"order.paid"}`)
	sig := Sign(body, "whsec")

	assert.NoError(t, VerifySignature(body, sig, "whsec"))
	assert.ErrorIs(t, VerifySignature(body, sig, "other"), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(body, "not-hex", "whsec"), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature([]byte(`{}`), sig, "whsec"), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(body, "", ""), ErrNoSecret)
	assert.ErrorIs(t, VerifySignature(body, Sign(body, ""), ""), ErrNoSecret)
}

func TestParseWebhook_OrderPaid(t *testing.T) {
	body := []byte(`{
		"event": "order.paid",
		"payload": {
			"payment": {"entity": {"id": "pay_1", "order_id": "order_rzp1", "amount": 49950, "notes": []}},
			"order": {"entity": {"id": "order_rzp1", "amount_paid": 49950, "receipt": "10001", "notes": {"order_id": "10001"}}}
		}
	}`)
	ev, err := ParseWebhook(body)
	require.NoError(t, err)

	assert.Equal(t, status.EventOrderPaid, ev.Type)
	assert.Equal(t, "order_rzp1", ev.GatewayOrderID)
	assert.Equal(t, "pay_1", ev.PaymentID)
	assert.Equal(t, 499.5, ev.Amount)
	assert.Equal(t, "10001", ev.OrderRef)
}

func TestParseWebhook_ReceiptFallback(t *testing.T) {
	body := []byte(`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_rzp1","amount_paid":100,"receipt":"10002","notes":[]}}}}`)
	ev, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "10002", ev.OrderRef)
	assert.Equal(t, 1.0, ev.Amount)
}

func TestParseWebhook_PaymentFailed(t *testing.T) {
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{
		"id":"pay_2","order_id":"order_rzp1","amount":1000,
		"error_code":"BAD_REQUEST_ERROR","error_description":"Payment failed","notes":{"order_id":10003}}}}}`)
	ev, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, status.EventPaymentFailed, ev.Type)
	assert.Equal(t, "BAD_REQUEST_ERROR", ev.ErrorCode)
	assert.Equal(t, "Payment failed", ev.ErrorDescription)
	assert.Equal(t, "10003", ev.OrderRef)
}

func TestParseWebhook_Refund(t *testing.T) {
	body := []byte(`{"event":"refund.created","payload":{
		"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":25000,"notes":[]}},
		"payment":{"entity":{"id":"pay_1","order_id":"order_rzp1","amount":50000,"notes":[]}}}}`)
	ev, err := ParseWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", ev.RefundID)
	assert.Equal(t, 250.0, ev.RefundAmount)
	assert.Equal(t, "order_rzp1", ev.GatewayOrderID)
}

func TestParseWebhook_Malformed(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"payload":{}}`,
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`,
	} {
		_, err := ParseWebhook([]byte(body))
		assert.ErrorIs(t, err, ErrBadPayload, body)
	}
}
