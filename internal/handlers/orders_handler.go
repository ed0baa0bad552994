package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifly3582/orderflow/internal/idempotency"
	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/notify"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/status"
	"github.com/unifly3582/orderflow/internal/validation"
)

// createOrderResponse is also what gets replayed for a repeated key.
type createOrderResponse struct {
	OrderID              string                `json:"orderId"`
	InternalStatus       status.Internal       `json:"internalStatus"`
	CustomerFacingStatus status.CustomerFacing `json:"customerFacingStatus"`
	Approval             orders.Approval       `json:"approval"`
}

func (h *handler) createOrder(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	// Bind + validate request
	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	// Require idempotency key header
	idempKey := c.GetHeader("Idempotency-Key")
	if idempKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
		return
	}

	rec, reserved, err := h.cfg.Idempotency.Reserve(ctx, idempKey, idempotency.HashRequest(raw))
	switch {
	case errors.Is(err, idempotency.ErrKeyReused):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_key_reused"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
		return
	case !reserved:
		replay(c, rec)
		return
	}

	o, _, err := h.cfg.Orders.CreateOrder(ctx, toNewOrder(req))
	if err != nil {
		// let the client retry with the same key
		if markErr := h.cfg.Idempotency.MarkFailed(ctx, idempKey, err.Error()); markErr != nil {
			log.Printf("[http] mark idempotency failed key=%s: %v", idempKey, markErr)
		}
		writeError(c, err)
		return
	}

	resp := createOrderResponse{
		OrderID:              o.OrderID,
		InternalStatus:       o.InternalStatus,
		CustomerFacingStatus: o.CustomerFacingStatus,
		Approval:             o.Approval,
	}
	body, _ := json.Marshal(resp)
	if err := h.cfg.Idempotency.MarkDone(ctx, idempKey, o.OrderID, string(body), http.StatusCreated); err != nil {
		log.Printf("[http] mark idempotency done key=%s order=%s: %v", idempKey, o.OrderID, err)
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", o.OrderID))
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// replay answers a repeated Idempotency-Key from the stored record.
func replay(c *gin.Context, rec *idempotency.IdempotencyRecord) {
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Header("Idempotent-Replayed", "true")
			c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orderId": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

func toNewOrder(req validation.CreateOrderRequest) lifecycle.NewOrder {
	items := make([]orders.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		li := orders.LineItem{
			SKU:        it.SKU,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			WeightGram: it.WeightGram,
		}
		if d := it.Dimensions; d != nil {
			li.Dimensions = &orders.Dimensions{LengthCM: d.LengthCM, BreadthCM: d.BreadthCM, HeightCM: d.HeightCM}
		}
		items = append(items, li)
	}
	source := req.Source
	if source == "" {
		source = "customer"
	}
	return lifecycle.NewOrder{
		Source:   source,
		Customer: orders.CustomerInfo{Name: req.Customer.Name, Phone: req.Customer.Phone, Email: req.Customer.Email},
		ShippingAddress: orders.Address{
			Line1:   req.ShippingAddress.Line1,
			Line2:   req.ShippingAddress.Line2,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			Pincode: req.ShippingAddress.Pincode,
		},
		Items:          items,
		Shipping:       req.Shipping,
		Discount:       req.Discount,
		GrandTotal:     req.GrandTotal,
		PaymentMethod:  status.PaymentMethod(req.PaymentMethod),
		GatewayOrderID: req.RazorpayOrderID,
		WhatsAppOptIn:  req.WhatsAppOptIn,
	}
}

func (h *handler) getOrder(c *gin.Context) {
	o, err := h.cfg.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handler) listNotifications(c *gin.Context) {
	entries, err := h.cfg.Notifications.ListByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []notify.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"orderId": c.Param("id"), "notifications": entries})
}
