package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifly3582/orderflow/internal/courier"
	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/razorpay"
	"github.com/unifly3582/orderflow/internal/tracking"
	"github.com/unifly3582/orderflow/internal/validation"
)

// razorpayWebhook always answers 200. Failures are logged only.
func (h *handler) razorpayWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("[webhook] read body: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if h.cfg.WebhookSecret == "" && h.cfg.AllowUnsignedWebhooks {
		log.Printf("[webhook] WARN accepting unsigned razorpay webhook")
	} else if err := razorpay.VerifySignature(body, c.GetHeader(razorpay.SignatureHeader), h.cfg.WebhookSecret); err != nil {
		log.Printf("[webhook] WARN rejected razorpay webhook: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ev, err := razorpay.ParseWebhook(body)
	if err != nil {
		log.Printf("[webhook] WARN %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	res, err := h.cfg.Orders.HandlePaymentEvent(ctx, ev)
	if err != nil {
		level := "ERROR"
		if errors.Is(err, lifecycle.ErrGatewayMismatch) || errors.Is(err, lifecycle.ErrInvalidEvent) {
			level = "WARN"
		}
		log.Printf("[webhook] %s event=%s gateway_order=%s: %v", level, ev.Type, ev.GatewayOrderID, err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "orderId": res.OrderID, "applied": res.Applied})
}

func (h *handler) trackingWebhook(c *gin.Context) {
	var req validation.TrackingWebhookRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	u := courier.Update{
		AWB:              req.AWB,
		Status:           req.Status,
		Location:         req.Location,
		ExpectedDelivery: req.ExpectedDeliveryDate,
	}
	if req.StatusDateTime != nil {
		u.At = *req.StatusDateTime
	}
	res, err := h.cfg.Tracking.Apply(c.Request.Context(), req.OrderID, u)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) syncTracking(c *gin.Context) {
	ctx := c.Request.Context()
	if h.cfg.EnqueueTracking {
		n, err := h.cfg.Tracking.Enqueue(ctx)
		if err != nil && n == 0 {
			writeError(c, err)
			return
		}
		if err != nil {
			log.Printf("[http] partial tracking enqueue sent=%d: %v", n, err)
		}
		c.JSON(http.StatusAccepted, gin.H{"enqueued": n})
		return
	}

	results, err := h.cfg.Tracking.SyncAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": len(results), "failed": tracking.Failed(results), "results": results})
}
