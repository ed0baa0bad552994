package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifly3582/orderflow/internal/lifecycle"
	"github.com/unifly3582/orderflow/internal/orders"
	"github.com/unifly3582/orderflow/internal/settings"
	"github.com/unifly3582/orderflow/internal/validation"
)

func (h *handler) respond(c *gin.Context, o *orders.Order, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handler) approve(c *gin.Context) {
	var req validation.AdminActionRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.cfg.Orders.Approve(c.Request.Context(), c.Param("id"), req.AdminID)
	h.respond(c, o, err)
}

func (h *handler) reject(c *gin.Context) {
	var req validation.RejectRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.cfg.Orders.Reject(c.Request.Context(), c.Param("id"), req.AdminID, req.Reason)
	h.respond(c, o, err)
}

func (h *handler) cancel(c *gin.Context) {
	var req validation.AdminActionRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.cfg.Orders.Cancel(c.Request.Context(), c.Param("id"), req.AdminID, req.Reason)
	h.respond(c, o, err)
}

func (h *handler) markReady(c *gin.Context) {
	var req validation.AdminActionRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.cfg.Orders.MarkReadyForShipping(c.Request.Context(), c.Param("id"), req.AdminID)
	h.respond(c, o, err)
}

func (h *handler) createShipment(c *gin.Context) {
	var req validation.ShipmentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.cfg.Orders.CreateShipment(c.Request.Context(), c.Param("id"), lifecycle.Shipment{
		CourierPartner: req.CourierPartner,
		AWB:            req.AWB,
		TrackingURL:    req.TrackingURL,
	})
	h.respond(c, o, err)
}

func (h *handler) getAutoApproval(c *gin.Context) {
	a, err := h.cfg.Settings.GetAutoApproval(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handler) putAutoApproval(c *gin.Context) {
	var req settings.AutoApproval
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	if err := h.cfg.Settings.PutAutoApproval(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
