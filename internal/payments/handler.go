package payments

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aspire-webinars/backend/pkg/response"
)

// CallbackRequest is the body for POST /payments/callback, as posted
// by the gateway checkout.
type CallbackRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// Handler handles payment HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a payments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Callback handles POST /payments/callback. The response reflects the
// verification result only, independent of notification outcome.
func (h *Handler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, err := h.service.Complete(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	switch {
	case errors.Is(err, ErrUnknownOrder):
		response.NotFound(c, "no registration for this order")
	case errors.Is(err, ErrVerificationFailed):
		response.BadRequest(c, "invalid signature")
	case err != nil:
		response.Internal(c, "payment processing failed")
	default:
		response.OK(c, gin.H{
			"message":         "payment verified",
			"registration_id": reg.ID,
			"status":          reg.Status,
		})
	}
}
