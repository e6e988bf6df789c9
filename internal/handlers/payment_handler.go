package handlers

import (
	"log/slog"
	"net/http"

	"eventtix/internal/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	app            *pocketbase.PocketBase
	paymentService *services.PaymentService
}

func NewPaymentHandler(app *pocketbase.PocketBase, paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		app:            app,
		paymentService: paymentService,
	}
}

// InitiatePayment - open a checkout session for a ticket bundle
func (h *PaymentHandler) InitiatePayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.InitiatePaymentRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.UserID = e.Auth.Id

	result, err := h.paymentService.Initiate(e.Request.Context(), &req)
	if err != nil {
		slog.Error("paymentService.Initiate()", "event", req.EventID, "user", req.UserID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// VerifyPayment - settle a checkout session against the gateway
func (h *PaymentHandler) VerifyPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	reference := e.Request.PathValue("reference")
	if reference == "" {
		return apis.NewBadRequestError("Missing payment reference", nil)
	}

	result, err := h.paymentService.Verify(e.Request.Context(), reference)
	if err != nil {
		slog.Error("paymentService.Verify()", "reference", reference, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// GetPayment - fetch a payment record by reference
func (h *PaymentHandler) GetPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	reference := e.Request.PathValue("reference")
	payment, err := h.paymentService.GetPayment(e.Request.Context(), reference)
	if err != nil {
		return apiError(err)
	}
	if payment.UserID != e.Auth.Id && !isAdmin(e) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, payment)
}

func isAdmin(e *core.RequestEvent) bool {
	if e.Auth == nil {
		return false
	}
	if e.Auth.IsSuperuser() {
		return true
	}
	return e.Auth.GetString("role") == "admin"
}
