package handlers

import (
	"log/slog"
	"net/http"

	"eventtix/internal/services"
	"eventtix/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	app             *pocketbase.PocketBase
	ticketService   *services.TicketService
	transferService *services.TransferService
}

func NewTicketHandler(app *pocketbase.PocketBase, ticketService *services.TicketService, transferService *services.TransferService) *TicketHandler {
	return &TicketHandler{
		app:             app,
		ticketService:   ticketService,
		transferService: transferService,
	}
}

// GetTicket - fetch a single ticket
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.ticketService.GetTicket(e.Request.Context(), ticketID, e.Auth.Id, isAdmin(e))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

// ListTicketsByPayment - fetch every ticket bought under one payment
func (h *TicketHandler) ListTicketsByPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	reference := e.Request.PathValue("reference")
	tickets, err := h.ticketService.ListByPayment(e.Request.Context(), reference, e.Auth.Id, isAdmin(e))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

type transferRequest struct {
	RecipientType  models.RecipientType `json:"recipient_type"`
	RecipientValue string               `json:"recipient_value"`
	RecipientName  string               `json:"recipient_name,omitempty"`
}

// TransferTicket - hand a ticket to another person
func (h *TicketHandler) TransferTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req transferRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.RecipientValue == "" {
		return apis.NewBadRequestError("Missing recipient contact", nil)
	}
	if req.RecipientType != models.RecipientMobile && req.RecipientType != models.RecipientEmail {
		return apis.NewBadRequestError("Recipient type must be mobile or email", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	result, err := h.transferService.Transfer(e.Request.Context(), ticketID, e.Auth.Id, models.RecipientInfo{
		Type:  req.RecipientType,
		Value: req.RecipientValue,
		Name:  req.RecipientName,
	})
	if err != nil {
		slog.Error("transferService.Transfer()", "ticket", ticketID, "user", e.Auth.Id, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// CancelTransfer - revert a pending transfer
func (h *TicketHandler) CancelTransfer(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.transferService.CancelTransfer(e.Request.Context(), ticketID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "transfer cancelled", "ticket": ticket})
}

type claimRequest struct {
	Code string `json:"code"`
}

// ClaimTicket - complete a pending transfer with a claim code
func (h *TicketHandler) ClaimTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req claimRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Code == "" {
		return apis.NewBadRequestError("Missing claim code", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.transferService.Claim(e.Request.Context(), ticketID, e.Auth.Id, req.Code)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "ticket claimed", "ticket": ticket})
}
