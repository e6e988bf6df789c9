package handlers

import (
	"log/slog"
	"net/http"

	"eventtix/internal/services"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	app           *pocketbase.PocketBase
	ticketService *services.TicketService
}

func NewAdminHandler(app *pocketbase.PocketBase, ticketService *services.TicketService) *AdminHandler {
	return &AdminHandler{
		app:           app,
		ticketService: ticketService,
	}
}

type scanRequest struct {
	QRData string `json:"qr_data"`
}

// ScanTicket - admit a ticket at the door
func (h *AdminHandler) ScanTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if !isAdmin(e) {
		return apis.NewForbiddenError("Admin access required", nil)
	}

	var req scanRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.QRData == "" {
		return apis.NewBadRequestError("Missing qr_data", nil)
	}

	result, err := h.ticketService.Scan(e.Request.Context(), req.QRData, e.Auth.Id)
	if err != nil {
		slog.Error("ticketService.Scan()", "admin", e.Auth.Id, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// GetSalesSummary - per-tier sales for one event
func (h *AdminHandler) GetSalesSummary(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if !isAdmin(e) {
		return apis.NewForbiddenError("Admin access required", nil)
	}

	eventID := e.Request.PathValue("eventId")

	var rows []dbx.NullStringMap
	err := h.app.DB().NewQuery(
		"SELECT name, quantity, sold, price, currency FROM ticket_tiers WHERE event = {:event} ORDER BY name",
	).Bind(dbx.Params{"event": eventID}).All(&rows)
	if err != nil {
		return apis.NewInternalServerError("internal error", err)
	}
	if len(rows) == 0 {
		return apis.NewNotFoundError("Event has no ticket tiers", nil)
	}

	tiers := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		tiers = append(tiers, map[string]any{
			"name":     row["name"].String,
			"quantity": row["quantity"].String,
			"sold":     row["sold"].String,
			"price":    row["price"].String,
			"currency": row["currency"].String,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"tiers":    tiers,
	})
}
