package services

import (
	"context"
	"testing"
	"time"

	"eventtix/internal/status"
	"eventtix/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketFixture struct {
	service *TicketService
	tickets *fakeTicketStore
	events  *fakeEventStore
	qr      *QRService
}

func setupTicketService(t *testing.T) *ticketFixture {
	t.Helper()

	events := &fakeEventStore{
		event: &models.Event{
			ID:    "evt1",
			Title: "Dakar Music Festival",
			Date:  time.Now().Add(24 * time.Hour),
			Tiers: []models.TicketTier{{Name: "standard", Quantity: 100, Sold: 10}},
		},
	}
	tickets := newFakeTicketStore()
	qr := NewQRService("test-key", 24*time.Hour)

	return &ticketFixture{
		service: NewTicketService(tickets, events, qr),
		tickets: tickets,
		events:  events,
		qr:      qr,
	}
}

func (f *ticketFixture) seedPaidTicket(t *testing.T) (*models.Ticket, string) {
	t.Helper()
	ticket := &models.Ticket{
		EventID:          "evt1",
		OwnerID:          "u1",
		TicketType:       "standard",
		Price:            decimal.NewFromInt(50),
		Reference:        "PAY-1756500000000-1-TKT-0",
		PaymentReference: "PAY-1756500000000-1",
		Status:           models.TicketSuccess,
	}
	f.tickets.put(ticket)

	qr, err := f.qr.Generate(ticket)
	require.NoError(t, err)
	ticket.QRCode = qr
	return ticket, qr.Data
}

func TestTicketService_GetTicket_Ownership(t *testing.T) {
	f := setupTicketService(t)
	ticket, _ := f.seedPaidTicket(t)
	ctx := context.Background()

	got, err := f.service.GetTicket(ctx, ticket.ID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, ticket.Reference, got.Reference)

	_, err = f.service.GetTicket(ctx, ticket.ID, "u2", false)
	assert.ErrorIs(t, err, status.ErrNotOwner)

	_, err = f.service.GetTicket(ctx, ticket.ID, "u2", true)
	assert.NoError(t, err, "admins can inspect any ticket")

	_, err = f.service.GetTicket(ctx, "missing", "u1", false)
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestTicketService_Scan_Success(t *testing.T) {
	f := setupTicketService(t)
	ticket, payload := f.seedPaidTicket(t)

	result, err := f.service.Scan(context.Background(), payload, "admin1")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, result.Ticket.ID)
	assert.True(t, result.Ticket.Scanned)
	assert.Equal(t, "admin1", result.Ticket.ScannedBy)

	stored, err := f.tickets.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.Scanned)
	require.NotNil(t, stored.ScannedAt)
}

func TestTicketService_Scan_ExactlyOnce(t *testing.T) {
	f := setupTicketService(t)
	_, payload := f.seedPaidTicket(t)
	ctx := context.Background()

	_, err := f.service.Scan(ctx, payload, "admin1")
	require.NoError(t, err)

	_, err = f.service.Scan(ctx, payload, "admin2")
	assert.ErrorIs(t, err, status.ErrAlreadyScanned)
}

func TestTicketService_Scan_UnpaidTicket(t *testing.T) {
	f := setupTicketService(t)
	ticket, payload := f.seedPaidTicket(t)
	ticket.Status = models.TicketPending

	_, err := f.service.Scan(context.Background(), payload, "admin1")
	assert.ErrorIs(t, err, status.ErrTicketNotPaid)
}

func TestTicketService_Scan_BadPayload(t *testing.T) {
	f := setupTicketService(t)
	f.seedPaidTicket(t)

	_, err := f.service.Scan(context.Background(), "garbage-payload", "admin1")
	assert.ErrorIs(t, err, status.ErrInvalidQR)
}

func TestTicketService_Scan_EndedEvent(t *testing.T) {
	f := setupTicketService(t)
	_, payload := f.seedPaidTicket(t)
	f.events.event.Date = time.Now().Add(-time.Hour)

	_, err := f.service.Scan(context.Background(), payload, "admin1")
	assert.ErrorIs(t, err, status.ErrEventEnded)
}

func TestTicketService_ListByPayment(t *testing.T) {
	f := setupTicketService(t)
	ticket, _ := f.seedPaidTicket(t)
	ctx := context.Background()

	tickets, err := f.service.ListByPayment(ctx, ticket.PaymentReference, "u1", false)
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	_, err = f.service.ListByPayment(ctx, ticket.PaymentReference, "u2", false)
	assert.ErrorIs(t, err, status.ErrNotOwner)

	tickets, err = f.service.ListByPayment(ctx, "PAY-0-0", "u1", false)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}
