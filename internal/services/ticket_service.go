package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventtix/internal/status"
	"eventtix/models"
	"eventtix/monitoring"
)

// TicketService serves ticket lookups and door scans.
type TicketService struct {
	tickets TicketStore
	events  EventStore
	qr      *QRService
	now     func() time.Time
}

func NewTicketService(tickets TicketStore, events EventStore, qr *QRService) *TicketService {
	return &TicketService{
		tickets: tickets,
		events:  events,
		qr:      qr,
		now:     time.Now,
	}
}

// GetTicket returns a ticket the requester is allowed to see: its owner
// or an admin.
func (s *TicketService) GetTicket(ctx context.Context, ticketID, requesterID string, admin bool) (*models.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !admin && ticket.OwnerID != requesterID {
		return nil, status.ErrNotOwner
	}
	return ticket, nil
}

// ListByPayment returns every ticket bought under one payment reference.
func (s *TicketService) ListByPayment(ctx context.Context, paymentReference, requesterID string, admin bool) ([]*models.Ticket, error) {
	tickets, err := s.tickets.ListByPaymentReference(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	if !admin {
		for _, t := range tickets {
			if t.OwnerID != requesterID {
				return nil, status.ErrNotOwner
			}
		}
	}
	return tickets, nil
}

type ScanResult struct {
	Ticket    *models.Ticket `json:"ticket"`
	ScannedAt time.Time      `json:"scanned_at"`
}

// Scan admits the ticket behind a QR payload exactly once. The payload
// signature, the ticket's paid status and the event date are all checked
// before the scanned flag is flipped; the flip itself is conditional so
// two scanners racing on the same ticket admit it once.
func (s *TicketService) Scan(ctx context.Context, qrPayload, adminID string) (*ScanResult, error) {
	ticketID, err := s.qr.Verify(qrPayload)
	if err != nil {
		monitoring.RecordScan("rejected_qr")
		return nil, err
	}

	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		monitoring.RecordScan("not_found")
		return nil, err
	}
	if ticket.Status != models.TicketSuccess {
		monitoring.RecordScan("unpaid")
		return nil, fmt.Errorf("%w: ticket %s is %s", status.ErrTicketNotPaid, ticket.Reference, ticket.Status)
	}

	event, err := s.events.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if event.Ended(now) {
		monitoring.RecordScan("event_ended")
		return nil, fmt.Errorf("%w: %s", status.ErrEventEnded, event.Title)
	}

	if err := s.tickets.MarkScanned(ctx, ticket.ID, adminID, now); err != nil {
		if errors.Is(err, status.ErrAlreadyScanned) {
			monitoring.RecordScan("duplicate")
		}
		return nil, err
	}

	monitoring.RecordScan("admitted")
	slog.Info("ticket scanned", "ticket", ticket.Reference, "event", ticket.EventID, "admin", adminID)

	ticket.Scanned = true
	ticket.ScannedAt = &now
	ticket.ScannedBy = adminID
	return &ScanResult{Ticket: ticket, ScannedAt: now}, nil
}
