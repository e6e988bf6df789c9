package services

import (
	"context"
	"time"

	"eventtix/models"
)

// EventStore reads events and owns the authoritative tier-sold counter.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)

	// CommitTierSale atomically increments a tier's sold count by qty,
	// refusing the increment when it would exceed the tier quantity
	// (status.ErrCapacityExceeded). It returns the event's soldOut flag
	// recomputed from the tier rows strictly after the increment.
	CommitTierSale(ctx context.Context, eventID, tierName string, qty int) (soldOut bool, err error)
}

// PaymentStore persists payment records keyed by their reference.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)

	// AttachSession stores the gateway correlation ids on a pending payment.
	AttachSession(ctx context.Context, reference, sessionID string) error

	// MarkPaymentStatus applies a status transition, rejecting moves the
	// payment lifecycle does not allow.
	MarkPaymentStatus(ctx context.Context, reference string, st models.PaymentStatus, transactionID string) error

	TouchStatusCheck(ctx context.Context, reference string, at time.Time) error

	// DeletePayment removes a payment created by an initiate attempt that
	// could not complete.
	DeletePayment(ctx context.Context, reference string) error
}

// TicketStore persists tickets and their ownership.
type TicketStore interface {
	CreateTickets(ctx context.Context, tickets []*models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	ListByPaymentReference(ctx context.Context, paymentReference string) ([]*models.Ticket, error)
	MarkStatusByPaymentReference(ctx context.Context, paymentReference string, st models.TicketStatus) error
	SetTicketQR(ctx context.Context, ticketID string, qr *models.QRCode) error
	DeleteByPaymentReference(ctx context.Context, paymentReference string) error

	// UpdateOwnership saves the ticket's owner, recipient, transfer state
	// and history in one transaction together with the user back-relation.
	UpdateOwnership(ctx context.Context, t *models.Ticket, previousOwner string) error

	// MarkScanned flips the scanned flag, admitting exactly one scan per
	// ticket (status.ErrAlreadyScanned on the second attempt).
	MarkScanned(ctx context.Context, ticketID, adminID string, at time.Time) error
}

// UserStore resolves recipient accounts by contact.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindByContact(ctx context.Context, typ models.RecipientType, value string) (*models.User, error)
}
