package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventtix/internal/status"
	"eventtix/models"
	"eventtix/monitoring"
	"eventtix/utils"

	"golang.org/x/crypto/bcrypt"
)

const claimCodeLength = 8

// TransferService moves ticket ownership between accounts. A transfer to
// an existing account moves ownership immediately but stays cancellable
// by the sender until the transfer window closes; a transfer to an
// unknown contact parks the ticket in escrow behind a claim code until
// the recipient signs up and claims it or the sender cancels.
type TransferService struct {
	tickets  TicketStore
	events   EventStore
	users    UserStore
	notifier Notifier
	window   time.Duration
	now      func() time.Time
}

func NewTransferService(tickets TicketStore, events EventStore, users UserStore, notifier Notifier, window time.Duration) *TransferService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &TransferService{
		tickets:  tickets,
		events:   events,
		users:    users,
		notifier: notifier,
		window:   window,
		now:      time.Now,
	}
}

type TransferResult struct {
	Ticket  *models.Ticket `json:"ticket"`
	Pending bool           `json:"pending"`
	Message string         `json:"message"`
}

// Transfer hands the ticket to a recipient identified by mobile or email.
func (s *TransferService) Transfer(ctx context.Context, ticketID, ownerID string, recipient models.RecipientInfo) (*TransferResult, error) {
	ticket, err := s.transferable(ctx, ticketID, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := models.TransferRecord{
		From:          ownerID,
		PrevRecipient: ticket.Recipient,
		TransferredAt: now,
	}

	account, err := s.users.FindByContact(ctx, recipient.Type, recipient.Value)
	if err != nil {
		return nil, err
	}

	if account != nil {
		if account.ID == ownerID {
			return nil, fmt.Errorf("cannot transfer ticket %s to its current owner", ticket.Reference)
		}
		record.To = account.ID
		record.Status = models.TransferPending
		record.ExpiresAt = now.Add(s.window)

		ticket.OwnerID = account.ID
		ticket.Recipient = recipient
		ticket.Transferred = true
		ticket.ClaimHash = ""
		ticket.TransferHistory = append(ticket.TransferHistory, record)

		if err := s.tickets.UpdateOwnership(ctx, ticket, ownerID); err != nil {
			return nil, err
		}

		monitoring.RecordTransfer("completed")
		slog.Info("ticket transferred", "ticket", ticket.Reference, "from", ownerID, "to", account.ID, "cancellable_until", record.ExpiresAt)
		go s.notifier.SendTransferNotice(recipient, ticket)

		return &TransferResult{
			Ticket:  ticket,
			Pending: false,
			Message: "ticket transferred",
		}, nil
	}

	// no account for this contact: escrow behind a claim code
	code, err := utils.GenerateClaimCode(claimCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate claim code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash claim code: %w", err)
	}

	record.Status = models.TransferPending
	record.ExpiresAt = now.Add(s.window)

	ticket.OwnerID = ""
	ticket.Recipient = recipient
	ticket.Transferred = true
	ticket.ClaimHash = string(hash)
	ticket.TransferHistory = append(ticket.TransferHistory, record)

	if err := s.tickets.UpdateOwnership(ctx, ticket, ownerID); err != nil {
		return nil, err
	}

	monitoring.RecordTransfer("pending")
	slog.Info("ticket escrowed for claim", "ticket", ticket.Reference, "from", ownerID, "expires_at", record.ExpiresAt)
	go s.notifier.SendClaimCode(recipient, ticket, code)

	return &TransferResult{
		Ticket:  ticket,
		Pending: true,
		Message: "claim code sent to recipient",
	}, nil
}

// CancelTransfer reverts a still-pending transfer, restoring the sender's
// ownership and the recipient snapshot taken before the move. An expired
// escrow stays cancellable so the ticket is never stranded ownerless; a
// transfer to a registered account is final once its window closes.
func (s *TransferService) CancelTransfer(ctx context.Context, ticketID, requesterID string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	pending := ticket.PendingTransfer()
	if pending == nil {
		return nil, status.ErrNoPendingTransfer
	}
	if pending.From != requesterID {
		return nil, status.ErrNotOwner
	}
	if ticket.ClaimHash == "" && s.now().After(pending.ExpiresAt) {
		return nil, fmt.Errorf("%w: cancellation window closed", status.ErrNoPendingTransfer)
	}

	prevOwner := ticket.OwnerID
	pending.Status = models.TransferCancelled
	ticket.OwnerID = pending.From
	ticket.Recipient = pending.PrevRecipient
	ticket.ClaimHash = ""
	ticket.Transferred = hasCompletedTransfer(ticket)

	if err := s.tickets.UpdateOwnership(ctx, ticket, prevOwner); err != nil {
		return nil, err
	}

	monitoring.RecordTransfer("cancelled")
	slog.Info("ticket transfer cancelled", "ticket", ticket.Reference, "by", requesterID)
	return ticket, nil
}

// Claim completes a pending transfer for a newly registered recipient who
// presents the claim code.
func (s *TransferService) Claim(ctx context.Context, ticketID, claimerID, code string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	pending := ticket.PendingTransfer()
	if pending == nil {
		return nil, status.ErrNoPendingTransfer
	}
	if s.now().After(pending.ExpiresAt) {
		return nil, fmt.Errorf("%w: claim window closed", status.ErrNoPendingTransfer)
	}
	if ticket.ClaimHash == "" {
		return nil, status.ErrNoPendingTransfer
	}
	if bcrypt.CompareHashAndPassword([]byte(ticket.ClaimHash), []byte(code)) != nil {
		return nil, status.ErrInvalidClaimCode
	}
	if pending.From == claimerID {
		return nil, fmt.Errorf("cannot claim ticket %s back with its own code", ticket.Reference)
	}

	pending.Status = models.TransferCompleted
	pending.To = claimerID
	ticket.OwnerID = claimerID
	ticket.Transferred = true
	ticket.ClaimHash = ""

	if err := s.tickets.UpdateOwnership(ctx, ticket, ""); err != nil {
		return nil, err
	}

	monitoring.RecordTransfer("claimed")
	slog.Info("ticket claimed", "ticket", ticket.Reference, "by", claimerID)
	return ticket, nil
}

func hasCompletedTransfer(t *models.Ticket) bool {
	for i := range t.TransferHistory {
		if t.TransferHistory[i].Status == models.TransferCompleted {
			return true
		}
	}
	return false
}

// transferable loads the ticket and checks every precondition for moving
// it.
func (s *TransferService) transferable(ctx context.Context, ticketID, ownerID string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != ownerID {
		return nil, status.ErrNotOwner
	}
	if ticket.Status != models.TicketSuccess {
		return nil, fmt.Errorf("%w: ticket %s is %s", status.ErrTicketNotPaid, ticket.Reference, ticket.Status)
	}
	if ticket.Scanned {
		return nil, fmt.Errorf("%w: scanned tickets cannot be transferred", status.ErrAlreadyScanned)
	}
	if pending := ticket.PendingTransfer(); pending != nil {
		if ticket.ClaimHash != "" || s.now().Before(pending.ExpiresAt) {
			return nil, fmt.Errorf("ticket %s already has a pending transfer", ticket.Reference)
		}
		// the cancellation window on a direct transfer has lapsed, so
		// the move is final and the new owner may pass the ticket on
		pending.Status = models.TransferCompleted
	}

	event, err := s.events.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if event.Ended(s.now()) {
		return nil, fmt.Errorf("%w: %s", status.ErrEventEnded, event.Title)
	}
	return ticket, nil
}
