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

type transferFixture struct {
	service  *TransferService
	tickets  *fakeTicketStore
	events   *fakeEventStore
	users    *fakeUserStore
	notifier *fakeNotifier
}

func setupTransferService(t *testing.T) *transferFixture {
	t.Helper()

	events := &fakeEventStore{
		event: &models.Event{
			ID:    "evt1",
			Title: "Dakar Music Festival",
			Date:  time.Now().Add(30 * 24 * time.Hour),
			Tiers: []models.TicketTier{
				{Name: "standard", Quantity: 100, Sold: 10},
			},
		},
	}
	tickets := newFakeTicketStore()
	users := newFakeUserStore(
		&models.User{ID: "u1", Name: "Ama", Mobile: "+221771234567"},
		&models.User{ID: "u2", Name: "Binta", Email: "binta@example.com"},
	)
	notifier := &fakeNotifier{}

	return &transferFixture{
		service:  NewTransferService(tickets, events, users, notifier, 24*time.Hour),
		tickets:  tickets,
		events:   events,
		users:    users,
		notifier: notifier,
	}
}

func (f *transferFixture) seedTicket(t *testing.T, owner string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		EventID:          "evt1",
		OwnerID:          owner,
		Recipient:        models.RecipientInfo{Type: models.RecipientMobile, Value: "+221771234567"},
		TicketType:       "standard",
		Price:            decimal.NewFromInt(50),
		Reference:        "PAY-1756500000000-42-TKT-0",
		PaymentReference: "PAY-1756500000000-42",
		Status:           models.TicketSuccess,
	}
	f.tickets.put(ticket)
	return ticket
}

func TestTransferService_Transfer_ToExistingAccount(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	recipient := models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"}

	result, err := f.service.Transfer(context.Background(), ticket.ID, "u1", recipient)
	require.NoError(t, err)
	assert.False(t, result.Pending)

	moved, err := f.tickets.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "u2", moved.OwnerID)
	assert.True(t, moved.Transferred)
	assert.Equal(t, recipient, moved.Recipient)
	assert.Empty(t, moved.ClaimHash)

	require.Len(t, moved.TransferHistory, 1)
	record := moved.TransferHistory[0]
	assert.Equal(t, "u1", record.From)
	assert.Equal(t, "u2", record.To)
	assert.Equal(t, models.TransferPending, record.Status, "direct transfers stay cancellable for the window")
	assert.False(t, record.ExpiresAt.IsZero())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), record.ExpiresAt, time.Minute)
	assert.Equal(t, models.RecipientMobile, record.PrevRecipient.Type)

	time.Sleep(100 * time.Millisecond)
	f.notifier.mu.Lock()
	assert.Equal(t, 1, f.notifier.transfers)
	f.notifier.mu.Unlock()
}

func TestTransferService_Transfer_Preconditions(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	recipient := models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"}
	ctx := context.Background()

	_, err := f.service.Transfer(ctx, ticket.ID, "u2", recipient)
	assert.ErrorIs(t, err, status.ErrNotOwner)

	_, err = f.service.Transfer(ctx, "missing", "u1", recipient)
	assert.ErrorIs(t, err, status.ErrTicketNotFound)

	_, err = f.service.Transfer(ctx, ticket.ID, "u1", models.RecipientInfo{Type: models.RecipientEmail, Value: "ama@example.com"})
	require.NoError(t, err) // unknown contact escrows instead of failing

	// an escrowed ticket cannot be transferred again
	_, err = f.service.Transfer(ctx, ticket.ID, "u1", recipient)
	assert.ErrorIs(t, err, status.ErrNotOwner)
}

func TestTransferService_Transfer_UnpaidOrScanned(t *testing.T) {
	f := setupTransferService(t)
	recipient := models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"}
	ctx := context.Background()

	unpaid := f.seedTicket(t, "u1")
	unpaid.Status = models.TicketPending
	_, err := f.service.Transfer(ctx, unpaid.ID, "u1", recipient)
	assert.ErrorIs(t, err, status.ErrTicketNotPaid)

	scanned := f.seedTicket(t, "u1")
	scanned.Scanned = true
	_, err = f.service.Transfer(ctx, scanned.ID, "u1", recipient)
	assert.ErrorIs(t, err, status.ErrAlreadyScanned)
}

func TestTransferService_Transfer_EndedEvent(t *testing.T) {
	f := setupTransferService(t)
	f.events.event.Date = time.Now().Add(-time.Hour)
	ticket := f.seedTicket(t, "u1")

	_, err := f.service.Transfer(context.Background(), ticket.ID, "u1",
		models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"})
	assert.ErrorIs(t, err, status.ErrEventEnded)
}

func TestTransferService_EscrowAndClaim(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	recipient := models.RecipientInfo{Type: models.RecipientMobile, Value: "+221779999999", Name: "Cheikh"}
	ctx := context.Background()

	result, err := f.service.Transfer(ctx, ticket.ID, "u1", recipient)
	require.NoError(t, err)
	assert.True(t, result.Pending)

	time.Sleep(100 * time.Millisecond)
	code := f.notifier.lastClaimCode()
	require.NotEmpty(t, code)

	escrowed, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, escrowed.OwnerID, "escrowed ticket has no owner until claimed")
	assert.NotEmpty(t, escrowed.ClaimHash)
	assert.True(t, escrowed.Transferred)

	// the recipient signs up as u3 and claims with the code
	_, err = f.service.Claim(ctx, ticket.ID, "u3", "00000000")
	assert.ErrorIs(t, err, status.ErrInvalidClaimCode)

	claimed, err := f.service.Claim(ctx, ticket.ID, "u3", code)
	require.NoError(t, err)
	assert.Equal(t, "u3", claimed.OwnerID)
	assert.True(t, claimed.Transferred)
	assert.Empty(t, claimed.ClaimHash)
	require.Len(t, claimed.TransferHistory, 1)
	assert.Equal(t, models.TransferCompleted, claimed.TransferHistory[0].Status)
	assert.Equal(t, "u3", claimed.TransferHistory[0].To)

	// the code is single use
	_, err = f.service.Claim(ctx, ticket.ID, "u4", code)
	assert.ErrorIs(t, err, status.ErrNoPendingTransfer)
}

func TestTransferService_Claim_Expired(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	ctx := context.Background()

	_, err := f.service.Transfer(ctx, ticket.ID, "u1",
		models.RecipientInfo{Type: models.RecipientMobile, Value: "+221779999999"})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	code := f.notifier.lastClaimCode()

	f.service.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = f.service.Claim(ctx, ticket.ID, "u3", code)
	assert.ErrorIs(t, err, status.ErrNoPendingTransfer)
}

func TestTransferService_CancelTransfer(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	prevRecipient := ticket.Recipient
	ctx := context.Background()

	_, err := f.service.Transfer(ctx, ticket.ID, "u1",
		models.RecipientInfo{Type: models.RecipientMobile, Value: "+221779999999"})
	require.NoError(t, err)

	// only the sender may cancel
	_, err = f.service.CancelTransfer(ctx, ticket.ID, "u2")
	assert.ErrorIs(t, err, status.ErrNotOwner)

	reverted, err := f.service.CancelTransfer(ctx, ticket.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", reverted.OwnerID)
	assert.Equal(t, prevRecipient, reverted.Recipient, "cancel restores the exact recipient snapshot")
	assert.Empty(t, reverted.ClaimHash)
	assert.False(t, reverted.Transferred)
	require.Len(t, reverted.TransferHistory, 1)
	assert.Equal(t, models.TransferCancelled, reverted.TransferHistory[0].Status)

	// nothing left to cancel
	_, err = f.service.CancelTransfer(ctx, ticket.ID, "u1")
	assert.ErrorIs(t, err, status.ErrNoPendingTransfer)

	// and the ticket moves normally again
	_, err = f.service.Transfer(ctx, ticket.ID, "u1",
		models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"})
	require.NoError(t, err)
}

func TestTransferService_CancelTransfer_ToExistingAccount(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	prevRecipient := ticket.Recipient
	ctx := context.Background()

	result, err := f.service.Transfer(ctx, ticket.ID, "u1",
		models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"})
	require.NoError(t, err)
	require.Len(t, result.Ticket.TransferHistory, 1)
	require.Equal(t, models.TransferPending, result.Ticket.TransferHistory[0].Status)

	// the new owner cannot pass the ticket on while the sender can
	// still pull it back
	_, err = f.service.Transfer(ctx, ticket.ID, "u2",
		models.RecipientInfo{Type: models.RecipientMobile, Value: "+221771234567"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending transfer")

	reverted, err := f.service.CancelTransfer(ctx, ticket.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", reverted.OwnerID)
	assert.Equal(t, prevRecipient, reverted.Recipient)
	assert.False(t, reverted.Transferred)
	require.Len(t, reverted.TransferHistory, 1)
	assert.Equal(t, models.TransferCancelled, reverted.TransferHistory[0].Status)
}

func TestTransferService_CancelTransfer_WindowClosed(t *testing.T) {
	f := setupTransferService(t)
	ticket := f.seedTicket(t, "u1")
	ctx := context.Background()

	_, err := f.service.Transfer(ctx, ticket.ID, "u1",
		models.RecipientInfo{Type: models.RecipientEmail, Value: "binta@example.com"})
	require.NoError(t, err)

	f.service.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	// a direct transfer is final once the window closes
	_, err = f.service.CancelTransfer(ctx, ticket.ID, "u1")
	assert.ErrorIs(t, err, status.ErrNoPendingTransfer)

	// and the recipient is free to pass the ticket on
	result, err := f.service.Transfer(ctx, ticket.ID, "u2",
		models.RecipientInfo{Type: models.RecipientMobile, Value: "+221771234567"})
	require.NoError(t, err)
	assert.Equal(t, "u1", result.Ticket.OwnerID)
	require.Len(t, result.Ticket.TransferHistory, 2)
	assert.Equal(t, models.TransferCompleted, result.Ticket.TransferHistory[0].Status)
}
