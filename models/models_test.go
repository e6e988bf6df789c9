package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPayment_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{"pending to success", PaymentPending, PaymentSuccess, true},
		{"pending to failed", PaymentPending, PaymentFailed, true},
		{"pending to refunded", PaymentPending, PaymentRefunded, false},
		{"success to refunded", PaymentSuccess, PaymentRefunded, true},
		{"success to failed capacity rollback", PaymentSuccess, PaymentFailed, true},
		{"success to pending", PaymentSuccess, PaymentPending, false},
		{"failed is terminal", PaymentFailed, PaymentSuccess, false},
		{"refunded is terminal", PaymentRefunded, PaymentFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Payment{Status: tt.from}
			assert.Equal(t, tt.allowed, p.CanTransitionTo(tt.to))
		})
	}
}

func TestPayment_Terminal(t *testing.T) {
	assert.False(t, (&Payment{Status: PaymentPending}).Terminal())
	assert.True(t, (&Payment{Status: PaymentSuccess}).Terminal())
	assert.True(t, (&Payment{Status: PaymentFailed}).Terminal())
	assert.True(t, (&Payment{Status: PaymentRefunded}).Terminal())
}

func TestTicketTier_Remaining(t *testing.T) {
	tier := TicketTier{Quantity: 100, Sold: 30}
	assert.Equal(t, 70, tier.Remaining())

	tier.Sold = 100
	assert.Equal(t, 0, tier.Remaining())

	// corrupted counter must not report negative availability
	tier.Sold = 120
	assert.Equal(t, 0, tier.Remaining())
}

func TestEvent_Tier(t *testing.T) {
	event := Event{
		Tiers: []TicketTier{
			{Name: "standard", Price: decimal.NewFromInt(50)},
			{Name: "vip", Price: decimal.NewFromInt(150)},
		},
	}

	vip, ok := event.Tier("vip")
	assert.True(t, ok)
	assert.True(t, vip.Price.Equal(decimal.NewFromInt(150)))

	_, ok = event.Tier("VIP")
	assert.False(t, ok, "tier lookup is exact, not case folded")

	_, ok = event.Tier("platinum")
	assert.False(t, ok)
}

func TestEvent_SoldOut(t *testing.T) {
	event := Event{
		Tiers: []TicketTier{
			{Name: "standard", Quantity: 10, Sold: 10},
			{Name: "vip", Quantity: 5, Sold: 4},
		},
	}
	assert.False(t, event.SoldOut(), "one tier still has inventory")

	event.Tiers[1].Sold = 5
	assert.True(t, event.SoldOut())

	assert.False(t, (&Event{}).SoldOut(), "an event with no tiers is not sold out")
}

func TestEvent_Ended(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Event{Date: now.Add(-time.Hour)}).Ended(now))
	assert.False(t, (&Event{Date: now.Add(time.Hour)}).Ended(now))
	assert.False(t, (&Event{}).Ended(now), "zero date never counts as ended")
}

func TestTicket_PendingTransfer(t *testing.T) {
	ticket := &Ticket{}
	assert.Nil(t, ticket.PendingTransfer())

	ticket.TransferHistory = []TransferRecord{
		{From: "a", To: "b", Status: TransferCompleted},
	}
	assert.Nil(t, ticket.PendingTransfer())

	ticket.TransferHistory = append(ticket.TransferHistory, TransferRecord{
		From:   "b",
		Status: TransferPending,
	})
	pending := ticket.PendingTransfer()
	assert.NotNil(t, pending)
	assert.Equal(t, "b", pending.From)

	// only the latest record counts
	ticket.TransferHistory[1].Status = TransferCancelled
	assert.Nil(t, ticket.PendingTransfer())
}

func TestUser_Contact(t *testing.T) {
	u := &User{ID: "u1", Name: "Ama", Mobile: "+221771234567", Email: "ama@example.com"}
	contact := u.Contact()
	assert.Equal(t, RecipientMobile, contact.Type)
	assert.Equal(t, "+221771234567", contact.Value)

	u.Mobile = ""
	contact = u.Contact()
	assert.Equal(t, RecipientEmail, contact.Type)
	assert.Equal(t, "ama@example.com", contact.Value)
}
