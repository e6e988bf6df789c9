package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketPending TicketStatus = "pending"
	TicketSuccess TicketStatus = "success"
	TicketFailed  TicketStatus = "failed"
)

type RecipientType string

const (
	RecipientMobile RecipientType = "mobile"
	RecipientEmail  RecipientType = "email"
)

type RecipientInfo struct {
	Type  RecipientType `json:"type"`
	Value string        `json:"value"`
	Name  string        `json:"name,omitempty"`
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCancelled TransferStatus = "cancelled"
	TransferCompleted TransferStatus = "completed"
)

// TransferRecord captures one ownership move attempt. PrevRecipient
// snapshots the recipient info before the move so a cancellation can
// revert the ticket exactly.
type TransferRecord struct {
	From          string         `json:"from"`
	To            string         `json:"to"`
	PrevRecipient RecipientInfo  `json:"prev_recipient"`
	TransferredAt time.Time      `json:"transferred_at"`
	Status        TransferStatus `json:"status"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

type QRCode struct {
	Data        string    `json:"data"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Ticket struct {
	ID               string           `json:"id"`
	EventID          string           `json:"event_id"`
	OwnerID          string           `json:"owner_id,omitempty"` // empty while pending claim
	Recipient        RecipientInfo    `json:"recipient"`
	TicketType       string           `json:"ticket_type"`
	Price            decimal.Decimal  `json:"price"`
	Reference        string           `json:"reference"`
	PaymentReference string           `json:"payment_reference"`
	Status           TicketStatus     `json:"status"`
	Scanned          bool             `json:"scanned"`
	ScannedAt        *time.Time       `json:"scanned_at,omitempty"`
	ScannedBy        string           `json:"scanned_by,omitempty"`
	Transferred      bool             `json:"transferred"`
	TransferHistory  []TransferRecord `json:"transfer_history,omitempty"`
	QRCode           *QRCode          `json:"qr_code,omitempty"`
	ClaimHash        string           `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
}

// PendingTransfer returns the latest transfer record if it is still
// awaiting confirmation, nil otherwise.
func (t *Ticket) PendingTransfer() *TransferRecord {
	if len(t.TransferHistory) == 0 {
		return nil
	}
	last := &t.TransferHistory[len(t.TransferHistory)-1]
	if last.Status != TransferPending {
		return nil
	}
	return last
}
