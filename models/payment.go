package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	EventID         string          `json:"event_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reference       string          `json:"reference"`
	Status          PaymentStatus   `json:"status"`
	Gateway         string          `json:"gateway"` // stripe, wave
	SessionID       string          `json:"session_id,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	TicketType      string          `json:"ticket_type"`
	Quantity        int             `json:"quantity"`
	TicketRefs      []string        `json:"ticket_refs"`
	CreatedAt       time.Time       `json:"created_at"`
	LastStatusCheck *time.Time      `json:"last_status_check,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// CanTransitionTo enforces the payment lifecycle: a pending payment moves
// to exactly one terminal status, and only a successful one may be
// refunded. The success->failed edge exists for the capacity rollback
// performed when a verification would oversell a tier.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	switch p.Status {
	case PaymentPending:
		return next == PaymentSuccess || next == PaymentFailed
	case PaymentSuccess:
		return next == PaymentRefunded || next == PaymentFailed
	default:
		return false
	}
}

// Terminal reports whether the payment already reached a final status.
func (p *Payment) Terminal() bool {
	return p.Status != PaymentPending
}
