package status

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// initiate
	ErrEventNotFound         = errors.New("payment: event not found")
	ErrEventSoldOut          = errors.New("payment: event sold out")
	ErrTierNotFound          = errors.New("payment: ticket tier not found")
	ErrInsufficientInventory = errors.New("payment: not enough tickets remaining")
	ErrGatewaySession        = errors.New("payment: gateway session error")

	// verify
	ErrPaymentNotFound  = errors.New("payment: payment not found")
	ErrPaymentFailed    = errors.New("payment: payment failed")
	ErrCapacityExceeded = errors.New("payment: tier capacity exceeded at verification")
	ErrVerifyInProgress = errors.New("payment: verification already in progress")

	// tickets
	ErrTicketNotFound    = errors.New("ticket: ticket not found")
	ErrNotOwner          = errors.New("ticket: caller does not own this ticket")
	ErrTicketNotPaid     = errors.New("ticket: ticket is not paid")
	ErrNoPendingTransfer = errors.New("ticket: no pending transfer to cancel")
	ErrInvalidClaimCode  = errors.New("ticket: invalid claim code")
	ErrAlreadyScanned    = errors.New("ticket: ticket already scanned")
	ErrEventEnded        = errors.New("ticket: event already ended")

	// qr
	ErrInvalidQR = errors.New("qr: invalid payload")
	ErrExpiredQR = errors.New("qr: payload expired")

	// currency / gateway config
	ErrUnsupportedCurrency = errors.New("currency: unsupported currency code")
	ErrUnsupportedProvider = errors.New("gateway: unsupported payment provider")
)

// Transaction is the payload delivered on a gateway's async
// transaction-notification channel.
type Transaction struct {
	Reference     string          `json:"reference"`
	SessionID     string          `json:"session_id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp"`
}
