package gateway

import (
	"context"

	"eventtix/internal/status"

	"github.com/shopspring/decimal"
)

// Provider identifies a payment gateway implementation.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderWave   Provider = "wave"
)

// SessionRequest carries everything a gateway needs to open a checkout
// session. Metadata round-trips the purchase context through the provider,
// which keeps the purchase recoverable even if the local payment record is
// lost.
type SessionRequest struct {
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Session is the gateway-specific handle returned from CreateSession.
type Session struct {
	ID          string   `json:"id"`
	RedirectURL string   `json:"redirect_url"`
	Provider    Provider `json:"provider"`
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomePending Outcome = "pending"
)

// StatusResult is the provider's view of a session's terminal state.
type StatusResult struct {
	Outcome       Outcome         `json:"outcome"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id"`
}

// PaymentGateway is the common contract for all payment providers.
type PaymentGateway interface {
	// GetProvider returns the provider this gateway talks to.
	GetProvider() Provider

	// CreateSession opens a checkout session. Implementations must tag
	// the request with an idempotency key equal to req.Reference so a
	// retried initiate cannot create a duplicate charge session.
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)

	// CheckStatus retrieves the session outcome. A pending result is
	// always safe to re-query.
	CheckStatus(ctx context.Context, sessionID string) (*StatusResult, error)

	// Refund reverses a settled session where the provider supports it.
	Refund(ctx context.Context, sessionID string) error

	// SetTransactionChannel registers a channel for async transaction
	// notifications, for providers that push them.
	SetTransactionChannel(ch chan *status.Transaction)

	// Close releases provider connections.
	Close(ctx context.Context) error
}

// GatewayFactory builds gateway instances from provider-specific configs.
type GatewayFactory interface {
	CreateGateway(ctx context.Context, provider Provider, config any) (PaymentGateway, error)
	SupportedProviders() []Provider
}
