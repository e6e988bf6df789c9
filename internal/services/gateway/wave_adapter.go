package gateway

import (
	"context"
	"fmt"
	"strings"

	"eventtix/internal/services/gateway/wave"
	"eventtix/internal/status"
)

// WaveAdapter wraps the Wave client to conform to PaymentGateway. Wave has
// no synchronous redirect confirmation, so CheckStatus reports pending
// until the provider reaches a terminal payment status and the caller is
// expected to poll.
type WaveAdapter struct {
	client *wave.Wave
}

func NewWaveAdapter(ctx context.Context, config *wave.Config) (*WaveAdapter, error) {
	client, err := wave.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create wave client: %w", err)
	}
	return &WaveAdapter{client: client}, nil
}

func (w *WaveAdapter) GetProvider() Provider {
	return ProviderWave
}

func (w *WaveAdapter) CreateSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	session, err := w.client.CreateSession(ctx, &wave.SessionForm{
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reference:  req.Reference,
		SuccessURL: req.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:          session.ID,
		RedirectURL: session.LaunchURL,
		Provider:    ProviderWave,
	}, nil
}

func (w *WaveAdapter) CheckStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	session, err := w.client.CheckSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var outcome Outcome
	switch strings.ToLower(session.PaymentStatus) {
	case "succeeded":
		outcome = OutcomeSuccess
	case "failed", "cancelled", "expired":
		outcome = OutcomeFailed
	default:
		// processing, open, or any status this build does not know is
		// treated as still pending and safely re-queried.
		outcome = OutcomePending
	}

	return &StatusResult{
		Outcome:       outcome,
		Amount:        session.Amount,
		Currency:      strings.ToUpper(session.Currency),
		TransactionID: session.TransactionID,
	}, nil
}

// SettlementCurrency reports the only currency Wave sessions can charge.
func (w *WaveAdapter) SettlementCurrency() string {
	return w.client.SettlementCurrency()
}

// Refund is not available through Wave's checkout API.
func (w *WaveAdapter) Refund(_ context.Context, sessionID string) error {
	return fmt.Errorf("wave: refunds are not supported for session %s", sessionID)
}

func (w *WaveAdapter) SetTransactionChannel(ch chan *status.Transaction) {
	w.client.SetTranChannel(ch)
}

func (w *WaveAdapter) Close(ctx context.Context) error {
	return w.client.Close(ctx)
}
