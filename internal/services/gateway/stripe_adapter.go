package gateway

import (
	"context"
	"fmt"
	"strings"

	"eventtix/internal/services/gateway/stripe"
	"eventtix/internal/status"
)

// StripeAdapter wraps the Stripe client to conform to PaymentGateway.
// Stripe's confirmation is synchronous: one retrieve call settles the
// outcome, so a session that is not paid is treated as failed.
type StripeAdapter struct {
	client *stripe.Client
}

func NewStripeAdapter(_ context.Context, config *stripe.Config) (*StripeAdapter, error) {
	client, err := stripe.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe client: %w", err)
	}
	return &StripeAdapter{client: client}, nil
}

func (s *StripeAdapter) GetProvider() Provider {
	return ProviderStripe
}

func (s *StripeAdapter) CreateSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	productName := req.Metadata["event_title"]
	if productName == "" {
		productName = "Event ticket " + req.Reference
	}

	session, err := s.client.CreateCheckoutSession(ctx, &stripe.SessionForm{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		ProductName: productName,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:          session.ID,
		RedirectURL: session.URL,
		Provider:    ProviderStripe,
	}, nil
}

func (s *StripeAdapter) CheckStatus(ctx context.Context, sessionID string) (*StatusResult, error) {
	session, err := s.client.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	outcome := OutcomeFailed
	if session.PaymentStatus == "paid" {
		outcome = OutcomeSuccess
	}

	return &StatusResult{
		Outcome:       outcome,
		Amount:        stripe.MajorUnits(session.AmountTotal, session.Currency),
		Currency:      strings.ToUpper(session.Currency),
		TransactionID: session.PaymentIntent,
	}, nil
}

func (s *StripeAdapter) Refund(ctx context.Context, sessionID string) error {
	session, err := s.client.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.PaymentIntent == "" {
		return fmt.Errorf("refund: session %s has no payment intent", sessionID)
	}

	_, err = s.client.CreateRefund(ctx, session.PaymentIntent, sessionID)
	return err
}

// SetTransactionChannel is a no-op: Stripe confirmation is pull-based.
func (s *StripeAdapter) SetTransactionChannel(_ chan *status.Transaction) {}

func (s *StripeAdapter) Close(_ context.Context) error {
	return nil
}
