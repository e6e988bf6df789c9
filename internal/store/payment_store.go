package store

import (
	"context"
	"fmt"
	"time"

	"eventtix/internal/status"
	"eventtix/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// PaymentStore persists payment records keyed by their reference.
type PaymentStore struct {
	app core.App
}

func NewPaymentStore(app core.App) *PaymentStore {
	return &PaymentStore{app: app}
}

func (s *PaymentStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return fmt.Errorf("find payments collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("user", p.UserID)
	record.Set("event", p.EventID)
	record.Set("amount", p.Amount.String())
	record.Set("currency", p.Currency)
	record.Set("reference", p.Reference)
	record.Set("status", string(p.Status))
	record.Set("gateway", p.Gateway)
	record.Set("ticket_type", p.TicketType)
	record.Set("quantity", p.Quantity)
	record.Set("ticket_refs", p.TicketRefs)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("save payment %s: %w", p.Reference, err)
	}
	p.ID = record.Id
	p.CreatedAt = record.GetDateTime("created").Time()
	return nil
}

func (s *PaymentStore) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	record, err := s.findByReference(reference)
	if err != nil {
		return nil, err
	}
	return paymentFromRecord(record)
}

func (s *PaymentStore) AttachSession(ctx context.Context, reference, sessionID string) error {
	record, err := s.findByReference(reference)
	if err != nil {
		return err
	}
	record.Set("session_id", sessionID)
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("attach session to %s: %w", reference, err)
	}
	return nil
}

func (s *PaymentStore) MarkPaymentStatus(ctx context.Context, reference string, st models.PaymentStatus, transactionID string) error {
	record, err := s.findByReference(reference)
	if err != nil {
		return err
	}

	current := &models.Payment{Status: models.PaymentStatus(record.GetString("status"))}
	if !current.CanTransitionTo(st) {
		return fmt.Errorf("payment %s: transition %s -> %s is not allowed", reference, current.Status, st)
	}

	record.Set("status", string(st))
	if transactionID != "" {
		record.Set("transaction_id", transactionID)
	}
	if st != models.PaymentPending {
		record.Set("completed_at", time.Now().UTC())
	}

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("mark payment %s %s: %w", reference, st, err)
	}
	return nil
}

func (s *PaymentStore) TouchStatusCheck(ctx context.Context, reference string, at time.Time) error {
	record, err := s.findByReference(reference)
	if err != nil {
		return err
	}
	record.Set("last_status_check", at.UTC())
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("touch status check for %s: %w", reference, err)
	}
	return nil
}

func (s *PaymentStore) DeletePayment(ctx context.Context, reference string) error {
	record, err := s.findByReference(reference)
	if err != nil {
		return err
	}
	if err := s.app.DeleteWithContext(ctx, record); err != nil {
		return fmt.Errorf("delete payment %s: %w", reference, err)
	}
	return nil
}

func (s *PaymentStore) findByReference(reference string) (*core.Record, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"payments",
		"reference = {:reference}",
		dbx.Params{"reference": reference},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrPaymentNotFound, reference)
	}
	return record, nil
}

func paymentFromRecord(record *core.Record) (*models.Payment, error) {
	amount, err := decimal.NewFromString(record.GetString("amount"))
	if err != nil {
		return nil, fmt.Errorf("payment %s has malformed amount %q: %w", record.Id, record.GetString("amount"), err)
	}

	p := &models.Payment{
		ID:            record.Id,
		UserID:        record.GetString("user"),
		EventID:       record.GetString("event"),
		Amount:        amount,
		Currency:      record.GetString("currency"),
		Reference:     record.GetString("reference"),
		Status:        models.PaymentStatus(record.GetString("status")),
		Gateway:       record.GetString("gateway"),
		SessionID:     record.GetString("session_id"),
		TransactionID: record.GetString("transaction_id"),
		TicketType:    record.GetString("ticket_type"),
		Quantity:      record.GetInt("quantity"),
		CreatedAt:     record.GetDateTime("created").Time(),
	}

	if err := record.UnmarshalJSONField("ticket_refs", &p.TicketRefs); err != nil {
		return nil, fmt.Errorf("payment %s has malformed ticket_refs: %w", record.Id, err)
	}

	if dt := record.GetDateTime("last_status_check"); !dt.IsZero() {
		t := dt.Time()
		p.LastStatusCheck = &t
	}
	if dt := record.GetDateTime("completed_at"); !dt.IsZero() {
		t := dt.Time()
		p.CompletedAt = &t
	}
	return p, nil
}
