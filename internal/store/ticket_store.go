package store

import (
	"context"
	"fmt"
	"time"

	"eventtix/internal/status"
	"eventtix/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// TicketStore persists tickets, their QR payloads and their ownership
// history.
type TicketStore struct {
	app core.App
}

func NewTicketStore(app core.App) *TicketStore {
	return &TicketStore{app: app}
}

func (s *TicketStore) CreateTickets(ctx context.Context, tickets []*models.Ticket) error {
	collection, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return fmt.Errorf("find tickets collection: %w", err)
	}

	return s.app.RunInTransaction(func(txApp core.App) error {
		for _, t := range tickets {
			record := core.NewRecord(collection)
			record.Set("event", t.EventID)
			record.Set("owner", t.OwnerID)
			record.Set("recipient", t.Recipient)
			record.Set("ticket_type", t.TicketType)
			record.Set("price", t.Price.String())
			record.Set("reference", t.Reference)
			record.Set("payment_reference", t.PaymentReference)
			record.Set("status", string(t.Status))

			if err := txApp.SaveWithContext(ctx, record); err != nil {
				return fmt.Errorf("save ticket %s: %w", t.Reference, err)
			}
			t.ID = record.Id
			t.CreatedAt = record.GetDateTime("created").Time()
		}
		return nil
	})
}

func (s *TicketStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	return ticketFromRecord(record)
}

func (s *TicketStore) ListByPaymentReference(ctx context.Context, paymentReference string) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"payment_reference = {:reference}",
		"+created",
		0,
		0,
		dbx.Params{"reference": paymentReference},
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets for %s: %w", paymentReference, err)
	}

	tickets := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		t, terr := ticketFromRecord(r)
		if terr != nil {
			return nil, terr
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *TicketStore) MarkStatusByPaymentReference(ctx context.Context, paymentReference string, st models.TicketStatus) error {
	_, err := s.app.DB().NewQuery(
		"UPDATE tickets SET status = {:status} WHERE payment_reference = {:reference}",
	).Bind(dbx.Params{
		"status":    string(st),
		"reference": paymentReference,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("mark tickets %s for %s: %w", st, paymentReference, err)
	}
	return nil
}

func (s *TicketStore) SetTicketQR(ctx context.Context, ticketID string, qr *models.QRCode) error {
	record, err := s.app.FindRecordById("tickets", ticketID)
	if err != nil {
		return fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketID)
	}
	record.Set("qr_code", qr)
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("store qr for ticket %s: %w", ticketID, err)
	}
	return nil
}

func (s *TicketStore) DeleteByPaymentReference(ctx context.Context, paymentReference string) error {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"payment_reference = {:reference}",
		"",
		0,
		0,
		dbx.Params{"reference": paymentReference},
	)
	if err != nil {
		return fmt.Errorf("list tickets for %s: %w", paymentReference, err)
	}

	return s.app.RunInTransaction(func(txApp core.App) error {
		for _, r := range records {
			if err := txApp.DeleteWithContext(ctx, r); err != nil {
				return fmt.Errorf("delete ticket %s: %w", r.Id, err)
			}
		}
		return nil
	})
}

// UpdateOwnership writes the ticket's owner, recipient, transfer state and
// claim hash in one transaction so a half-applied transfer can never be
// observed.
func (s *TicketStore) UpdateOwnership(ctx context.Context, t *models.Ticket, previousOwner string) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("tickets", t.ID)
		if err != nil {
			return fmt.Errorf("%w: %s", status.ErrTicketNotFound, t.ID)
		}
		if owner := record.GetString("owner"); owner != previousOwner {
			return fmt.Errorf("%w: ticket %s changed owner concurrently", status.ErrNotOwner, t.ID)
		}

		record.Set("owner", t.OwnerID)
		record.Set("recipient", t.Recipient)
		record.Set("transferred", t.Transferred)
		record.Set("transfer_history", t.TransferHistory)
		record.Set("claim_hash", t.ClaimHash)

		if err := txApp.SaveWithContext(ctx, record); err != nil {
			return fmt.Errorf("save ticket ownership %s: %w", t.ID, err)
		}
		return nil
	})
}

// MarkScanned admits exactly one scan per ticket through a conditional
// UPDATE on the scanned flag.
func (s *TicketStore) MarkScanned(ctx context.Context, ticketID, adminID string, at time.Time) error {
	scannedAt, err := types.ParseDateTime(at.UTC())
	if err != nil {
		return fmt.Errorf("mark ticket %s scanned: %w", ticketID, err)
	}

	res, err := s.app.DB().NewQuery(
		"UPDATE tickets SET scanned = TRUE, scanned_at = {:at}, scanned_by = {:by}" +
			" WHERE id = {:id} AND scanned = FALSE",
	).Bind(dbx.Params{
		"at": scannedAt.String(),
		"by": adminID,
		"id": ticketID,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("mark ticket %s scanned: %w", ticketID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark ticket %s scanned: %w", ticketID, err)
	}
	if affected == 0 {
		if _, ferr := s.app.FindRecordById("tickets", ticketID); ferr != nil {
			return fmt.Errorf("%w: %s", status.ErrTicketNotFound, ticketID)
		}
		return status.ErrAlreadyScanned
	}
	return nil
}

func ticketFromRecord(record *core.Record) (*models.Ticket, error) {
	price, err := decimal.NewFromString(record.GetString("price"))
	if err != nil {
		return nil, fmt.Errorf("ticket %s has malformed price %q: %w", record.Id, record.GetString("price"), err)
	}

	t := &models.Ticket{
		ID:               record.Id,
		EventID:          record.GetString("event"),
		OwnerID:          record.GetString("owner"),
		TicketType:       record.GetString("ticket_type"),
		Price:            price,
		Reference:        record.GetString("reference"),
		PaymentReference: record.GetString("payment_reference"),
		Status:           models.TicketStatus(record.GetString("status")),
		Scanned:          record.GetBool("scanned"),
		ScannedBy:        record.GetString("scanned_by"),
		Transferred:      record.GetBool("transferred"),
		ClaimHash:        record.GetString("claim_hash"),
		CreatedAt:        record.GetDateTime("created").Time(),
	}

	if err := record.UnmarshalJSONField("recipient", &t.Recipient); err != nil {
		return nil, fmt.Errorf("ticket %s has malformed recipient: %w", record.Id, err)
	}
	if raw := record.GetString("transfer_history"); raw != "" {
		if err := record.UnmarshalJSONField("transfer_history", &t.TransferHistory); err != nil {
			return nil, fmt.Errorf("ticket %s has malformed transfer history: %w", record.Id, err)
		}
	}
	if raw := record.GetString("qr_code"); raw != "" {
		var qr models.QRCode
		if err := record.UnmarshalJSONField("qr_code", &qr); err != nil {
			return nil, fmt.Errorf("ticket %s has malformed qr payload: %w", record.Id, err)
		}
		if qr.Data != "" {
			t.QRCode = &qr
		}
	}
	if dt := record.GetDateTime("scanned_at"); !dt.IsZero() {
		at := dt.Time()
		t.ScannedAt = &at
	}
	return t, nil
}
