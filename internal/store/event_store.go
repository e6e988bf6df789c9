package store

import (
	"context"
	"fmt"

	"eventtix/internal/status"
	"eventtix/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// EventStore reads events and owns the authoritative sold counters on
// their ticket tiers.
type EventStore struct {
	app core.App
}

func NewEventStore(app core.App) *EventStore {
	return &EventStore{app: app}
}

func (s *EventStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrEventNotFound, id)
	}

	event := &models.Event{
		ID:        record.Id,
		Title:     record.GetString("title"),
		Country:   record.GetString("country"),
		City:      record.GetString("city"),
		Date:      record.GetDateTime("date").Time(),
		Category:  models.EventCategory(record.GetString("category")),
		Organizer: record.GetString("organizer"),
	}

	tiers, err := s.tiersForEvent(id)
	if err != nil {
		return nil, err
	}
	event.Tiers = tiers

	return event, nil
}

func (s *EventStore) tiersForEvent(eventID string) ([]models.TicketTier, error) {
	records, err := s.app.FindRecordsByFilter(
		"ticket_tiers",
		"event = {:event}",
		"+created",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, fmt.Errorf("load ticket tiers for %s: %w", eventID, err)
	}

	tiers := make([]models.TicketTier, 0, len(records))
	for _, r := range records {
		price, perr := decimal.NewFromString(r.GetString("price"))
		if perr != nil {
			return nil, fmt.Errorf("tier %s has malformed price %q: %w", r.Id, r.GetString("price"), perr)
		}
		tiers = append(tiers, models.TicketTier{
			ID:       r.Id,
			EventID:  eventID,
			Name:     r.GetString("name"),
			Price:    price,
			Currency: r.GetString("currency"),
			Quantity: r.GetInt("quantity"),
			Sold:     r.GetInt("sold"),
		})
	}
	return tiers, nil
}

// CommitTierSale increments the tier's sold count with a conditional
// UPDATE so the capacity check and the increment are one statement. Zero
// affected rows means the tier is either unknown or the increment would
// oversell it. The soldOut flag is recomputed from the tier rows strictly
// after the increment.
func (s *EventStore) CommitTierSale(ctx context.Context, eventID, tierName string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("commit tier sale: non-positive quantity %d", qty)
	}

	res, err := s.app.DB().NewQuery(
		"UPDATE ticket_tiers SET sold = sold + {:qty}" +
			" WHERE event = {:event} AND name = {:name} AND sold + {:qty} <= quantity",
	).Bind(dbx.Params{
		"qty":   qty,
		"event": eventID,
		"name":  tierName,
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("commit tier sale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit tier sale: %w", err)
	}
	if affected == 0 {
		if _, ferr := s.app.FindFirstRecordByFilter(
			"ticket_tiers",
			"event = {:event} && name = {:name}",
			dbx.Params{"event": eventID, "name": tierName},
		); ferr != nil {
			return false, fmt.Errorf("%w: %q", status.ErrTierNotFound, tierName)
		}
		return false, status.ErrCapacityExceeded
	}

	tiers, err := s.tiersForEvent(eventID)
	if err != nil {
		return false, err
	}
	event := &models.Event{ID: eventID, Tiers: tiers}
	return event.SoldOut(), nil
}
