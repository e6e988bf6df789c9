package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventCategory string

const (
	CategoryConcert    EventCategory = "concert"
	CategoryConference EventCategory = "conference"
	CategorySport      EventCategory = "sport"
	CategoryFestival   EventCategory = "festival"
	CategoryOther      EventCategory = "other"
)

type Event struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Country   string        `json:"country"`
	City      string        `json:"city"`
	Date      time.Time     `json:"date"`
	Category  EventCategory `json:"category"`
	Organizer string        `json:"organizer"`
	Tiers     []TicketTier  `json:"ticket_tiers"`
}

type TicketTier struct {
	ID       string          `json:"id"`
	EventID  string          `json:"event_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Quantity int             `json:"quantity"`
	Sold     int             `json:"sold"`
}

// Remaining returns how many tickets of this tier are still unsold.
func (t *TicketTier) Remaining() int {
	remaining := t.Quantity - t.Sold
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tier looks up a tier by name.
func (e *Event) Tier(name string) (*TicketTier, bool) {
	for i := range e.Tiers {
		if e.Tiers[i].Name == name {
			return &e.Tiers[i], true
		}
	}
	return nil, false
}

// SoldOut is recomputed from the tiers every time, never read from storage.
func (e *Event) SoldOut() bool {
	if len(e.Tiers) == 0 {
		return false
	}
	for i := range e.Tiers {
		if e.Tiers[i].Sold < e.Tiers[i].Quantity {
			return false
		}
	}
	return true
}

// Ended reports whether the event date has already passed.
func (e *Event) Ended(now time.Time) bool {
	return !e.Date.IsZero() && e.Date.Before(now)
}
