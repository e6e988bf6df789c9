package store

import (
	"context"
	"fmt"

	"eventtix/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// UserStore resolves accounts from the auth collection.
type UserStore struct {
	app core.App
}

func NewUserStore(app core.App) *UserStore {
	return &UserStore{app: app}
}

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	record, err := s.app.FindRecordById("users", id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return userFromRecord(record), nil
}

// FindByContact resolves a recipient to an existing account. A nil user
// with a nil error means no account matches and the ticket stays claimable.
func (s *UserStore) FindByContact(ctx context.Context, typ models.RecipientType, value string) (*models.User, error) {
	switch typ {
	case models.RecipientEmail:
		record, err := s.app.FindAuthRecordByEmail("users", value)
		if err != nil {
			return nil, nil
		}
		return userFromRecord(record), nil
	case models.RecipientMobile:
		record, err := s.app.FindFirstRecordByFilter(
			"users",
			"mobile = {:mobile}",
			dbx.Params{"mobile": value},
		)
		if err != nil {
			return nil, nil
		}
		return userFromRecord(record), nil
	default:
		return nil, fmt.Errorf("unknown recipient type %q", typ)
	}
}

func userFromRecord(record *core.Record) *models.User {
	return &models.User{
		ID:     record.Id,
		Name:   record.GetString("name"),
		Email:  record.GetString("email"),
		Mobile: record.GetString("mobile"),
		Role:   record.GetString("role"),
	}
}
