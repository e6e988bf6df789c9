package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		tickets := core.NewBaseCollection("tickets")
		tickets.Fields.Add(
			&core.RelationField{
				Name:         "event",
				CollectionId: events.Id,
				MaxSelect:    1,
				Required:     true,
			},
			// empty while a transfer waits for its claim code
			&core.RelationField{
				Name:         "owner",
				CollectionId: users.Id,
				MaxSelect:    1,
			},
			&core.JSONField{
				Name:    "recipient",
				MaxSize: 2000,
			},
			&core.TextField{
				Name: "ticket_type",
				Max:  100,
			},
			&core.TextField{
				Name:     "price",
				Required: true,
				Max:      50,
			},
			&core.TextField{
				Name:     "reference",
				Required: true,
				Max:      64,
			},
			&core.TextField{
				Name:     "payment_reference",
				Required: true,
				Max:      64,
			},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"pending", "success", "failed"},
				MaxSelect: 1,
				Required:  true,
			},
			&core.BoolField{
				Name: "scanned",
			},
			&core.DateField{
				Name: "scanned_at",
			},
			&core.RelationField{
				Name:         "scanned_by",
				CollectionId: users.Id,
				MaxSelect:    1,
			},
			&core.BoolField{
				Name: "transferred",
			},
			&core.JSONField{
				Name:    "transfer_history",
				MaxSize: 50000,
			},
			&core.JSONField{
				Name:    "qr_code",
				MaxSize: 5000,
			},
			&core.TextField{
				Name: "claim_hash",
				Max:  100,
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)
		tickets.AddIndex("idx_tickets_reference", true, "reference", "")
		tickets.AddIndex("idx_tickets_payment_reference", false, "payment_reference", "")

		return app.Save(tickets)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
