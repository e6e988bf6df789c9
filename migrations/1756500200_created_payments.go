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

		payments := core.NewBaseCollection("payments")
		payments.Fields.Add(
			&core.RelationField{
				Name:         "user",
				CollectionId: users.Id,
				MaxSelect:    1,
				Required:     true,
			},
			&core.RelationField{
				Name:         "event",
				CollectionId: events.Id,
				MaxSelect:    1,
				Required:     true,
			},
			&core.TextField{
				Name:     "amount",
				Required: true,
				Max:      50,
			},
			&core.TextField{
				Name:     "currency",
				Required: true,
				Max:      3,
			},
			&core.TextField{
				Name:     "reference",
				Required: true,
				Max:      64,
			},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"pending", "success", "failed", "refunded"},
				MaxSelect: 1,
				Required:  true,
			},
			&core.SelectField{
				Name:      "gateway",
				Values:    []string{"stripe", "wave"},
				MaxSelect: 1,
				Required:  true,
			},
			&core.TextField{
				Name: "session_id",
				Max:  255,
			},
			&core.TextField{
				Name: "transaction_id",
				Max:  255,
			},
			&core.TextField{
				Name: "ticket_type",
				Max:  100,
			},
			&core.NumberField{
				Name:     "quantity",
				Required: true,
				OnlyInt:  true,
			},
			&core.JSONField{
				Name:    "ticket_refs",
				MaxSize: 10000,
			},
			&core.DateField{
				Name: "last_status_check",
			},
			&core.DateField{
				Name: "completed_at",
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
		payments.AddIndex("idx_payments_reference", true, "reference", "")

		return app.Save(payments)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
