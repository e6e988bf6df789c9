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

		events := core.NewBaseCollection("events")
		events.Fields.Add(
			&core.TextField{
				Name:     "title",
				Required: true,
				Max:      200,
			},
			&core.TextField{
				Name: "country",
				Max:  100,
			},
			&core.TextField{
				Name: "city",
				Max:  100,
			},
			&core.DateField{
				Name:     "date",
				Required: true,
			},
			&core.SelectField{
				Name:      "category",
				Values:    []string{"concert", "conference", "sport", "festival", "other"},
				MaxSelect: 1,
			},
			&core.RelationField{
				Name:         "organizer",
				CollectionId: users.Id,
				MaxSelect:    1,
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
		if err := app.Save(events); err != nil {
			return err
		}

		tiers := core.NewBaseCollection("ticket_tiers")
		tiers.Fields.Add(
			&core.RelationField{
				Name:          "event",
				CollectionId:  events.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			&core.TextField{
				Name:     "name",
				Required: true,
				Max:      100,
			},
			&core.TextField{
				Name:     "price",
				Required: true,
				Max:      50,
			},
			&core.TextField{
				Name:     "currency",
				Required: true,
				Max:      3,
			},
			&core.NumberField{
				Name:     "quantity",
				Required: true,
				OnlyInt:  true,
			},
			&core.NumberField{
				Name:    "sold",
				OnlyInt: true,
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
		tiers.AddIndex("idx_ticket_tiers_event_name", true, "event, name", "")

		return app.Save(tiers)
	}, func(app core.App) error {
		for _, name := range []string{"ticket_tiers", "events"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
