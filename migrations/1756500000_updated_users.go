package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.Add(
			&core.TextField{
				Name: "mobile",
				Max:  20,
			},
			&core.SelectField{
				Name:      "role",
				Values:    []string{"user", "admin"},
				MaxSelect: 1,
			},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.RemoveByName("mobile")
		collection.Fields.RemoveByName("role")

		return app.Save(collection)
	})
}
