package gateway

import (
	"context"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/store"
)

// binding downloads one server collection and replaces its local table.
type binding struct {
	download func(ctx context.Context) (int, error)
}

func bindObjects[T any](client *grocy.Client, entity grocy.Entity, table *store.Table[T]) binding {
	return binding{download: func(ctx context.Context) (int, error) {
		var rows []T
		if err := client.GetObjects(ctx, entity, &rows); err != nil {
			return 0, err
		}
		if err := table.ReplaceAll(ctx, rows); err != nil {
			return 0, err
		}
		return len(rows), nil
	}}
}

func bindings(client *grocy.Client, s *store.Stores) map[grocy.Entity]binding {
	return map[grocy.Entity]binding{
		grocy.EntityProducts:          bindObjects(client, grocy.EntityProducts, s.Products.Table),
		grocy.EntityProductBarcodes:   bindObjects(client, grocy.EntityProductBarcodes, s.ProductBarcodes.Table),
		grocy.EntityLocations:         bindObjects(client, grocy.EntityLocations, s.Locations.Table),
		grocy.EntityQuantityUnits:     bindObjects(client, grocy.EntityQuantityUnits, s.QuantityUnits.Table),
		grocy.EntityRecipes:           bindObjects(client, grocy.EntityRecipes, s.Recipes.Table),
		grocy.EntityRecipePositions:   bindObjects(client, grocy.EntityRecipePositions, s.RecipePositions.Table),
		grocy.EntityShoppingListItems: bindObjects(client, grocy.EntityShoppingListItems, s.ShoppingListItems.Table),
		grocy.EntityRecipeFulfillments: {download: func(ctx context.Context) (int, error) {
			rows, err := client.RecipeFulfillments(ctx)
			if err != nil {
				return 0, err
			}
			if rows == nil {
				rows = []model.RecipeFulfillment{}
			}
			if err := s.RecipeFulfillments.ReplaceAll(ctx, rows); err != nil {
				return 0, err
			}
			return len(rows), nil
		}},
	}
}
