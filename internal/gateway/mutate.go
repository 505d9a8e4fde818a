package gateway

import (
	"context"
	"fmt"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/model"
)

// dependents lists tables whose server-side contents change when the key
// entity is written.
var dependents = map[grocy.Entity][]grocy.Entity{
	grocy.EntityRecipes:         {grocy.EntityRecipeFulfillments},
	grocy.EntityRecipePositions: {grocy.EntityRecipeFulfillments},
	grocy.EntityProducts:        {grocy.EntityRecipeFulfillments},
}

// Create posts payload and returns the new server id.
func (g *Gateway) Create(ctx context.Context, entity grocy.Entity, payload any) (int64, error) {
	if err := g.writable(entity); err != nil {
		return 0, err
	}
	id, err := g.client.CreateObject(ctx, entity, payload)
	g.track(err)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", entity, err)
	}
	g.changed(ctx, entity, "created", id)
	return id, nil
}

// Update replaces the server row.
func (g *Gateway) Update(ctx context.Context, entity grocy.Entity, id int64, payload any) error {
	if err := g.writable(entity); err != nil {
		return err
	}
	err := g.client.UpdateObject(ctx, entity, id, payload)
	g.track(err)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", entity, id, err)
	}
	g.changed(ctx, entity, "updated", id)
	return nil
}

// Delete removes the server row.
func (g *Gateway) Delete(ctx context.Context, entity grocy.Entity, id int64) error {
	if err := g.writable(entity); err != nil {
		return err
	}
	err := g.client.DeleteObject(ctx, entity, id)
	g.track(err)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", entity, id, err)
	}
	g.changed(ctx, entity, "deleted", id)
	return nil
}

// ProductDetails fetches live stock data for a product. Nothing is cached.
func (g *Gateway) ProductDetails(ctx context.Context, productID int64) (*model.ProductDetails, error) {
	d, err := g.client.ProductDetails(ctx, productID)
	g.track(err)
	if err != nil {
		return nil, fmt.Errorf("product details %d: %w", productID, err)
	}
	return d, nil
}

// ConsumeRecipe books out the recipe's ingredients.
func (g *Gateway) ConsumeRecipe(ctx context.Context, recipeID int64) error {
	err := g.client.ConsumeRecipe(ctx, recipeID)
	g.track(err)
	if err != nil {
		return fmt.Errorf("consume recipe %d: %w", recipeID, err)
	}
	g.changed(ctx, grocy.EntityRecipeFulfillments, "consumed", recipeID)
	return nil
}

// AddNotFulfilledProductsToShoppingList puts the recipe's missing
// ingredients on the shopping list, except the excluded products.
func (g *Gateway) AddNotFulfilledProductsToShoppingList(ctx context.Context, recipeID int64, excluded []int64) error {
	err := g.client.AddNotFulfilledProductsToShoppingList(ctx, recipeID, excluded)
	g.track(err)
	if err != nil {
		return fmt.Errorf("add missing products of recipe %d: %w", recipeID, err)
	}
	g.changed(ctx, grocy.EntityShoppingListItems, "updated", 0)
	g.invalidate(ctx, grocy.EntityRecipeFulfillments)
	return nil
}

// CopyRecipe duplicates a recipe and returns the new id.
func (g *Gateway) CopyRecipe(ctx context.Context, recipeID int64) (int64, error) {
	id, err := g.client.CopyRecipe(ctx, recipeID)
	g.track(err)
	if err != nil {
		return 0, fmt.Errorf("copy recipe %d: %w", recipeID, err)
	}
	g.changed(ctx, grocy.EntityRecipes, "created", id)
	g.invalidate(ctx, grocy.EntityRecipePositions)
	return id, nil
}

// changed invalidates entity and its dependents, then notifies listeners.
func (g *Gateway) writable(entity grocy.Entity) error {
	if _, err := g.binding(entity); err != nil {
		return err
	}
	if entity.ReadOnly() {
		return fmt.Errorf("%s: %w", entity, ErrReadOnly)
	}
	return nil
}

func (g *Gateway) changed(ctx context.Context, entity grocy.Entity, action string, id int64) {
	g.invalidate(ctx, entity)
	for _, dep := range dependents[entity] {
		g.invalidate(ctx, dep)
	}
	g.notifier.Notify(string(entity), action, id)
}

// invalidate logs failures instead of returning them; the server write has
// already succeeded at this point.
func (g *Gateway) invalidate(ctx context.Context, entity grocy.Entity) {
	if err := g.watermarks.Invalidate(context.WithoutCancel(ctx), string(entity)); err != nil {
		g.logger.Error("invalidate watermark", "entity", entity, "error", err)
	}
}
