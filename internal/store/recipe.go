package store

import (
	"context"
	"database/sql"

	"github.com/dukerupert/grocysync/internal/model"
)

type RecipeStore struct {
	*Table[model.Recipe]
}

func scanRecipe(scanner scanner) (*model.Recipe, error) {
	var r model.Recipe
	err := scanner.Scan(
		&r.ID, &r.Name, &r.Description, &r.BaseServings, &r.DesiredServings,
		&r.NotCheckShoppingList, &r.ProductID, &r.Type,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	cols := []string{"id", "name", "description", "base_servings", "desired_servings", "not_check_shoppinglist", "product_id", "type"}
	args := func(r *model.Recipe) []any {
		return []any{r.ID, r.Name, r.Description, r.BaseServings, r.DesiredServings, r.NotCheckShoppingList, r.ProductID, r.Type}
	}
	return &RecipeStore{newTable(db, "recipes", cols, scanRecipe, args)}
}

// ListNormal returns user recipes, skipping the meal-plan shadow recipes
// Grocy keeps in the same collection.
func (s *RecipeStore) ListNormal(ctx context.Context) ([]model.Recipe, error) {
	return s.query(ctx, s.selectSQL+` WHERE type = 'normal' OR type = '' ORDER BY name COLLATE NOCASE ASC`)
}

type RecipePositionStore struct {
	*Table[model.RecipePosition]
}

func scanRecipePosition(scanner scanner) (*model.RecipePosition, error) {
	var p model.RecipePosition
	err := scanner.Scan(
		&p.ID, &p.RecipeID, &p.ProductID, &p.Amount, &p.QuID, &p.Note,
		&p.OnlyCheckSingleUnitInStock, &p.NotCheckStockFulfillment,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func NewRecipePositionStore(db *sql.DB) *RecipePositionStore {
	cols := []string{"id", "recipe_id", "product_id", "amount", "qu_id", "note", "only_check_single_unit_in_stock", "not_check_stock_fulfillment"}
	args := func(p *model.RecipePosition) []any {
		return []any{p.ID, p.RecipeID, p.ProductID, p.Amount, p.QuID, p.Note, p.OnlyCheckSingleUnitInStock, p.NotCheckStockFulfillment}
	}
	return &RecipePositionStore{newTable(db, "recipe_positions", cols, scanRecipePosition, args)}
}

// ListByRecipe returns the ingredient lines of one recipe.
func (s *RecipePositionStore) ListByRecipe(ctx context.Context, recipeID int64) ([]model.RecipePosition, error) {
	return s.query(ctx, s.selectSQL+` WHERE recipe_id = ? ORDER BY id`, recipeID)
}

type RecipeFulfillmentStore struct {
	*Table[model.RecipeFulfillment]
}

func scanRecipeFulfillment(scanner scanner) (*model.RecipeFulfillment, error) {
	var f model.RecipeFulfillment
	err := scanner.Scan(
		&f.ID, &f.RecipeID, &f.NeedFulfilled, &f.NeedFulfilledWithShoppingList,
		&f.MissingProductsCount, &f.Costs, &f.Calories, &f.DueScore,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func NewRecipeFulfillmentStore(db *sql.DB) *RecipeFulfillmentStore {
	cols := []string{"id", "recipe_id", "need_fulfilled", "need_fulfilled_with_shopping_list", "missing_products_count", "costs", "calories", "due_score"}
	args := func(f *model.RecipeFulfillment) []any {
		return []any{f.ID, f.RecipeID, f.NeedFulfilled, f.NeedFulfilledWithShoppingList, f.MissingProductsCount, f.Costs, f.Calories, f.DueScore}
	}
	return &RecipeFulfillmentStore{newTable(db, "recipe_fulfillments", cols, scanRecipeFulfillment, args)}
}

type ShoppingListItemStore struct {
	*Table[model.ShoppingListItem]
}

func scanShoppingListItem(scanner scanner) (*model.ShoppingListItem, error) {
	var i model.ShoppingListItem
	if err := scanner.Scan(&i.ID, &i.ShoppingListID, &i.ProductID, &i.Note, &i.Amount, &i.QuID, &i.Done); err != nil {
		return nil, err
	}
	return &i, nil
}

func NewShoppingListItemStore(db *sql.DB) *ShoppingListItemStore {
	cols := []string{"id", "shopping_list_id", "product_id", "note", "amount", "qu_id", "done"}
	args := func(i *model.ShoppingListItem) []any {
		return []any{i.ID, i.ShoppingListID, i.ProductID, i.Note, i.Amount, i.QuID, i.Done}
	}
	return &ShoppingListItemStore{newTable(db, "shopping_list_items", cols, scanShoppingListItem, args)}
}

// CountUndone returns open items on one shopping list.
func (s *ShoppingListItemStore) CountUndone(ctx context.Context, listID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_list_items WHERE shopping_list_id = ? AND done = 0`, listID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
