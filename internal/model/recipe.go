package model

type Recipe struct {
	ID                   FlexInt   `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	BaseServings         FlexFloat `json:"base_servings"`
	DesiredServings      FlexFloat `json:"desired_servings"`
	NotCheckShoppingList FlexBool  `json:"not_check_shoppinglist"`
	ProductID            NullID    `json:"product_id"`
	Type                 string    `json:"type"`
}

// RecipePosition is one ingredient line of a recipe.
type RecipePosition struct {
	ID                         FlexInt   `json:"id"`
	RecipeID                   FlexInt   `json:"recipe_id"`
	ProductID                  FlexInt   `json:"product_id"`
	Amount                     FlexFloat `json:"amount"`
	QuID                       NullID    `json:"qu_id"`
	Note                       string    `json:"note"`
	OnlyCheckSingleUnitInStock FlexBool  `json:"only_check_single_unit_in_stock"`
	NotCheckStockFulfillment   FlexBool  `json:"not_check_stock_fulfillment"`
}

// RecipeFulfillment is the server-computed stock coverage of a recipe.
type RecipeFulfillment struct {
	ID                            FlexInt   `json:"id"`
	RecipeID                      FlexInt   `json:"recipe_id"`
	NeedFulfilled                 FlexBool  `json:"need_fulfilled"`
	NeedFulfilledWithShoppingList FlexBool  `json:"need_fulfilled_with_shopping_list"`
	MissingProductsCount          FlexInt   `json:"missing_products_count"`
	Costs                         FlexFloat `json:"costs"`
	Calories                      FlexFloat `json:"calories"`
	DueScore                      FlexInt   `json:"due_score"`
}

type ShoppingListItem struct {
	ID             FlexInt   `json:"id"`
	ShoppingListID FlexInt   `json:"shopping_list_id"`
	ProductID      NullID    `json:"product_id"`
	Note           string    `json:"note"`
	Amount         FlexFloat `json:"amount"`
	QuID           NullID    `json:"qu_id"`
	Done           FlexBool  `json:"done"`
}
