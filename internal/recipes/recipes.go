// Package recipes builds the recipe list from cached recipes and their
// stock fulfillment.
package recipes

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dukerupert/grocysync/internal/model"
)

// Status is the stock coverage bucket a recipe falls into.
type Status int

const (
	StatusAll Status = iota
	StatusEnoughInStock
	StatusNotEnoughButOnShoppingList
	StatusNotEnough
)

func (s Status) String() string {
	switch s {
	case StatusEnoughInStock:
		return "enough_in_stock"
	case StatusNotEnoughButOnShoppingList:
		return "on_shopping_list"
	case StatusNotEnough:
		return "not_enough"
	}
	return "all"
}

// ParseStatus accepts the String form; anything else is StatusAll.
func ParseStatus(s string) Status {
	switch s {
	case "enough_in_stock":
		return StatusEnoughInStock
	case "on_shopping_list":
		return StatusNotEnoughButOnShoppingList
	case "not_enough":
		return StatusNotEnough
	}
	return StatusAll
}

type SortMode string

const (
	SortName     SortMode = "name"
	SortDueScore SortMode = "due_score"
	SortCalories SortMode = "calories"
)

// ParseSortMode falls back to SortName for unknown input.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(s); m {
	case SortName, SortDueScore, SortCalories:
		return m
	}
	return SortName
}

// Item is one row of the recipe list. Fulfillment is nil when the server
// has not reported coverage for the recipe yet.
type Item struct {
	Recipe      model.Recipe
	Fulfillment *model.RecipeFulfillment
}

// Status reports the coverage bucket. Recipes without fulfillment data
// count as not enough.
func (i Item) Status() Status {
	f := i.Fulfillment
	switch {
	case f == nil:
		return StatusNotEnough
	case bool(f.NeedFulfilled):
		return StatusEnoughInStock
	case bool(f.NeedFulfilledWithShoppingList):
		return StatusNotEnoughButOnShoppingList
	}
	return StatusNotEnough
}

// Query selects and orders list items.
type Query struct {
	Search    string
	Status    Status
	Sort      SortMode
	Ascending bool
}

// Items joins recipes with their fulfillment rows.
func Items(recipes []model.Recipe, fulfillments []model.RecipeFulfillment) []Item {
	byRecipe := make(map[int64]*model.RecipeFulfillment, len(fulfillments))
	for i := range fulfillments {
		byRecipe[int64(fulfillments[i].RecipeID)] = &fulfillments[i]
	}
	items := make([]Item, 0, len(recipes))
	for _, r := range recipes {
		items = append(items, Item{Recipe: r, Fulfillment: byRecipe[int64(r.ID)]})
	}
	return items
}

// Apply filters by search text and status, then sorts. The input slice is
// left untouched.
func Apply(items []Item, q Query) []Item {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if search != "" && !strings.Contains(strings.ToLower(it.Recipe.Name), search) {
			continue
		}
		if q.Status != StatusAll && it.Status() != q.Status {
			continue
		}
		out = append(out, it)
	}

	compare := comparator(ParseSortMode(string(q.Sort)))
	slices.SortStableFunc(out, func(a, b Item) int {
		c := compare(a, b)
		if c == 0 {
			c = cmp.Compare(strings.ToLower(a.Recipe.Name), strings.ToLower(b.Recipe.Name))
		}
		if !q.Ascending {
			c = -c
		}
		return c
	})
	return out
}

func comparator(mode SortMode) func(a, b Item) int {
	switch mode {
	case SortDueScore:
		return func(a, b Item) int { return cmp.Compare(dueScore(a), dueScore(b)) }
	case SortCalories:
		return func(a, b Item) int { return cmp.Compare(calories(a), calories(b)) }
	}
	return func(a, b Item) int {
		return cmp.Compare(strings.ToLower(a.Recipe.Name), strings.ToLower(b.Recipe.Name))
	}
}

func dueScore(i Item) int64 {
	if i.Fulfillment == nil {
		return 0
	}
	return int64(i.Fulfillment.DueScore)
}

func calories(i Item) float64 {
	if i.Fulfillment == nil {
		return 0
	}
	return float64(i.Fulfillment.Calories)
}

// MissingProductIDs lists products of a recipe's positions that are not on
// hand, ordered by product id. The caller passes it to the shopping list
// call minus any ids the user chose to skip.
func MissingProductIDs(recipeID int64, positions []model.RecipePosition, inStock func(productID int64) bool) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, p := range positions {
		pid := int64(p.ProductID)
		if int64(p.RecipeID) != recipeID || bool(p.NotCheckStockFulfillment) || seen[pid] {
			continue
		}
		seen[pid] = true
		if inStock != nil && inStock(pid) {
			continue
		}
		ids = append(ids, pid)
	}
	slices.Sort(ids)
	return ids
}
