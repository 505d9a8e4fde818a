package grocy

// Entity names a Grocy object collection (the {entity} in /objects/{entity}).
type Entity string

const (
	EntityProducts          Entity = "products"
	EntityProductBarcodes   Entity = "product_barcodes"
	EntityLocations         Entity = "locations"
	EntityQuantityUnits     Entity = "quantity_units"
	EntityRecipes           Entity = "recipes"
	EntityRecipePositions   Entity = "recipes_pos"
	EntityShoppingListItems Entity = "shopping_list"

	// Fulfillments come from /recipes/fulfillment, not /objects.
	EntityRecipeFulfillments Entity = "recipe_fulfillments"

	// Local-only tables have no server endpoint.
	EntityPendingProducts        Entity = "pending_products"
	EntityPendingProductBarcodes Entity = "pending_product_barcodes"
	EntityPendingPurchases       Entity = "pending_purchases"
)

// LocalOnly reports whether the entity exists only in the on-device cache.
func (e Entity) LocalOnly() bool {
	switch e {
	case EntityPendingProducts, EntityPendingProductBarcodes, EntityPendingPurchases:
		return true
	}
	return false
}

// ReadOnly reports whether the server computes the collection, so it can
// be downloaded but not written.
func (e Entity) ReadOnly() bool {
	return e == EntityRecipeFulfillments
}

func (e Entity) String() string {
	return string(e)
}

// Mirrored lists every entity the client keeps in sync with the server.
var Mirrored = []Entity{
	EntityProducts,
	EntityProductBarcodes,
	EntityLocations,
	EntityQuantityUnits,
	EntityRecipes,
	EntityRecipePositions,
	EntityRecipeFulfillments,
	EntityShoppingListItems,
}

// ParseEntity maps a collection name onto a known Entity.
func ParseEntity(name string) (Entity, bool) {
	e := Entity(name)
	for _, m := range Mirrored {
		if m == e {
			return e, true
		}
	}
	if e.LocalOnly() {
		return e, true
	}
	return "", false
}
