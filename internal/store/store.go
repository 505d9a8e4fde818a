package store

import "database/sql"

// Stores bundles every table of the local cache around one handle.
type Stores struct {
	Products               *ProductStore
	ProductBarcodes        *ProductBarcodeStore
	Locations              *LocationStore
	QuantityUnits          *QuantityUnitStore
	Recipes                *RecipeStore
	RecipePositions        *RecipePositionStore
	RecipeFulfillments     *RecipeFulfillmentStore
	ShoppingListItems      *ShoppingListItemStore
	PendingProducts        *PendingProductStore
	PendingProductBarcodes *PendingProductBarcodeStore
	PendingPurchases       *PendingPurchaseStore
	Watermarks             *WatermarkStore
	Settings               *SettingsStore
}

func New(db *sql.DB) *Stores {
	return &Stores{
		Products:               NewProductStore(db),
		ProductBarcodes:        NewProductBarcodeStore(db),
		Locations:              NewLocationStore(db),
		QuantityUnits:          NewQuantityUnitStore(db),
		Recipes:                NewRecipeStore(db),
		RecipePositions:        NewRecipePositionStore(db),
		RecipeFulfillments:     NewRecipeFulfillmentStore(db),
		ShoppingListItems:      NewShoppingListItemStore(db),
		PendingProducts:        NewPendingProductStore(db),
		PendingProductBarcodes: NewPendingProductBarcodeStore(db),
		PendingPurchases:       NewPendingPurchaseStore(db),
		Watermarks:             NewWatermarkStore(db),
		Settings:               NewSettingsStore(db),
	}
}
