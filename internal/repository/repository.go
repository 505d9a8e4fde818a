package repository

import (
	"context"
	"fmt"

	"github.com/dukerupert/grocysync/internal/lifecycle"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/store"
)

// ChooseProductData backs the pending-purchases product chooser.
type ChooseProductData struct {
	Products               []model.Product
	PendingProducts        []model.PendingProduct
	PendingProductBarcodes []model.PendingProductBarcode
	PendingPurchases       []model.PendingPurchase
}

type PendingPurchasesRepository struct {
	stores *store.Stores
}

func NewPendingPurchasesRepository(stores *store.Stores) *PendingPurchasesRepository {
	return &PendingPurchasesRepository{stores: stores}
}

func (r *PendingPurchasesRepository) Read(ctx context.Context) (*ChooseProductData, error) {
	var d ChooseProductData
	err := join(ctx,
		into(&d.Products, r.stores.Products.GetAll),
		into(&d.PendingProducts, r.stores.PendingProducts.GetAll),
		into(&d.PendingProductBarcodes, r.stores.PendingProductBarcodes.GetAll),
		into(&d.PendingPurchases, r.stores.PendingPurchases.GetAll),
	)
	if err != nil {
		return nil, fmt.Errorf("read choose product data: %w", err)
	}
	return &d, nil
}

func (r *PendingPurchasesRepository) Load(scope *lifecycle.Scope, cb func(*ChooseProductData, error)) {
	load(scope, r.Read, cb)
}

// RecipeEditData backs the recipe edit form.
type RecipeEditData struct {
	Products        []model.Product
	ProductBarcodes []model.ProductBarcode
}

type RecipeEditRepository struct {
	stores *store.Stores
}

func NewRecipeEditRepository(stores *store.Stores) *RecipeEditRepository {
	return &RecipeEditRepository{stores: stores}
}

func (r *RecipeEditRepository) Read(ctx context.Context) (*RecipeEditData, error) {
	var d RecipeEditData
	err := join(ctx,
		into(&d.Products, r.stores.Products.GetAll),
		into(&d.ProductBarcodes, r.stores.ProductBarcodes.GetAll),
	)
	if err != nil {
		return nil, fmt.Errorf("read recipe edit data: %w", err)
	}
	return &d, nil
}

func (r *RecipeEditRepository) Load(scope *lifecycle.Scope, cb func(*RecipeEditData, error)) {
	load(scope, r.Read, cb)
}

// RecipesData backs the recipe list.
type RecipesData struct {
	Recipes       []model.Recipe
	Fulfillments  []model.RecipeFulfillment
	Positions     []model.RecipePosition
	Products      []model.Product
	QuantityUnits []model.QuantityUnit
}

type RecipesRepository struct {
	stores *store.Stores
}

func NewRecipesRepository(stores *store.Stores) *RecipesRepository {
	return &RecipesRepository{stores: stores}
}

func (r *RecipesRepository) Read(ctx context.Context) (*RecipesData, error) {
	var d RecipesData
	err := join(ctx,
		into(&d.Recipes, r.stores.Recipes.ListNormal),
		into(&d.Fulfillments, r.stores.RecipeFulfillments.GetAll),
		into(&d.Positions, r.stores.RecipePositions.GetAll),
		into(&d.Products, r.stores.Products.GetAll),
		into(&d.QuantityUnits, r.stores.QuantityUnits.GetAll),
	)
	if err != nil {
		return nil, fmt.Errorf("read recipes data: %w", err)
	}
	return &d, nil
}

func (r *RecipesRepository) Load(scope *lifecycle.Scope, cb func(*RecipesData, error)) {
	load(scope, r.Read, cb)
}

// MasterData backs location and quantity unit pickers.
type MasterData struct {
	Locations     []model.Location
	QuantityUnits []model.QuantityUnit
	Products      []model.Product
}

type MasterDataRepository struct {
	stores *store.Stores
}

func NewMasterDataRepository(stores *store.Stores) *MasterDataRepository {
	return &MasterDataRepository{stores: stores}
}

func (r *MasterDataRepository) Read(ctx context.Context) (*MasterData, error) {
	var d MasterData
	err := join(ctx,
		into(&d.Locations, r.stores.Locations.ListByName),
		into(&d.QuantityUnits, r.stores.QuantityUnits.ListByName),
		into(&d.Products, r.stores.Products.GetAll),
	)
	if err != nil {
		return nil, fmt.Errorf("read master data: %w", err)
	}
	return &d, nil
}

func (r *MasterDataRepository) Load(scope *lifecycle.Scope, cb func(*MasterData, error)) {
	load(scope, r.Read, cb)
}
