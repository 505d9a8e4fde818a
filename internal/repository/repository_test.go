package repository

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/grocysync/internal/database"
	"github.com/dukerupert/grocysync/internal/lifecycle"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/store"
)

func setupStores(t *testing.T) (*store.Stores, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.New(db), db
}

func seedProducts(t *testing.T, s *store.Stores) {
	t.Helper()
	err := s.Products.UpsertAll(context.Background(), []model.Product{
		{ID: 1, Name: "Milk", Active: true},
		{ID: 2, Name: "Bread", Active: true},
		{ID: 3, Name: "Eggs", Active: true},
	})
	if err != nil {
		t.Fatalf("seed products: %v", err)
	}
}

func TestPendingPurchasesBundle(t *testing.T) {
	s, _ := setupStores(t)
	seedProducts(t, s)

	data, err := NewPendingPurchasesRepository(s).Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data.Products) != 3 {
		t.Errorf("products = %d, want 3", len(data.Products))
	}
	if data.PendingProducts == nil || len(data.PendingProducts) != 0 {
		t.Errorf("pending products = %v, want empty", data.PendingProducts)
	}
	if len(data.PendingProductBarcodes) != 0 || len(data.PendingPurchases) != 0 {
		t.Errorf("pending tables should be empty: %+v", data)
	}
}

func TestLoadDeliversOnce(t *testing.T) {
	s, _ := setupStores(t)
	seedProducts(t, s)

	scope := lifecycle.NewScope(context.Background())
	defer scope.Close()

	var calls atomic.Int32
	got := make(chan *ChooseProductData, 1)
	NewPendingPurchasesRepository(s).Load(scope, func(d *ChooseProductData, err error) {
		calls.Add(1)
		if err != nil {
			t.Errorf("Load: %v", err)
		}
		got <- d
	})

	select {
	case d := <-got:
		if len(d.Products) != 3 {
			t.Errorf("products = %d, want 3", len(d.Products))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not delivered")
	}
	scope.Wait()
	if calls.Load() != 1 {
		t.Errorf("callback ran %d times, want 1", calls.Load())
	}
}

func TestLoadFailureDeliversErrorOnly(t *testing.T) {
	s, db := setupStores(t)
	seedProducts(t, s)
	db.Close()

	scope := lifecycle.NewScope(context.Background())
	defer scope.Close()

	type result struct {
		data *RecipeEditData
		err  error
	}
	got := make(chan result, 1)
	NewRecipeEditRepository(s).Load(scope, func(d *RecipeEditData, err error) {
		got <- result{d, err}
	})

	select {
	case r := <-got:
		if r.err == nil {
			t.Error("expected error")
		}
		if r.data != nil {
			t.Errorf("expected no data with error, got %+v", r.data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not delivered")
	}
}

func TestLoadAfterCloseNeverDelivers(t *testing.T) {
	s, _ := setupStores(t)

	scope := lifecycle.NewScope(context.Background())
	scope.Close()

	var called atomic.Bool
	NewMasterDataRepository(s).Load(scope, func(*MasterData, error) { called.Store(true) })
	scope.Wait()

	if called.Load() {
		t.Error("callback delivered after teardown")
	}
}

func TestRecipesDataSkipsNonNormalRecipes(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	err := s.Recipes.UpsertAll(ctx, []model.Recipe{
		{ID: 1, Name: "Soup", Type: "normal"},
		{ID: 2, Name: "Monday", Type: "mealplan-day"},
	})
	if err != nil {
		t.Fatalf("seed recipes: %v", err)
	}

	data, err := NewRecipesRepository(s).Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data.Recipes) != 1 || data.Recipes[0].Name != "Soup" {
		t.Errorf("recipes = %+v", data.Recipes)
	}
}

func TestMasterDataSortedByName(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	s.Locations.UpsertAll(ctx, []model.Location{{ID: 1, Name: "Pantry"}, {ID: 2, Name: "Fridge"}})

	data, err := NewMasterDataRepository(s).Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data.Locations) != 2 || data.Locations[0].Name != "Fridge" {
		t.Errorf("locations = %+v", data.Locations)
	}
}
