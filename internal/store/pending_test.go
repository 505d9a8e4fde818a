package store

import (
	"context"
	"testing"

	"github.com/dukerupert/grocysync/internal/model"
)

func TestPendingNextID(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()

	id, err := s.PendingProducts.NextID(ctx)
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}

	s.PendingProducts.UpsertAll(ctx, []model.PendingProduct{{ID: 4, Name: "Tofu"}})
	id, _ = s.PendingProducts.NextID(ctx)
	if id != 5 {
		t.Errorf("next id = %d, want 5", id)
	}
}

func TestPendingPurchasesByProduct(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()

	s.PendingPurchases.UpsertAll(ctx, []model.PendingPurchase{
		{ID: 1, PendingProductID: 1, Amount: 2},
		{ID: 2, PendingProductID: 2, Amount: 1, StoreID: model.SomeID(3)},
		{ID: 3, PendingProductID: 1, Amount: 5, Price: 1.99},
	})

	got, err := s.PendingPurchases.ListByPendingProduct(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("purchases = %d, want 2", len(got))
	}
	if got[1].Price != 1.99 {
		t.Errorf("price = %v, want 1.99", got[1].Price)
	}

	p, _ := s.PendingPurchases.FindByID(ctx, 2)
	if p == nil || !p.StoreID.Valid || p.StoreID.ID != 3 {
		t.Errorf("store id = %+v", p)
	}
}

func TestPendingBarcodeLookup(t *testing.T) {
	s := setupTestStores(t)
	ctx := context.Background()

	s.PendingProductBarcodes.UpsertAll(ctx, []model.PendingProductBarcode{{ID: 1, PendingProductID: 9, Barcode: "999"}})

	b, err := s.PendingProductBarcodes.FindByBarcode(ctx, "999")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if b == nil || b.PendingProductID != 9 {
		t.Errorf("barcode = %+v", b)
	}
}
