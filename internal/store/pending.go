package store

import (
	"context"
	"database/sql"

	"github.com/dukerupert/grocysync/internal/model"
)

// Pending tables hold offline-created data. They are never refreshed from
// the server, only written locally.

type PendingProductStore struct {
	*Table[model.PendingProduct]
}

func scanPendingProduct(scanner scanner) (*model.PendingProduct, error) {
	var p model.PendingProduct
	if err := scanner.Scan(&p.ID, &p.Name, &p.IsOnServer, &p.ServerID); err != nil {
		return nil, err
	}
	return &p, nil
}

func NewPendingProductStore(db *sql.DB) *PendingProductStore {
	cols := []string{"id", "name", "is_on_server", "server_id"}
	args := func(p *model.PendingProduct) []any {
		return []any{p.ID, p.Name, p.IsOnServer, p.ServerID}
	}
	return &PendingProductStore{newTable(db, "pending_products", cols, scanPendingProduct, args)}
}

// NextID returns an id one above the current maximum. Pending rows are
// created locally, so the client assigns ids.
func (s *PendingProductStore) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, s.db, s.name)
}

type PendingProductBarcodeStore struct {
	*Table[model.PendingProductBarcode]
}

func scanPendingProductBarcode(scanner scanner) (*model.PendingProductBarcode, error) {
	var b model.PendingProductBarcode
	if err := scanner.Scan(&b.ID, &b.PendingProductID, &b.Barcode); err != nil {
		return nil, err
	}
	return &b, nil
}

func NewPendingProductBarcodeStore(db *sql.DB) *PendingProductBarcodeStore {
	cols := []string{"id", "pending_product_id", "barcode"}
	args := func(b *model.PendingProductBarcode) []any {
		return []any{b.ID, b.PendingProductID, b.Barcode}
	}
	return &PendingProductBarcodeStore{newTable(db, "pending_product_barcodes", cols, scanPendingProductBarcode, args)}
}

// FindByBarcode returns the exact barcode match, or nil.
func (s *PendingProductBarcodeStore) FindByBarcode(ctx context.Context, barcode string) (*model.PendingProductBarcode, error) {
	return s.queryRow(ctx, s.selectSQL+` WHERE barcode = ? ORDER BY id LIMIT 1`, barcode)
}

func (s *PendingProductBarcodeStore) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, s.db, s.name)
}

type PendingPurchaseStore struct {
	*Table[model.PendingPurchase]
}

func scanPendingPurchase(scanner scanner) (*model.PendingPurchase, error) {
	var p model.PendingPurchase
	err := scanner.Scan(&p.ID, &p.PendingProductID, &p.Amount, &p.Price, &p.BestBeforeDate, &p.StoreID, &p.PurchasedDate)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func NewPendingPurchaseStore(db *sql.DB) *PendingPurchaseStore {
	cols := []string{"id", "pending_product_id", "amount", "price", "best_before_date", "store_id", "purchased_date"}
	args := func(p *model.PendingPurchase) []any {
		return []any{p.ID, p.PendingProductID, p.Amount, p.Price, p.BestBeforeDate, p.StoreID, p.PurchasedDate}
	}
	return &PendingPurchaseStore{newTable(db, "pending_purchases", cols, scanPendingPurchase, args)}
}

// ListByPendingProduct returns purchases recorded against one pending product.
func (s *PendingPurchaseStore) ListByPendingProduct(ctx context.Context, pendingProductID int64) ([]model.PendingPurchase, error) {
	return s.query(ctx, s.selectSQL+` WHERE pending_product_id = ? ORDER BY id`, pendingProductID)
}

func (s *PendingPurchaseStore) NextID(ctx context.Context) (int64, error) {
	return nextID(ctx, s.db, s.name)
}

func nextID(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var maxID sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(id) FROM `+table).Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID.Int64 + 1, nil
}
