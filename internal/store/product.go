package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dukerupert/grocysync/internal/model"
)

type ProductStore struct {
	*Table[model.Product]
}

func scanProduct(scanner scanner) (*model.Product, error) {
	var p model.Product
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Description, &p.LocationID, &p.QuIDPurchase, &p.QuIDStock,
		&p.ProductGroupID, &p.MinStockAmount, &p.Active, &p.ParentProductID,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func productArgs(p *model.Product) []any {
	return []any{
		p.ID, p.Name, p.Description, p.LocationID, p.QuIDPurchase, p.QuIDStock,
		p.ProductGroupID, p.MinStockAmount, p.Active, p.ParentProductID,
	}
}

var productCols = []string{
	"id", "name", "description", "location_id", "qu_id_purchase", "qu_id_stock",
	"product_group_id", "min_stock_amount", "active", "parent_product_id",
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{newTable(db, "products", productCols, scanProduct, productArgs)}
}

// FindByName matches the product name case-insensitively, ignoring
// surrounding whitespace.
func (s *ProductStore) FindByName(ctx context.Context, name string) (*model.Product, error) {
	return s.queryRow(ctx, s.selectSQL+` WHERE lower(name) = ? ORDER BY id LIMIT 1`, strings.ToLower(strings.TrimSpace(name)))
}

// ListActive returns products not flagged inactive, ordered by name.
func (s *ProductStore) ListActive(ctx context.Context) ([]model.Product, error) {
	return s.query(ctx, s.selectSQL+` WHERE active = 1 ORDER BY name COLLATE NOCASE ASC`)
}

type ProductBarcodeStore struct {
	*Table[model.ProductBarcode]
}

func scanProductBarcode(scanner scanner) (*model.ProductBarcode, error) {
	var b model.ProductBarcode
	if err := scanner.Scan(&b.ID, &b.ProductID, &b.Barcode, &b.QuID, &b.Amount, &b.Note); err != nil {
		return nil, err
	}
	return &b, nil
}

func productBarcodeArgs(b *model.ProductBarcode) []any {
	return []any{b.ID, b.ProductID, b.Barcode, b.QuID, b.Amount, b.Note}
}

func NewProductBarcodeStore(db *sql.DB) *ProductBarcodeStore {
	cols := []string{"id", "product_id", "barcode", "qu_id", "amount", "note"}
	return &ProductBarcodeStore{newTable(db, "product_barcodes", cols, scanProductBarcode, productBarcodeArgs)}
}

// FindByBarcode returns the exact barcode match, or nil.
func (s *ProductBarcodeStore) FindByBarcode(ctx context.Context, barcode string) (*model.ProductBarcode, error) {
	return s.queryRow(ctx, s.selectSQL+` WHERE barcode = ? ORDER BY id LIMIT 1`, barcode)
}

// ListByProduct returns all barcodes attached to a product.
func (s *ProductBarcodeStore) ListByProduct(ctx context.Context, productID int64) ([]model.ProductBarcode, error) {
	return s.query(ctx, s.selectSQL+` WHERE product_id = ? ORDER BY id`, productID)
}
