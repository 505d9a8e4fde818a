package model

type Product struct {
	ID              FlexInt   `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	LocationID      NullID    `json:"location_id"`
	QuIDPurchase    NullID    `json:"qu_id_purchase"`
	QuIDStock       NullID    `json:"qu_id_stock"`
	ProductGroupID  NullID    `json:"product_group_id"`
	MinStockAmount  FlexFloat `json:"min_stock_amount"`
	Active          FlexBool  `json:"active"`
	ParentProductID NullID    `json:"parent_product_id"`
}

type ProductBarcode struct {
	ID        FlexInt   `json:"id"`
	ProductID FlexInt   `json:"product_id"`
	Barcode   string    `json:"barcode"`
	QuID      NullID    `json:"qu_id"`
	Amount    FlexFloat `json:"amount"`
	Note      string    `json:"note"`
}

// ProductDetails is the stock summary returned by /stock/products/{id}.
// It is never cached.
type ProductDetails struct {
	Product               Product      `json:"product"`
	StockAmount           FlexFloat    `json:"stock_amount"`
	StockAmountAggregated FlexFloat    `json:"stock_amount_aggregated"`
	QuantityUnitStock     QuantityUnit `json:"quantity_unit_stock"`
	Location              Location     `json:"location"`
}

// ActiveProducts filters out products flagged inactive on the server.
func ActiveProducts(products []Product) []Product {
	active := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// ProductByID returns the product with the given id, or nil.
func ProductByID(products []Product, id int64) *Product {
	for i := range products {
		if int64(products[i].ID) == id {
			return &products[i]
		}
	}
	return nil
}
