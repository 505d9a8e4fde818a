package model

import "time"

// PendingProduct is a product created while offline that may not exist on
// the server yet.
type PendingProduct struct {
	ID         FlexInt  `json:"id"`
	Name       string   `json:"name"`
	IsOnServer FlexBool `json:"is_on_server"`
	ServerID   NullID   `json:"server_id"`
}

type PendingProductBarcode struct {
	ID               FlexInt `json:"id"`
	PendingProductID FlexInt `json:"pending_product_id"`
	Barcode          string  `json:"barcode"`
}

type PendingPurchase struct {
	ID               FlexInt   `json:"id"`
	PendingProductID FlexInt   `json:"pending_product_id"`
	Amount           FlexFloat `json:"amount"`
	Price            FlexFloat `json:"price"`
	BestBeforeDate   string    `json:"best_before_date"`
	StoreID          NullID    `json:"store_id"`
	PurchasedDate    string    `json:"purchased_date"`
}

// Watermark records the server freshness token a table was last synced at.
type Watermark struct {
	Entity       string    `json:"entity"`
	LastTime     string    `json:"last_time"`
	ForceRefresh bool      `json:"force_refresh"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
