package model

import (
	"encoding/json"
	"testing"
)

func TestProductDecodesGrocyStrings(t *testing.T) {
	payload := `{
		"id": "12",
		"name": "Milk",
		"location_id": "3",
		"qu_id_purchase": 2,
		"qu_id_stock": "2",
		"product_group_id": "",
		"min_stock_amount": "1.5",
		"active": "1",
		"parent_product_id": null
	}`

	var p Product
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != 12 {
		t.Errorf("id = %d, want 12", p.ID)
	}
	if !p.LocationID.Valid || p.LocationID.ID != 3 {
		t.Errorf("location_id = %+v, want 3", p.LocationID)
	}
	if p.ProductGroupID.Valid {
		t.Errorf("product_group_id should be unset, got %+v", p.ProductGroupID)
	}
	if p.ParentProductID.Valid {
		t.Errorf("parent_product_id should be unset, got %+v", p.ParentProductID)
	}
	if p.MinStockAmount != 1.5 {
		t.Errorf("min_stock_amount = %v, want 1.5", p.MinStockAmount)
	}
	if !p.Active {
		t.Error("expected active")
	}
}

func TestFlexBoolValues(t *testing.T) {
	tests := []struct {
		in   string
		want FlexBool
	}{
		{`"1"`, true},
		{`"0"`, false},
		{`1`, true},
		{`0`, false},
		{`true`, true},
		{`false`, false},
		{`null`, false},
		{`""`, false},
	}
	for _, tt := range tests {
		var b FlexBool
		if err := json.Unmarshal([]byte(tt.in), &b); err != nil {
			t.Errorf("unmarshal %s: %v", tt.in, err)
			continue
		}
		if b != tt.want {
			t.Errorf("unmarshal %s = %v, want %v", tt.in, b, tt.want)
		}
	}

	var b FlexBool
	if err := json.Unmarshal([]byte(`"maybe"`), &b); err == nil {
		t.Error("expected error for unrecognized bool")
	}
}

func TestRecipeEncodesForGrocy(t *testing.T) {
	r := Recipe{Name: "Soup", BaseServings: 4, NotCheckShoppingList: true}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["not_check_shoppinglist"] != float64(1) {
		t.Errorf("not_check_shoppinglist = %v, want 1", raw["not_check_shoppinglist"])
	}
	if raw["product_id"] != nil {
		t.Errorf("product_id = %v, want null", raw["product_id"])
	}
}

func TestActiveProductsAndLookup(t *testing.T) {
	products := []Product{
		{ID: 1, Name: "Milk", Active: true},
		{ID: 2, Name: "Old", Active: false},
		{ID: 3, Name: "Eggs", Active: true},
	}
	active := ActiveProducts(products)
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}
	if p := ProductByID(products, 3); p == nil || p.Name != "Eggs" {
		t.Errorf("ProductByID(3) = %v", p)
	}
	if p := ProductByID(products, 99); p != nil {
		t.Errorf("ProductByID(99) = %v, want nil", p)
	}
}
