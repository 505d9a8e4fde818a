package lookup

import (
	"testing"

	"github.com/dukerupert/grocysync/internal/model"
)

func testCatalog() Catalog {
	return Catalog{
		Products: []model.Product{
			{ID: 5, Name: "Milk", Active: true},
			{ID: 7, Name: "Oat Milk", Active: true},
			{ID: 9, Name: "Bread", Active: true},
		},
		Barcodes: []model.ProductBarcode{
			{ID: 1, ProductID: 7, Barcode: "grcy:p:5"},
			{ID: 2, ProductID: 9, Barcode: "4006381333931"},
			{ID: 3, ProductID: 99, Barcode: "orphan"},
		},
	}
}

func TestGrocycodeBeatsBarcodeTable(t *testing.T) {
	r := NewResolver(testCatalog(), ScanPolicy)

	res := r.Resolve("grcy:p:5")
	if res.Kind != KindProduct {
		t.Fatalf("kind = %v, want product", res.Kind)
	}
	if res.Product.ID != 5 {
		t.Errorf("product = %d, want 5", res.Product.ID)
	}
	if res.Step != StepGrocycode {
		t.Errorf("step = %v, want grocycode", res.Step)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		input     string
		wantKind  Kind
		wantID    int64
		wantInput string
	}{
		{"barcode match", ScanPolicy, "4006381333931", KindProduct, 9, "4006381333931"},
		{"unknown barcode asks to choose", ScanPolicy, "1234", KindChooseProduct, 0, "1234"},
		{"battery code", ScanPolicy, "grcy:b:3", KindWrongCodeType, 0, "grcy:b:3"},
		{"product code not cached", ScanPolicy, "grcy:p:404", KindNotFound, 0, "grcy:p:404"},
		{"barcode pointing at missing product", ScanPolicy, "orphan", KindChooseProduct, 0, "orphan"},
		{"name ignores case", InputPolicy, "  bread ", KindProduct, 9, "  bread "},
		{"unknown text keeps input", InputPolicy, "Sourdough starter", KindCreateProduct, 0, "Sourdough starter"},
		{"name policy still reads codes", InputPolicy, "grcy:p:7", KindProduct, 7, "grcy:p:7"},
		{"blank", InputPolicy, "   ", KindNotFound, 0, "   "},
		{"malformed code falls through", ScanPolicy, "grcy:p:abc", KindChooseProduct, 0, "grcy:p:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewResolver(testCatalog(), tt.policy).Resolve(tt.input)
			if res.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", res.Kind, tt.wantKind)
			}
			if res.Input != tt.wantInput {
				t.Errorf("input = %q, want %q", res.Input, tt.wantInput)
			}
			if tt.wantID != 0 {
				if res.Product == nil || int64(res.Product.ID) != tt.wantID {
					t.Errorf("product = %+v, want id %d", res.Product, tt.wantID)
				}
			}
		})
	}
}

func TestPolicyOrderMatters(t *testing.T) {
	catalog := Catalog{
		Products: []model.Product{{ID: 1, Name: "1234"}, {ID: 2, Name: "Rice"}},
		Barcodes: []model.ProductBarcode{{ID: 1, ProductID: 2, Barcode: "1234"}},
	}

	byName := NewResolver(catalog, Policy{Steps: []Step{StepName, StepBarcode}}).Resolve("1234")
	if byName.Product == nil || byName.Product.ID != 1 {
		t.Errorf("name-first resolved %+v", byName.Product)
	}
	byCode := NewResolver(catalog, Policy{Steps: []Step{StepBarcode, StepName}}).Resolve("1234")
	if byCode.Product == nil || byCode.Product.ID != 2 {
		t.Errorf("barcode-first resolved %+v", byCode.Product)
	}
}

func TestDuplicateBarcodeLastRowWins(t *testing.T) {
	catalog := Catalog{
		Products: []model.Product{{ID: 1, Name: "Milk"}, {ID: 2, Name: "Oat Milk"}},
		Barcodes: []model.ProductBarcode{
			{ID: 1, ProductID: 1, Barcode: "4001"},
			{ID: 2, ProductID: 2, Barcode: "4001"},
		},
	}

	res := NewResolver(catalog, ScanPolicy).Resolve("4001")
	if res.Product == nil || res.Product.ID != 2 {
		t.Fatalf("resolved %+v, want product 2", res.Product)
	}
	if res.Barcode == nil || res.Barcode.ID != 2 {
		t.Errorf("barcode row = %+v, want id 2", res.Barcode)
	}
}
