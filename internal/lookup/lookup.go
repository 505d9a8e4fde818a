// Package lookup resolves scanned codes and typed text to products.
package lookup

import (
	"strings"

	"github.com/dukerupert/grocysync/internal/grocycode"
	"github.com/dukerupert/grocysync/internal/model"
)

// Step is one resolution strategy.
type Step int

const (
	StepGrocycode Step = iota
	StepBarcode
	StepName
)

func (s Step) String() string {
	switch s {
	case StepGrocycode:
		return "grocycode"
	case StepBarcode:
		return "barcode"
	case StepName:
		return "name"
	}
	return "unknown"
}

// Policy is the ordered list of steps a screen tries, plus what an
// unmatched input turns into.
type Policy struct {
	Steps     []Step
	Unmatched Kind
}

var (
	// ScanPolicy is used for camera or scanner input.
	ScanPolicy = Policy{Steps: []Step{StepGrocycode, StepBarcode}, Unmatched: KindChooseProduct}
	// InputPolicy is used for text typed into a product field.
	InputPolicy = Policy{Steps: []Step{StepGrocycode, StepName, StepBarcode}, Unmatched: KindCreateProduct}
)

// Kind tags the outcome of a resolution.
type Kind int

const (
	KindProduct Kind = iota
	KindWrongCodeType
	KindNotFound
	KindChooseProduct
	KindCreateProduct
)

func (k Kind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindWrongCodeType:
		return "wrong_code_type"
	case KindNotFound:
		return "not_found"
	case KindChooseProduct:
		return "choose_product"
	case KindCreateProduct:
		return "create_product"
	}
	return "unknown"
}

// Resolution is the result of Resolve. Input always carries the original
// text so the caller can hand it on unchanged.
type Resolution struct {
	Kind    Kind
	Input   string
	Step    Step
	Product *model.Product
	Code    *grocycode.Code
	Barcode *model.ProductBarcode
}

// Catalog is the cached data resolution works against.
type Catalog struct {
	Products []model.Product
	Barcodes []model.ProductBarcode
}

// Resolver applies a Policy to a Catalog.
type Resolver struct {
	catalog Catalog
	policy  Policy
	byName  map[string]int
	byCode  map[string]int
}

func NewResolver(catalog Catalog, policy Policy) *Resolver {
	r := &Resolver{
		catalog: catalog,
		policy:  policy,
		byName:  make(map[string]int, len(catalog.Products)),
		byCode:  make(map[string]int, len(catalog.Barcodes)),
	}
	for i, p := range catalog.Products {
		key := normalize(p.Name)
		if _, dup := r.byName[key]; !dup {
			r.byName[key] = i
		}
	}
	// A barcode listed twice resolves to its last row.
	for i, b := range catalog.Barcodes {
		r.byCode[b.Barcode] = i
	}
	return r
}

// Resolve runs the policy steps in order. The first step that reaches a
// decision wins.
func (r *Resolver) Resolve(input string) Resolution {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Resolution{Kind: KindNotFound, Input: input}
	}

	for _, step := range r.policy.Steps {
		var (
			res Resolution
			ok  bool
		)
		switch step {
		case StepGrocycode:
			res, ok = r.grocycode(trimmed)
		case StepBarcode:
			res, ok = r.barcode(trimmed)
		case StepName:
			res, ok = r.name(trimmed)
		}
		if ok {
			res.Input = input
			res.Step = step
			return res
		}
	}
	return Resolution{Kind: r.policy.Unmatched, Input: input}
}

func (r *Resolver) grocycode(s string) (Resolution, bool) {
	// Malformed grcy codes fall through to the remaining steps.
	code, err := grocycode.Parse(s)
	if err != nil {
		return Resolution{}, false
	}
	if !code.IsProduct() {
		return Resolution{Kind: KindWrongCodeType, Code: &code}, true
	}
	p := model.ProductByID(r.catalog.Products, code.ObjectID)
	if p == nil {
		return Resolution{Kind: KindNotFound, Code: &code}, true
	}
	return Resolution{Kind: KindProduct, Product: p, Code: &code}, true
}

func (r *Resolver) barcode(s string) (Resolution, bool) {
	i, ok := r.byCode[s]
	if !ok {
		return Resolution{}, false
	}
	b := &r.catalog.Barcodes[i]
	p := model.ProductByID(r.catalog.Products, int64(b.ProductID))
	if p == nil {
		return Resolution{}, false
	}
	return Resolution{Kind: KindProduct, Product: p, Barcode: b}, true
}

func (r *Resolver) name(s string) (Resolution, bool) {
	i, ok := r.byName[normalize(s)]
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Kind: KindProduct, Product: &r.catalog.Products[i]}, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
