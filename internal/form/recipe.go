package form

import (
	"strconv"
	"strings"
	"sync"

	"github.com/dukerupert/grocysync/internal/model"
)

const (
	FieldName         Field = "name"
	FieldBaseServings Field = "base_servings"
	FieldProduct      Field = "product"
)

// RecipeForm is the draft of one recipe create or edit.
type RecipeForm struct {
	mu sync.Mutex

	name                 string
	description          string
	baseServings         string
	notCheckShoppingList bool
	productText          string
	productDetails       *model.ProductDetails
	barcode              string

	products         []model.Product
	filledWithRecipe bool

	state     State
	submitted bool
	errs      *ValidationError
}

// NewRecipeForm returns an empty form.
func NewRecipeForm() *RecipeForm {
	return &RecipeForm{}
}

// SetProducts replaces the reference list the product field is checked
// against. Inactive products are ignored.
func (f *RecipeForm) SetProducts(products []model.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = model.ActiveProducts(products)
	if f.state != StateEmpty {
		f.revalidate()
	}
}

func (f *RecipeForm) SetName(v string) {
	f.mutate(func() { f.name = v })
}

func (f *RecipeForm) SetDescription(v string) {
	f.mutate(func() { f.description = v })
}

func (f *RecipeForm) SetBaseServings(v string) {
	f.mutate(func() { f.baseServings = v })
}

func (f *RecipeForm) SetNotCheckShoppingList(v bool) {
	f.mutate(func() { f.notCheckShoppingList = v })
}

// SetProductText records typed product text. A resolved product is kept
// only while the text still names it.
func (f *RecipeForm) SetProductText(v string) {
	f.mutate(func() {
		f.productText = v
		if f.productDetails != nil && !sameName(f.productDetails.Product.Name, v) {
			f.productDetails = nil
		}
	})
}

// SetProductDetails attaches a resolved product and copies its name into
// the product text.
func (f *RecipeForm) SetProductDetails(d *model.ProductDetails) {
	f.mutate(func() {
		f.productDetails = d
		if d != nil {
			f.productText = d.Product.Name
		}
	})
}

// SetBarcode remembers a code scanned while a product is already chosen.
func (f *RecipeForm) SetBarcode(v string) {
	f.mutate(func() { f.barcode = v })
}

// ClearProduct drops the produced product and any scanned code.
func (f *RecipeForm) ClearProduct() {
	f.mutate(func() {
		f.productText = ""
		f.productDetails = nil
		f.barcode = ""
	})
}

// FillWithRecipe copies r into the form once. Later calls are ignored so
// user edits survive a reload.
func (f *RecipeForm) FillWithRecipe(r *model.Recipe) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filledWithRecipe || r == nil {
		return false
	}
	f.name = r.Name
	f.description = r.Description
	f.baseServings = formatNumber(float64(r.BaseServings))
	f.notCheckShoppingList = bool(r.NotCheckShoppingList)
	if r.ProductID.Valid {
		if p := model.ProductByID(f.products, r.ProductID.ID); p != nil {
			f.productText = p.Name
			f.productDetails = &model.ProductDetails{Product: *p}
		}
	}
	f.filledWithRecipe = true
	f.submitted = false
	f.revalidate()
	return true
}

// FilledWithRecipe reports whether FillWithRecipe has run.
func (f *RecipeForm) FilledWithRecipe() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filledWithRecipe
}

func (f *RecipeForm) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Errors returns the current field errors, or nil when the form is valid.
func (f *RecipeForm) Errors() *ValidationError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs
}

// ProductDetails returns the resolved product, if any.
func (f *RecipeForm) ProductDetails() *model.ProductDetails {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productDetails
}

func (f *RecipeForm) ProductText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productText
}

func (f *RecipeForm) Barcode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.barcode
}

// Validate re-runs every validator. It returns a *ValidationError when a
// field fails.
func (f *RecipeForm) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revalidate()
	if f.errs != nil {
		return f.errs
	}
	return nil
}

// Submit checks the form and returns the payload to persist. It succeeds
// once per valid state; call Failed to allow a retry after a remote error.
// base is the recipe being edited, or nil on create.
func (f *RecipeForm) Submit(base *model.Recipe) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.revalidate()
	if f.state != StateValid {
		return nil, f.errs
	}
	if f.submitted {
		return nil, ErrAlreadySubmitted
	}
	f.submitted = true
	return f.payload(base), nil
}

// Failed re-arms Submit after the remote write was rejected.
func (f *RecipeForm) Failed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = false
}

// Reset clears every field and returns the form to StateEmpty. The product
// reference list is kept.
func (f *RecipeForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = ""
	f.description = ""
	f.baseServings = ""
	f.notCheckShoppingList = false
	f.productText = ""
	f.productDetails = nil
	f.barcode = ""
	f.filledWithRecipe = false
	f.state = StateEmpty
	f.submitted = false
	f.errs = nil
}

func (f *RecipeForm) mutate(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
	f.submitted = false
	f.state = StateEditing
	f.revalidate()
}

func (f *RecipeForm) revalidate() {
	errs := map[Field]string{}

	if strings.TrimSpace(f.name) == "" {
		errs[FieldName] = "Name is required"
	}

	servings := strings.TrimSpace(f.baseServings)
	if servings == "" {
		errs[FieldBaseServings] = "Servings are required"
	} else if n, err := strconv.ParseFloat(servings, 64); err != nil {
		errs[FieldBaseServings] = "Servings must be a number"
	} else if n < 1 {
		errs[FieldBaseServings] = "Servings must be at least 1"
	}

	if text := strings.TrimSpace(f.productText); text != "" && f.productID() == 0 {
		errs[FieldProduct] = "Unknown product"
	}

	if len(errs) == 0 {
		f.errs = nil
		f.state = StateValid
		return
	}
	f.errs = &ValidationError{Fields: errs}
	f.state = StateInvalid
}

// productID resolves the produced product against the reference list.
func (f *RecipeForm) productID() int64 {
	if f.productDetails != nil {
		return int64(f.productDetails.Product.ID)
	}
	for _, p := range f.products {
		if sameName(p.Name, f.productText) {
			return int64(p.ID)
		}
	}
	return 0
}

func (f *RecipeForm) payload(base *model.Recipe) map[string]any {
	servings, _ := strconv.ParseFloat(strings.TrimSpace(f.baseServings), 64)

	p := map[string]any{
		"name":                   strings.TrimSpace(f.name),
		"description":            f.description,
		"base_servings":          servings,
		"not_check_shoppinglist": model.FlexBool(f.notCheckShoppingList),
		"product_id":             nil,
	}
	if id := f.productID(); id != 0 {
		p["product_id"] = id
	}
	if base != nil {
		p["desired_servings"] = float64(base.DesiredServings)
		if base.Type != "" {
			p["type"] = base.Type
		}
	} else {
		p["desired_servings"] = servings
	}
	return p
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
