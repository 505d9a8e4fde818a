package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dukerupert/grocysync/internal/form"
	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/lookup"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/repository"
)

const (
	msgNoConnection       = "No connection to the server"
	msgNotFound           = "Not found"
	msgWrongCodeType      = "This grocycode is not for a product"
	msgNoProductDetails   = "Could not load product details"
	msgMissingInformation = "Some information is missing"
	msgOffline            = "Not available offline"
)

var recipeEditEntities = []grocy.Entity{grocy.EntityProducts, grocy.EntityProductBarcodes}

// RecipeEdit creates a new recipe or edits an existing one.
type RecipeEdit struct {
	base
	repo   *repository.RecipeEditRepository
	form   *form.RecipeForm
	recipe *model.Recipe

	mu      sync.Mutex
	catalog lookup.Catalog
	offline bool
}

// NewRecipeEdit builds the screen. recipe is nil when creating.
func NewRecipeEdit(d Deps, repo *repository.RecipeEditRepository, recipe *model.Recipe) *RecipeEdit {
	return &RecipeEdit{
		base:   newBase(d, "recipe_edit"),
		repo:   repo,
		form:   form.NewRecipeForm(),
		recipe: recipe,
	}
}

func (s *RecipeEdit) Form() *form.RecipeForm {
	return s.form
}

func (s *RecipeEdit) IsEdit() bool {
	return s.recipe != nil
}

func (s *RecipeEdit) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// Load reads products and barcodes from the cache, fills the form from the
// edited recipe once, and optionally refreshes from the server afterwards.
func (s *RecipeEdit) Load(download bool) {
	s.repo.Load(s.scope, func(d *repository.RecipeEditData, err error) {
		if err != nil {
			s.logger.Error("load recipe edit data", "error", err)
			s.events.Publish(s.message(err.Error()))
			return
		}
		s.mu.Lock()
		s.catalog = lookup.Catalog{Products: d.Products, Barcodes: d.ProductBarcodes}
		s.mu.Unlock()

		s.form.SetProducts(d.Products)
		s.form.FillWithRecipe(s.recipe)
		s.events.Publish(Event{Kind: EventDataChanged, Payload: d})
		if download {
			s.Download()
		}
	})
}

// Download refreshes stale tables and reloads. It is skipped while offline.
func (s *RecipeEdit) Download() {
	if s.Offline() {
		return
	}
	s.scope.Go(func(ctx context.Context) {
		s.afterDownload(s.gw.UpdateData(ctx, false, recipeEditEntities...))
	})
}

// DownloadForceUpdate discards the product watermarks and downloads again.
func (s *RecipeEdit) DownloadForceUpdate() {
	s.scope.Go(func(ctx context.Context) {
		s.afterDownload(s.gw.ForceUpdate(ctx, recipeEditEntities...))
	})
}

func (s *RecipeEdit) afterDownload(err error) {
	if err != nil {
		s.logger.Warn("download failed", "error", err)
		s.post(func() {
			s.events.Publish(s.message(msgNoConnection))
			s.setOffline(true)
		})
		return
	}
	s.post(func() { s.setOffline(false) })
	s.Load(false)
}

// setOffline runs on the delivery side.
func (s *RecipeEdit) setOffline(v bool) {
	s.mu.Lock()
	changed := s.offline != v
	s.offline = v
	s.mu.Unlock()
	if changed {
		s.events.Publish(Event{Kind: EventOfflineChanged, Payload: v})
	}
}

func (s *RecipeEdit) resolver(policy lookup.Policy) *lookup.Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookup.NewResolver(s.catalog, policy)
}

// OnBarcodeRecognized handles a scanned code. With a product already
// chosen the code is only remembered.
func (s *RecipeEdit) OnBarcodeRecognized(code string) {
	if s.form.ProductDetails() != nil {
		s.form.SetBarcode(code)
		return
	}

	res := s.resolver(lookup.ScanPolicy).Resolve(code)
	switch res.Kind {
	case lookup.KindProduct:
		s.SetProduct(int64(res.Product.ID))
	case lookup.KindWrongCodeType:
		s.continueScanning(msgWrongCodeType)
	case lookup.KindNotFound:
		s.continueScanning(msgNotFound)
	default:
		s.notify(Event{Kind: EventChooseProduct, Input: res.Input})
	}
}

// CheckProductInput resolves the text typed into the product field.
func (s *RecipeEdit) CheckProductInput() {
	input := s.form.ProductText()
	if strings.TrimSpace(input) == "" {
		return
	}
	res := s.resolver(lookup.InputPolicy).Resolve(input)
	switch res.Kind {
	case lookup.KindProduct:
		if cur := s.form.ProductDetails(); cur != nil && cur.Product.ID == res.Product.ID {
			return
		}
		s.SetProduct(int64(res.Product.ID))
	case lookup.KindWrongCodeType:
		s.continueScanning(msgWrongCodeType)
	case lookup.KindNotFound:
		s.continueScanning(msgNotFound)
	default:
		s.notify(Event{Kind: EventInputProduct, Input: res.Input})
	}
}

// SetProduct loads live stock data and makes productID the produced
// product. Products without stock are refused.
func (s *RecipeEdit) SetProduct(productID int64) {
	s.scope.Go(func(ctx context.Context) {
		details, err := s.gw.ProductDetails(ctx, productID)
		if err != nil {
			s.logger.Warn("product details", "product_id", productID, "error", err)
			s.continueScanning(msgNoProductDetails)
			return
		}
		if details.StockAmountAggregated == 0 {
			s.continueScanning(fmt.Sprintf("%s is not in stock", details.Product.Name))
			return
		}
		s.post(func() {
			s.form.SetProductDetails(details)
			s.events.Publish(Event{Kind: EventFormChanged})
		})
	})
}

func (s *RecipeEdit) continueScanning(msg string) {
	s.later(func() {
		s.form.ClearProduct()
		s.events.Publish(s.message(msg))
		s.events.Publish(Event{Kind: EventContinueScanning})
	})
}

// Save validates the form and creates or updates the recipe.
func (s *RecipeEdit) Save() {
	payload, err := s.form.Submit(s.recipe)
	switch {
	case errors.Is(err, form.ErrAlreadySubmitted):
		return
	case err != nil:
		s.notify(s.message(msgMissingInformation))
		return
	}

	s.scope.Go(func(ctx context.Context) {
		var err error
		if s.recipe != nil {
			err = s.gw.Update(ctx, grocy.EntityRecipes, int64(s.recipe.ID), payload)
		} else {
			_, err = s.gw.Create(ctx, grocy.EntityRecipes, payload)
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("save recipe", "error", err)
			s.post(func() {
				s.form.Failed()
				s.events.Publish(s.message(grocy.UserMessage(err)))
			})
			return
		}
		s.post(func() {
			s.form.Reset()
			s.events.Publish(Event{Kind: EventNavigateUp})
		})
	})
}

// Delete removes the edited recipe. It does nothing when creating.
func (s *RecipeEdit) Delete() {
	if s.recipe == nil {
		return
	}
	id := int64(s.recipe.ID)
	s.scope.Go(func(ctx context.Context) {
		err := s.gw.Delete(ctx, grocy.EntityRecipes, id)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("delete recipe", "recipe_id", id, "error", err)
			s.emit(s.message(grocy.UserMessage(err)))
			return
		}
		s.emit(Event{Kind: EventNavigateUp})
	})
}
