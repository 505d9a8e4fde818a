package screen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/repository"
	"github.com/dukerupert/grocysync/internal/store"
)

// PendingPurchases lists purchases recorded offline and lets the user pick
// or create the product they belong to.
type PendingPurchases struct {
	base
	repo   *repository.PendingPurchasesRepository
	stores *store.Stores

	writeMu sync.Mutex

	mu   sync.Mutex
	data *repository.ChooseProductData
}

func NewPendingPurchases(d Deps, repo *repository.PendingPurchasesRepository, stores *store.Stores) *PendingPurchases {
	return &PendingPurchases{
		base:   newBase(d, "pending_purchases"),
		repo:   repo,
		stores: stores,
	}
}

func (s *PendingPurchases) Load() {
	s.repo.Load(s.scope, func(d *repository.ChooseProductData, err error) {
		if err != nil {
			s.logger.Error("load pending purchases", "error", err)
			s.events.Publish(s.message(err.Error()))
			return
		}
		s.mu.Lock()
		s.data = d
		s.mu.Unlock()
		s.events.Publish(Event{Kind: EventDataChanged, Payload: d})
	})
}

func (s *PendingPurchases) Data() *repository.ChooseProductData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// PendingProductForBarcode returns the pending product a scanned code was
// recorded against, or nil.
func (s *PendingPurchases) PendingProductForBarcode(code string) *model.PendingProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	code = strings.TrimSpace(code)
	for _, b := range s.data.PendingProductBarcodes {
		if b.Barcode != code {
			continue
		}
		for i := range s.data.PendingProducts {
			if s.data.PendingProducts[i].ID == b.PendingProductID {
				return &s.data.PendingProducts[i]
			}
		}
	}
	return nil
}

// PurchasesFor returns the purchases of one pending product.
func (s *PendingPurchases) PurchasesFor(pendingProductID int64) []model.PendingPurchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	var out []model.PendingPurchase
	for _, p := range s.data.PendingPurchases {
		if int64(p.PendingProductID) == pendingProductID {
			out = append(out, p)
		}
	}
	return out
}

// AddPendingProduct stores a product created offline, optionally with the
// barcode it was scanned from, and reloads.
func (s *PendingPurchases) AddPendingProduct(name, barcode string) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.notify(s.message(msgMissingInformation))
		return
	}
	s.scope.Go(func(ctx context.Context) {
		if err := s.addPendingProduct(ctx, name, strings.TrimSpace(barcode)); err != nil {
			s.logger.Error("add pending product", "error", err)
			s.emit(s.message(err.Error()))
			return
		}
		s.Load()
	})
}

func (s *PendingPurchases) addPendingProduct(ctx context.Context, name, barcode string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id, err := s.stores.PendingProducts.NextID(ctx)
	if err != nil {
		return fmt.Errorf("next pending product id: %w", err)
	}
	p := model.PendingProduct{ID: model.FlexInt(id), Name: name}
	if err := s.stores.PendingProducts.UpsertAll(ctx, []model.PendingProduct{p}); err != nil {
		return err
	}
	if barcode == "" {
		return nil
	}
	bid, err := s.stores.PendingProductBarcodes.NextID(ctx)
	if err != nil {
		return fmt.Errorf("next pending barcode id: %w", err)
	}
	b := model.PendingProductBarcode{ID: model.FlexInt(bid), PendingProductID: p.ID, Barcode: barcode}
	return s.stores.PendingProductBarcodes.UpsertAll(ctx, []model.PendingProductBarcode{b})
}

// AddPendingPurchase records a purchase against a pending product. The id
// is assigned locally.
func (s *PendingPurchases) AddPendingPurchase(p model.PendingPurchase) {
	if p.PendingProductID == 0 || p.Amount <= 0 {
		s.notify(s.message(msgMissingInformation))
		return
	}
	s.scope.Go(func(ctx context.Context) {
		s.writeMu.Lock()
		id, err := s.stores.PendingPurchases.NextID(ctx)
		if err == nil {
			p.ID = model.FlexInt(id)
			err = s.stores.PendingPurchases.UpsertAll(ctx, []model.PendingPurchase{p})
		}
		s.writeMu.Unlock()
		if err != nil {
			s.logger.Error("add pending purchase", "error", err)
			s.emit(s.message(err.Error()))
			return
		}
		s.Load()
	})
}
