package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/store"
)

// tableReader erases the row type of a store.Table so one handler can
// serve every cached entity.
type tableReader struct {
	all func(ctx context.Context) (any, error)
	one func(ctx context.Context, id int64) (any, error)
}

func readerFor[T any](t *store.Table[T]) tableReader {
	return tableReader{
		all: func(ctx context.Context) (any, error) {
			rows, err := t.GetAll(ctx)
			if rows == nil {
				rows = []T{}
			}
			return rows, err
		},
		one: func(ctx context.Context, id int64) (any, error) {
			row, err := t.FindByID(ctx, id)
			if row == nil || err != nil {
				return nil, err
			}
			return row, nil
		},
	}
}

// CacheHandler serves cached rows straight from the local store. It never
// contacts the server.
type CacheHandler struct {
	tables map[grocy.Entity]tableReader
	logger *slog.Logger
}

func NewCacheHandler(s *store.Stores, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{
		tables: map[grocy.Entity]tableReader{
			grocy.EntityProducts:               readerFor(s.Products.Table),
			grocy.EntityProductBarcodes:        readerFor(s.ProductBarcodes.Table),
			grocy.EntityLocations:              readerFor(s.Locations.Table),
			grocy.EntityQuantityUnits:          readerFor(s.QuantityUnits.Table),
			grocy.EntityRecipes:                readerFor(s.Recipes.Table),
			grocy.EntityRecipePositions:        readerFor(s.RecipePositions.Table),
			grocy.EntityRecipeFulfillments:     readerFor(s.RecipeFulfillments.Table),
			grocy.EntityShoppingListItems:      readerFor(s.ShoppingListItems.Table),
			grocy.EntityPendingProducts:        readerFor(s.PendingProducts.Table),
			grocy.EntityPendingProductBarcodes: readerFor(s.PendingProductBarcodes.Table),
			grocy.EntityPendingPurchases:       readerFor(s.PendingPurchases.Table),
		},
		logger: logger,
	}
}

func (h *CacheHandler) table(w http.ResponseWriter, r *http.Request) (tableReader, bool) {
	entity, ok := grocy.ParseEntity(r.PathValue("entity"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown entity")
		return tableReader{}, false
	}
	t, ok := h.tables[entity]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown entity")
		return tableReader{}, false
	}
	return t, true
}

func (h *CacheHandler) List(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	rows, err := t.all(r.Context())
	if err != nil {
		h.logger.Error("list cached rows", "entity", r.PathValue("entity"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read cache")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *CacheHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	row, err := t.one(r.Context(), id)
	if err != nil {
		h.logger.Error("get cached row", "entity", r.PathValue("entity"), "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read cache")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}
