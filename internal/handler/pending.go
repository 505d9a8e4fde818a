package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/repository"
)

type PendingHandler struct {
	repo   *repository.PendingPurchasesRepository
	logger *slog.Logger
}

func NewPendingHandler(repo *repository.PendingPurchasesRepository, logger *slog.Logger) *PendingHandler {
	return &PendingHandler{repo: repo, logger: logger}
}

type pendingEntry struct {
	Product   model.PendingProduct    `json:"product"`
	Barcodes  []string                `json:"barcodes"`
	Purchases []model.PendingPurchase `json:"purchases"`
}

// List groups the pending purchases under the pending product they belong to.
func (h *PendingHandler) List(w http.ResponseWriter, r *http.Request) {
	data, err := h.repo.Read(r.Context())
	if err != nil {
		h.logger.Error("read pending purchases", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read pending purchases")
		return
	}

	entries := make([]pendingEntry, 0, len(data.PendingProducts))
	index := make(map[int64]int, len(data.PendingProducts))
	for _, p := range data.PendingProducts {
		index[int64(p.ID)] = len(entries)
		entries = append(entries, pendingEntry{
			Product:   p,
			Barcodes:  []string{},
			Purchases: []model.PendingPurchase{},
		})
	}
	for _, b := range data.PendingProductBarcodes {
		if i, ok := index[int64(b.PendingProductID)]; ok {
			entries[i].Barcodes = append(entries[i].Barcodes, b.Barcode)
		}
	}
	for _, p := range data.PendingPurchases {
		if i, ok := index[int64(p.PendingProductID)]; ok {
			entries[i].Purchases = append(entries[i].Purchases, p)
		}
	}
	writeJSON(w, http.StatusOK, entries)
}
