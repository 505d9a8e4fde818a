package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/grocysync/internal/lookup"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/repository"
)

type ResolveHandler struct {
	repo   *repository.RecipeEditRepository
	logger *slog.Logger
}

func NewResolveHandler(repo *repository.RecipeEditRepository, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{repo: repo, logger: logger}
}

type resolveResponse struct {
	Kind    string                `json:"kind"`
	Input   string                `json:"input"`
	Step    string                `json:"step,omitempty"`
	Product *model.Product        `json:"product,omitempty"`
	Barcode *model.ProductBarcode `json:"barcode,omitempty"`
	Code    string                `json:"grocycode,omitempty"`
}

// Resolve matches ?code= against the cached catalog. ?policy=input uses the
// typed-input order (names before barcodes); anything else uses the scanner order.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	policy := lookup.ScanPolicy
	if r.URL.Query().Get("policy") == "input" {
		policy = lookup.InputPolicy
	}

	data, err := h.repo.Read(r.Context())
	if err != nil {
		h.logger.Error("read catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read cache")
		return
	}

	res := lookup.NewResolver(lookup.Catalog{Products: data.Products, Barcodes: data.ProductBarcodes}, policy).Resolve(code)
	writeJSON(w, http.StatusOK, toResolveResponse(res))
}

func toResolveResponse(res lookup.Resolution) resolveResponse {
	out := resolveResponse{
		Kind:    res.Kind.String(),
		Input:   res.Input,
		Product: res.Product,
		Barcode: res.Barcode,
	}
	if res.Product != nil || res.Code != nil {
		out.Step = res.Step.String()
	}
	if res.Code != nil {
		out.Code = res.Code.String()
	}
	return out
}
