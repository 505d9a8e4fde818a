package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/grocysync/internal/gateway"
	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/model"
	"github.com/dukerupert/grocysync/internal/store"
)

type SyncHandler struct {
	gateway    *gateway.Gateway
	watermarks *store.WatermarkStore
	logger     *slog.Logger
}

func NewSyncHandler(gw *gateway.Gateway, watermarks *store.WatermarkStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{gateway: gw, watermarks: watermarks, logger: logger}
}

type syncStatus struct {
	Offline    bool              `json:"offline"`
	Watermarks []model.Watermark `json:"watermarks"`
}

// Sync refreshes the mirrored entities, or the comma separated subset in
// ?entity=. With ?force=1 every watermark is ignored.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	entities, err := parseEntityList(r.URL.Query().Get("entity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	force := r.URL.Query().Get("force") == "1"
	if force {
		err = h.gateway.ForceUpdate(r.Context(), entities...)
	} else {
		err = h.gateway.UpdateData(r.Context(), false, entities...)
	}
	if err != nil {
		h.logger.Warn("sync failed", "force", force, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, grocy.ErrTransport) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, grocy.UserMessage(err))
		return
	}
	h.Status(w, r)
}

// Status reports the offline flag and every stored watermark.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	marks, err := h.watermarks.All(r.Context())
	if err != nil {
		h.logger.Error("list watermarks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read sync status")
		return
	}
	if marks == nil {
		marks = []model.Watermark{}
	}
	writeJSON(w, http.StatusOK, syncStatus{Offline: h.gateway.Offline(), Watermarks: marks})
}

func parseEntityList(s string) ([]grocy.Entity, error) {
	if strings.TrimSpace(s) == "" {
		return grocy.Mirrored, nil
	}
	var out []grocy.Entity
	for _, name := range strings.Split(s, ",") {
		e, ok := grocy.ParseEntity(strings.TrimSpace(name))
		if !ok {
			return nil, errors.New("unknown entity: " + strings.TrimSpace(name))
		}
		if e.LocalOnly() {
			return nil, errors.New("entity is local only: " + e.String())
		}
		out = append(out, e)
	}
	return out, nil
}
