package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/grocysync/internal/recipes"
	"github.com/dukerupert/grocysync/internal/store"
	"github.com/dukerupert/grocysync/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type recipesSettingsJSON struct {
	Layout    string `json:"layout"`
	Sort      string `json:"sort"`
	Ascending bool   `json:"ascending"`
}

func (h *SettingsHandler) GetRecipes(w http.ResponseWriter, r *http.Request) {
	s, err := recipes.LoadSettings(r.Context(), h.settingsStore)
	if err != nil {
		h.logger.Error("load recipes settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, recipesSettingsJSON{
		Layout:    string(s.Layout),
		Sort:      string(s.Sort),
		Ascending: s.Ascending,
	})
}

// UpdateRecipes accepts a partial update keyed by the stored setting names.
func (h *SettingsHandler) UpdateRecipes(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := validateRecipesSettings(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for key, value := range req {
		if err := h.settingsStore.Set(r.Context(), key, value); err != nil {
			h.logger.Error("save recipes setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	h.broadcast(websocket.NewMessage("settings", "updated", 0))
	h.GetRecipes(w, r)
}

func validateRecipesSettings(req map[string]string) error {
	for key, value := range req {
		switch key {
		case store.SettingRecipesLayout:
			if value != string(recipes.LayoutLinear) && value != string(recipes.LayoutGrid) {
				return fmt.Errorf("%s must be linear or grid", key)
			}
		case store.SettingRecipesSortMode:
			if string(recipes.ParseSortMode(value)) != value {
				return fmt.Errorf("%s must be name, due_score or calories", key)
			}
		case store.SettingRecipesSortAscending:
			if _, err := strconv.ParseBool(value); err != nil {
				return fmt.Errorf("%s must be true or false", key)
			}
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
	}
	return nil
}
