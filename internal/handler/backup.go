package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/grocysync/internal/backup"
)

type BackupHandler struct {
	manager    *backup.Manager
	passphrase string
	logger     *slog.Logger
}

// NewBackupHandler serves manual snapshots using the configured passphrase.
func NewBackupHandler(m *backup.Manager, passphrase string, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, passphrase: passphrase, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.manager.List(r.Context())
	if errors.Is(err, backup.ErrDisabled) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusBadGateway, "failed to list backups")
		return
	}
	if snaps == nil {
		snaps = []backup.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.passphrase == "" {
		writeError(w, http.StatusConflict, "backup passphrase not configured")
		return
	}
	snap, err := h.manager.RunNow(r.Context(), h.passphrase)
	if errors.Is(err, backup.ErrDisabled) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusBadGateway, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}
