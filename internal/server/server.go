// Package server exposes the local cache over JSON and a WebSocket event
// stream for out-of-process front ends.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/grocysync/internal/backup"
	"github.com/dukerupert/grocysync/internal/gateway"
	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/handler"
	"github.com/dukerupert/grocysync/internal/middleware"
	"github.com/dukerupert/grocysync/internal/repository"
	"github.com/dukerupert/grocysync/internal/store"
	ws "github.com/dukerupert/grocysync/internal/websocket"
)

// Sync triggers hit the Grocy server, so they are limited per client.
const (
	syncLimit  = 6
	syncWindow = time.Minute
)

type Server struct {
	db        *sql.DB
	stores    *store.Stores
	gateway   *gateway.Gateway
	hub       *ws.Hub
	cacheH    *handler.CacheHandler
	syncH     *handler.SyncHandler
	pendingH  *handler.PendingHandler
	resolveH  *handler.ResolveHandler
	settingsH *handler.SettingsHandler
	backupH   *handler.BackupHandler
	limiter   *middleware.Limiter
	backupMgr *backup.Manager
	logger    *slog.Logger
}

func New(db *sql.DB, client *grocy.Client, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	stores := store.New(db)
	gw := gateway.New(client, stores, hub, logger.With("component", "gateway"))

	backupMgr := backup.NewManager(backupCfg, db, func(s backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(s.State), 0))
	}, logger.With("component", "backup"))

	return &Server{
		db:        db,
		stores:    stores,
		gateway:   gw,
		hub:       hub,
		cacheH:    handler.NewCacheHandler(stores, logger.With("component", "cache")),
		syncH:     handler.NewSyncHandler(gw, stores.Watermarks, logger.With("component", "sync")),
		pendingH:  handler.NewPendingHandler(repository.NewPendingPurchasesRepository(stores), logger.With("component", "pending")),
		resolveH:  handler.NewResolveHandler(repository.NewRecipeEditRepository(stores), logger.With("component", "resolve")),
		settingsH: handler.NewSettingsHandler(stores.Settings, hub, logger.With("component", "settings")),
		backupH:   handler.NewBackupHandler(backupMgr, backupCfg.Passphrase, logger.With("component", "backup_handler")),
		limiter:   middleware.NewLimiter(syncLimit, syncWindow),
		backupMgr: backupMgr,
		logger:    logger,
	}
}

// Gateway returns the sync gateway for background refreshes.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway
}

// Limiter returns the sync rate limiter for cleanup tasks.
func (s *Server) Limiter() *middleware.Limiter {
	return s.limiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Sync
	mux.HandleFunc("GET /api/sync", s.syncH.Status)
	mux.Handle("POST /api/sync", middleware.Throttle(s.limiter)(http.HandlerFunc(s.syncH.Sync)))

	// Aggregates and lookups
	mux.HandleFunc("GET /api/pending-purchases", s.pendingH.List)
	mux.HandleFunc("GET /api/resolve", s.resolveH.Resolve)

	// Settings
	mux.HandleFunc("GET /api/settings/recipes", s.settingsH.GetRecipes)
	mux.HandleFunc("PUT /api/settings/recipes", s.settingsH.UpdateRecipes)

	// Backup
	mux.HandleFunc("GET /api/backup", s.backupH.Status)
	mux.HandleFunc("POST /api/backup", s.backupH.Run)
	mux.HandleFunc("GET /api/backups", s.backupH.List)

	// Cached tables; the literal routes above take precedence.
	mux.HandleFunc("GET /api/{entity}", s.cacheH.List)
	mux.HandleFunc("GET /api/{entity}/{id}", s.cacheH.Get)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.gateway.Offline() {
		status = "offline"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}
