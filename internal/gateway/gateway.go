// Package gateway keeps the local cache in step with the Grocy server.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/store"
)

// ErrLocalOnly is returned for entities that have no server endpoint.
var ErrLocalOnly = errors.New("entity is local only")

// ErrReadOnly is returned for mutations of server-computed collections.
var ErrReadOnly = errors.New("entity is read only")

// ErrUnknownEntity is returned for entities the gateway has no binding for.
var ErrUnknownEntity = errors.New("unknown entity")

// Notifier receives table-level change events, e.g. "products" / "synced".
type Notifier interface {
	Notify(entity, action string, id int64)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, int64) {}

// Gateway fetches server collections into the local store and forwards
// mutations, invalidating the affected watermarks on success.
type Gateway struct {
	client     *grocy.Client
	watermarks *store.WatermarkStore
	notifier   Notifier
	logger     *slog.Logger

	bindings map[grocy.Entity]binding
	locks    map[grocy.Entity]*sync.Mutex
	offline  atomic.Bool
}

// New wires a Gateway. notifier may be nil.
func New(client *grocy.Client, stores *store.Stores, notifier Notifier, logger *slog.Logger) *Gateway {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		client:     client,
		watermarks: stores.Watermarks,
		notifier:   notifier,
		logger:     logger,
		bindings:   bindings(client, stores),
		locks:      make(map[grocy.Entity]*sync.Mutex),
	}
	for e := range g.bindings {
		g.locks[e] = &sync.Mutex{}
	}
	return g
}

// Offline reports whether the last server call failed at the transport level.
func (g *Gateway) Offline() bool {
	return g.offline.Load()
}

// FetchIfStale refreshes one entity when the server's freshness token
// differs from the stored watermark, when force is set, or when the entity
// was invalidated. It reports whether the collection was downloaded.
func (g *Gateway) FetchIfStale(ctx context.Context, entity grocy.Entity, force bool) (bool, error) {
	if _, err := g.binding(entity); err != nil {
		return false, err
	}
	token, err := g.token(ctx)
	if err != nil {
		return false, err
	}
	return g.fetch(ctx, entity, token, force)
}

// UpdateData refreshes the given entities (all mirrored ones when empty)
// against a single freshness token. The first failure is returned; entities
// that succeeded keep their new contents.
func (g *Gateway) UpdateData(ctx context.Context, force bool, entities ...grocy.Entity) error {
	if len(entities) == 0 {
		entities = grocy.Mirrored
	}
	for _, e := range entities {
		if _, err := g.binding(e); err != nil {
			return err
		}
	}

	token, err := g.token(ctx)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, e := range entities {
		eg.Go(func() error {
			_, err := g.fetch(egCtx, e, token, force)
			return err
		})
	}
	return eg.Wait()
}

// ForceUpdate invalidates the given entities (all mirrored ones when empty)
// and downloads them again.
func (g *Gateway) ForceUpdate(ctx context.Context, entities ...grocy.Entity) error {
	if len(entities) == 0 {
		entities = grocy.Mirrored
	}
	for _, e := range entities {
		if _, err := g.binding(e); err != nil {
			return err
		}
		if err := g.watermarks.Invalidate(ctx, string(e)); err != nil {
			return err
		}
	}
	return g.UpdateData(ctx, true, entities...)
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	token, err := g.client.DBChangedTime(ctx)
	g.track(err)
	if err != nil {
		return "", fmt.Errorf("get freshness token: %w", err)
	}
	return token, nil
}

func (g *Gateway) fetch(ctx context.Context, entity grocy.Entity, token string, force bool) (bool, error) {
	b, err := g.binding(entity)
	if err != nil {
		return false, err
	}

	mu := g.locks[entity]
	mu.Lock()
	defer mu.Unlock()

	wm, err := g.watermarks.Get(ctx, string(entity))
	if err != nil {
		return false, err
	}
	if !force && !wm.ForceRefresh && token != "" && wm.LastTime == token {
		return false, nil
	}

	n, err := b.download(ctx)
	g.track(err)
	if err != nil {
		g.logger.Warn("sync failed", "entity", entity, "error", err)
		return false, fmt.Errorf("sync %s: %w", entity, err)
	}
	if err := g.watermarks.Set(ctx, string(entity), token); err != nil {
		return true, err
	}

	g.logger.Debug("synced", "entity", entity, "rows", n, "token", token)
	g.notifier.Notify(string(entity), "synced", 0)
	return true, nil
}

func (g *Gateway) binding(entity grocy.Entity) (binding, error) {
	if entity.LocalOnly() {
		return binding{}, fmt.Errorf("%s: %w", entity, ErrLocalOnly)
	}
	b, ok := g.bindings[entity]
	if !ok {
		return binding{}, fmt.Errorf("%s: %w", entity, ErrUnknownEntity)
	}
	return b, nil
}

// track flips the offline flag on transport failures and clears it on any
// response from the server.
func (g *Gateway) track(err error) {
	switch {
	case err == nil:
		g.offline.Store(false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Abandoned requests say nothing about the server.
	case errors.Is(err, grocy.ErrTransport):
		if !g.offline.Swap(true) {
			g.logger.Info("server unreachable, switching to offline")
		}
	default:
		var apiErr *grocy.APIError
		if errors.As(err, &apiErr) {
			g.offline.Store(false)
		}
	}
}
