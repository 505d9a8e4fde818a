package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/grocysync/internal/model"
)

// WatermarkStore persists the per-entity sync freshness token and the
// force-refresh flag.
type WatermarkStore struct {
	db *sql.DB
}

func NewWatermarkStore(db *sql.DB) *WatermarkStore {
	return &WatermarkStore{db: db}
}

func scanWatermark(scanner scanner) (*model.Watermark, error) {
	var w model.Watermark
	var force int
	if err := scanner.Scan(&w.Entity, &w.LastTime, &force, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.ForceRefresh = force != 0
	return &w, nil
}

const watermarkCols = `entity, last_time, force_refresh, updated_at`

// Get returns the watermark for entity. An entity that was never synced
// yields a zero watermark, not an error.
func (s *WatermarkStore) Get(ctx context.Context, entity string) (model.Watermark, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+watermarkCols+` FROM sync_watermarks WHERE entity = ?`, entity)
	w, err := scanWatermark(row)
	if err == sql.ErrNoRows {
		return model.Watermark{Entity: entity}, nil
	}
	if err != nil {
		return model.Watermark{}, fmt.Errorf("get watermark %q: %w", entity, err)
	}
	return *w, nil
}

// All returns every stored watermark ordered by entity.
func (s *WatermarkStore) All(ctx context.Context) ([]model.Watermark, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+watermarkCols+` FROM sync_watermarks ORDER BY entity`)
	if err != nil {
		return nil, fmt.Errorf("list watermarks: %w", err)
	}
	defer rows.Close()

	var marks []model.Watermark
	for rows.Next() {
		w, err := scanWatermark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watermark: %w", err)
		}
		marks = append(marks, *w)
	}
	return marks, rows.Err()
}

// Set records a successful sync at lastTime and clears the force flag.
func (s *WatermarkStore) Set(ctx context.Context, entity, lastTime string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_watermarks (entity, last_time, force_refresh, updated_at) VALUES (?, ?, 0, ?)
		 ON CONFLICT(entity) DO UPDATE SET last_time = excluded.last_time, force_refresh = 0, updated_at = excluded.updated_at`,
		entity, lastTime, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set watermark %q: %w", entity, err)
	}
	return nil
}

// Invalidate clears the stored time and flags the entity for a full refresh
// on next access.
func (s *WatermarkStore) Invalidate(ctx context.Context, entity string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_watermarks (entity, last_time, force_refresh, updated_at) VALUES (?, '', 1, ?)
		 ON CONFLICT(entity) DO UPDATE SET last_time = '', force_refresh = 1, updated_at = excluded.updated_at`,
		entity, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("invalidate watermark %q: %w", entity, err)
	}
	return nil
}

// InvalidateAll flags every known entity for refresh.
func (s *WatermarkStore) InvalidateAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_watermarks SET last_time = '', force_refresh = 1, updated_at = ?`, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("invalidate all watermarks: %w", err)
	}
	return nil
}
