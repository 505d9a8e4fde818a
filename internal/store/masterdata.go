package store

import (
	"context"
	"database/sql"

	"github.com/dukerupert/grocysync/internal/model"
)

type LocationStore struct {
	*Table[model.Location]
}

func scanLocation(scanner scanner) (*model.Location, error) {
	var l model.Location
	if err := scanner.Scan(&l.ID, &l.Name, &l.Description, &l.IsFreezer); err != nil {
		return nil, err
	}
	return &l, nil
}

func NewLocationStore(db *sql.DB) *LocationStore {
	cols := []string{"id", "name", "description", "is_freezer"}
	args := func(l *model.Location) []any {
		return []any{l.ID, l.Name, l.Description, l.IsFreezer}
	}
	return &LocationStore{newTable(db, "locations", cols, scanLocation, args)}
}

// ListByName returns locations sorted for selection lists.
func (s *LocationStore) ListByName(ctx context.Context) ([]model.Location, error) {
	return s.query(ctx, s.selectSQL+` ORDER BY name COLLATE NOCASE ASC`)
}

type QuantityUnitStore struct {
	*Table[model.QuantityUnit]
}

func scanQuantityUnit(scanner scanner) (*model.QuantityUnit, error) {
	var q model.QuantityUnit
	if err := scanner.Scan(&q.ID, &q.Name, &q.NamePlural, &q.Description); err != nil {
		return nil, err
	}
	return &q, nil
}

func NewQuantityUnitStore(db *sql.DB) *QuantityUnitStore {
	cols := []string{"id", "name", "name_plural", "description"}
	args := func(q *model.QuantityUnit) []any {
		return []any{q.ID, q.Name, q.NamePlural, q.Description}
	}
	return &QuantityUnitStore{newTable(db, "quantity_units", cols, scanQuantityUnit, args)}
}

// ListByName returns quantity units sorted for selection lists.
func (s *QuantityUnitStore) ListByName(ctx context.Context) ([]model.QuantityUnit, error) {
	return s.query(ctx, s.selectSQL+` ORDER BY name COLLATE NOCASE ASC`)
}
