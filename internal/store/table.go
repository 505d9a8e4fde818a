package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
)

type scanner interface{ Scan(...any) error }

// Table is the shared mirror-table implementation every entity store embeds.
// Writes to one table are serialized and each batch commits in a single
// transaction, so readers see either the old or the new row set.
type Table[T any] struct {
	db      *sql.DB
	name    string
	cols    []string
	scan    func(scanner) (*T, error)
	args    func(*T) []any
	writeMu sync.Mutex

	selectSQL string
	upsertSQL string
}

func newTable[T any](db *sql.DB, name string, cols []string, scan func(scanner) (*T, error), args func(*T) []any) *Table[T] {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	colList := strings.Join(cols, ", ")

	return &Table[T]{
		db:        db,
		name:      name,
		cols:      cols,
		scan:      scan,
		args:      args,
		selectSQL: `SELECT ` + colList + ` FROM ` + name,
		upsertSQL: `INSERT INTO ` + name + ` (` + colList + `) VALUES (` + placeholders + `)
		 ON CONFLICT(id) DO UPDATE SET ` + strings.Join(updates, ", "),
	}
}

// Name returns the SQL table name.
func (t *Table[T]) Name() string {
	return t.name
}

// UpsertAll inserts rows, replacing any existing row with the same id.
func (t *Table[T]) UpsertAll(ctx context.Context, rows []T) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return t.inTx(ctx, func(tx *sql.Tx) error {
		return t.upsertTx(ctx, tx, rows)
	})
}

// ReplaceAll swaps the whole table contents for rows in one transaction.
func (t *Table[T]) ReplaceAll(ctx context.Context, rows []T) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	return t.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.name); err != nil {
			return fmt.Errorf("clear %s: %w", t.name, err)
		}
		return t.upsertTx(ctx, tx, rows)
	})
}

func (t *Table[T]) upsertTx(ctx context.Context, tx *sql.Tx, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, t.upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert %s: %w", t.name, err)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, t.args(&rows[i])...); err != nil {
			return fmt.Errorf("upsert %s: %w", t.name, err)
		}
	}
	return nil
}

func (t *Table[T]) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", t.name, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.name, err)
	}
	return nil
}

// GetAll returns every row ordered by id.
func (t *Table[T]) GetAll(ctx context.Context) ([]T, error) {
	return t.query(ctx, t.selectSQL+` ORDER BY id ASC`)
}

func (t *Table[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		row, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		result = append(result, *row)
	}
	return result, rows.Err()
}

func (t *Table[T]) queryRow(ctx context.Context, query string, args ...any) (*T, error) {
	row, err := t.scan(t.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}
	return row, nil
}

// FindByID returns the row with the given id, or nil when absent.
func (t *Table[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	return t.queryRow(ctx, t.selectSQL+` WHERE id = ?`, id)
}

// Delete removes a single row.
func (t *Table[T]) Delete(ctx context.Context, id int64) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.db.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return nil
}

// DeleteAll empties the table.
func (t *Table[T]) DeleteAll(ctx context.Context) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.db.ExecContext(ctx, `DELETE FROM `+t.name); err != nil {
		return fmt.Errorf("delete all %s: %w", t.name, err)
	}
	return nil
}

// Count returns the number of rows.
func (t *Table[T]) Count(ctx context.Context) (int, error) {
	var count int
	if err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t.name).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return count, nil
}
