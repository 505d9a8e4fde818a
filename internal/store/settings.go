package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

const (
	SettingRecipesLayout        = "recipes_list_layout"
	SettingRecipesSortMode      = "recipes_sort_mode"
	SettingRecipesSortAscending = "recipes_sort_ascending"
)

var recipesKeys = []string{
	SettingRecipesLayout,
	SettingRecipesSortMode,
	SettingRecipesSortAscending,
}

// SettingsStore keeps screen preferences. Callers receive it explicitly
// rather than reading process-wide state.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for key, or "" when unset.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// GetBool reads key as a boolean, returning def when unset or unparsable.
func (s *SettingsStore) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if value == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return def, nil
	}
	return b, nil
}

func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetRecipesSettings returns the recipe list preferences that are set.
func (s *SettingsStore) GetRecipesSettings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range recipesKeys {
		var value string
		err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get recipes setting %q: %w", key, err)
		}
		settings[key] = value
	}
	return settings, nil
}
