package recipes

import (
	"context"
	"strconv"

	"github.com/dukerupert/grocysync/internal/store"
)

type Layout string

const (
	LayoutLinear Layout = "linear"
	LayoutGrid   Layout = "grid"
)

// Settings are the persisted recipe list preferences.
type Settings struct {
	Layout    Layout
	Sort      SortMode
	Ascending bool
}

// LoadSettings reads preferences, applying defaults for unset keys.
func LoadSettings(ctx context.Context, s *store.SettingsStore) (Settings, error) {
	values, err := s.GetRecipesSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	out := Settings{Layout: LayoutLinear, Sort: SortName, Ascending: true}
	if values[store.SettingRecipesLayout] == string(LayoutGrid) {
		out.Layout = LayoutGrid
	}
	if v, ok := values[store.SettingRecipesSortMode]; ok {
		out.Sort = ParseSortMode(v)
	}
	if v, ok := values[store.SettingRecipesSortAscending]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.Ascending = b
		}
	}
	return out, nil
}

// SaveSettings writes every preference.
func SaveSettings(ctx context.Context, s *store.SettingsStore, v Settings) error {
	if err := s.Set(ctx, store.SettingRecipesLayout, string(v.Layout)); err != nil {
		return err
	}
	if err := s.Set(ctx, store.SettingRecipesSortMode, string(v.Sort)); err != nil {
		return err
	}
	return s.Set(ctx, store.SettingRecipesSortAscending, strconv.FormatBool(v.Ascending))
}

// Toggle flips between the linear and grid layouts.
func (l Layout) Toggle() Layout {
	if l == LayoutGrid {
		return LayoutLinear
	}
	return LayoutGrid
}
