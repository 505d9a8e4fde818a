package screen

import (
	"context"
	"sync"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/recipes"
	"github.com/dukerupert/grocysync/internal/repository"
	"github.com/dukerupert/grocysync/internal/store"
)

var recipesEntities = []grocy.Entity{
	grocy.EntityRecipes,
	grocy.EntityRecipeFulfillments,
	grocy.EntityRecipePositions,
	grocy.EntityProducts,
	grocy.EntityQuantityUnits,
}

// Recipes is the recipe list with search, status filter and sorting.
type Recipes struct {
	base
	repo     *repository.RecipesRepository
	settings *store.SettingsStore

	mu    sync.Mutex
	data  *repository.RecipesData
	items []recipes.Item
	query recipes.Query
	prefs recipes.Settings
}

func NewRecipes(d Deps, repo *repository.RecipesRepository, settings *store.SettingsStore) *Recipes {
	return &Recipes{
		base:     newBase(d, "recipes"),
		repo:     repo,
		settings: settings,
		query:    recipes.Query{Sort: recipes.SortName, Ascending: true},
		prefs:    recipes.Settings{Layout: recipes.LayoutLinear, Sort: recipes.SortName, Ascending: true},
	}
}

// Load reads persisted preferences and the cached list, then optionally
// refreshes from the server.
func (s *Recipes) Load(download bool) {
	s.scope.Go(func(ctx context.Context) {
		prefs, err := recipes.LoadSettings(ctx, s.settings)
		if err != nil {
			s.logger.Warn("load recipe settings", "error", err)
		}
		s.post(func() {
			if err == nil {
				s.mu.Lock()
				s.prefs = prefs
				s.query.Sort = prefs.Sort
				s.query.Ascending = prefs.Ascending
				s.mu.Unlock()
			}
			s.reload(download)
		})
	})
}

func (s *Recipes) reload(download bool) {
	s.repo.Load(s.scope, func(d *repository.RecipesData, err error) {
		if err != nil {
			s.logger.Error("load recipes", "error", err)
			s.events.Publish(s.message(err.Error()))
			return
		}
		s.mu.Lock()
		s.data = d
		s.mu.Unlock()
		s.publishItems()
		if download {
			s.Download(false)
		}
	})
}

// Download refreshes the recipe tables. While offline only a forced
// download is attempted.
func (s *Recipes) Download(force bool) {
	if s.gw.Offline() && !force {
		return
	}
	s.scope.Go(func(ctx context.Context) {
		var err error
		if force {
			err = s.gw.ForceUpdate(ctx, recipesEntities...)
		} else {
			err = s.gw.UpdateData(ctx, false, recipesEntities...)
		}
		if err != nil {
			s.logger.Warn("download recipes", "error", err)
			s.emit(s.message(msgNoConnection))
			s.emit(Event{Kind: EventOfflineChanged, Payload: s.gw.Offline()})
			return
		}
		s.reload(false)
	})
}

// Items returns the filtered and sorted list.
func (s *Recipes) Items() []recipes.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

func (s *Recipes) Settings() recipes.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Recipes) SetSearch(text string) {
	s.update(func(q *recipes.Query) { q.Search = text })
}

func (s *Recipes) SetStatus(status recipes.Status) {
	s.update(func(q *recipes.Query) { q.Status = status })
}

// SetSort changes the order and persists it.
func (s *Recipes) SetSort(mode recipes.SortMode, ascending bool) {
	s.update(func(q *recipes.Query) {
		q.Sort = recipes.ParseSortMode(string(mode))
		q.Ascending = ascending
	})
	s.savePrefs(func(p *recipes.Settings) {
		p.Sort = recipes.ParseSortMode(string(mode))
		p.Ascending = ascending
	})
}

// ToggleLayout switches between list and grid and persists the choice.
func (s *Recipes) ToggleLayout() recipes.Layout {
	return s.savePrefs(func(p *recipes.Settings) { p.Layout = p.Layout.Toggle() }).Layout
}

func (s *Recipes) update(fn func(*recipes.Query)) {
	s.mu.Lock()
	fn(&s.query)
	s.mu.Unlock()
	s.later(s.publishItems)
}

func (s *Recipes) savePrefs(fn func(*recipes.Settings)) recipes.Settings {
	s.mu.Lock()
	fn(&s.prefs)
	prefs := s.prefs
	s.mu.Unlock()

	s.scope.Go(func(ctx context.Context) {
		if err := recipes.SaveSettings(ctx, s.settings, prefs); err != nil {
			s.logger.Error("save recipe settings", "error", err)
		}
	})
	return prefs
}

// publishItems runs on the delivery side.
func (s *Recipes) publishItems() {
	s.mu.Lock()
	if s.data == nil {
		s.mu.Unlock()
		return
	}
	s.items = recipes.Apply(recipes.Items(s.data.Recipes, s.data.Fulfillments), s.query)
	items := s.items
	s.mu.Unlock()
	s.events.Publish(Event{Kind: EventDataChanged, Payload: items})
}

// MissingProductIDs lists the stock-checked products of a recipe. The
// caller picks which of them to exclude from the shopping list.
func (s *Recipes) MissingProductIDs(recipeID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	return recipes.MissingProductIDs(recipeID, s.data.Positions, nil)
}

// Consume books out a recipe's ingredients.
func (s *Recipes) Consume(recipeID int64) error {
	return s.online(func(ctx context.Context) error {
		return s.gw.ConsumeRecipe(ctx, recipeID)
	})
}

// AddNotFulfilledProductsToShoppingList adds missing ingredients except
// excluded product ids.
func (s *Recipes) AddNotFulfilledProductsToShoppingList(recipeID int64, excluded []int64) error {
	return s.online(func(ctx context.Context) error {
		return s.gw.AddNotFulfilledProductsToShoppingList(ctx, recipeID, excluded)
	})
}

func (s *Recipes) Copy(recipeID int64) error {
	return s.online(func(ctx context.Context) error {
		_, err := s.gw.CopyRecipe(ctx, recipeID)
		return err
	})
}

func (s *Recipes) Delete(recipeID int64) error {
	return s.online(func(ctx context.Context) error {
		return s.gw.Delete(ctx, grocy.EntityRecipes, recipeID)
	})
}

// online refuses the action while offline. Otherwise it runs fn in the
// background and refreshes the list on success.
func (s *Recipes) online(fn func(ctx context.Context) error) error {
	if s.gw.Offline() {
		s.notify(s.message(msgOffline))
		return ErrOffline
	}
	s.scope.Go(func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			s.logger.Error("recipe action", "error", err)
			s.emit(s.message(grocy.UserMessage(err)))
			return
		}
		s.Download(false)
	})
	return nil
}
