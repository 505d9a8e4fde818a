package screen

import (
	"context"
	"sync"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/masterdata"
	"github.com/dukerupert/grocysync/internal/repository"
)

// MasterData backs the location and quantity unit pickers and the delete
// confirmation shared by all master records.
type MasterData struct {
	base
	repo    *repository.MasterDataRepository
	deleter masterdata.Deleter

	mu       sync.Mutex
	data     *repository.MasterData
	selected masterdata.Ref
}

func NewMasterData(d Deps, repo *repository.MasterDataRepository, deleter masterdata.Deleter) *MasterData {
	return &MasterData{
		base:    newBase(d, "master_data"),
		repo:    repo,
		deleter: deleter,
	}
}

func (s *MasterData) Load() {
	s.repo.Load(s.scope, func(d *repository.MasterData, err error) {
		if err != nil {
			s.logger.Error("load master data", "error", err)
			s.events.Publish(s.message(err.Error()))
			return
		}
		s.mu.Lock()
		s.data = d
		s.mu.Unlock()
		s.events.Publish(Event{Kind: EventDataChanged, Payload: d})
	})
}

func (s *MasterData) Data() *repository.MasterData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Select marks ref as the current choice.
func (s *MasterData) Select(ref masterdata.Ref) {
	s.mu.Lock()
	s.selected = ref
	s.mu.Unlock()
	s.notify(Event{Kind: EventSelected, Payload: ref})
}

func (s *MasterData) Selected() masterdata.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// AskDelete publishes the confirmation prompt for ref.
func (s *MasterData) AskDelete(ref masterdata.Ref) {
	s.notify(Event{Kind: EventConfirmDelete, Message: ref.Question(), Payload: ref})
}

// Delete removes ref through the deleter and refreshes the affected table.
func (s *MasterData) Delete(ref masterdata.Ref) error {
	if s.gw != nil && s.gw.Offline() {
		s.notify(s.message(msgOffline))
		return ErrOffline
	}
	s.scope.Go(func(ctx context.Context) {
		if err := s.deleter.Delete(ctx, ref); err != nil {
			s.logger.Error("delete master record", "kind", ref.Kind, "id", ref.ID, "error", err)
			s.emit(s.message(grocy.UserMessage(err)))
			return
		}
		if s.gw != nil {
			if _, err := s.gw.FetchIfStale(ctx, ref.Kind.Entity(), false); err != nil {
				s.logger.Warn("refresh after delete", "entity", ref.Kind.Entity(), "error", err)
			}
		}
		s.Load()
	})
	return nil
}
