// Package memory provides an in-process implementation of storage.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iwvelando/revenue-forecast/internal/storage"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

var _ storage.Store = (*Store)(nil)

// Store keeps everything in maps guarded by a RWMutex. Values are copied on
// the way in and out.
type Store struct {
	mu       sync.RWMutex
	segments map[string]projection.Segment
	order    []string
	models   map[string]storage.Model
	now      func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		segments: make(map[string]projection.Segment),
		models:   make(map[string]storage.Model),
		now:      time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateSegment(ctx context.Context, segment *projection.Segment) error {
	if err := storage.PrepareSegment(segment); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.segments[segment.ID]; exists {
		return fmt.Errorf("%w: segment id %s", storage.ErrDuplicateKey, segment.ID)
	}
	if s.segmentNameTaken(segment.Name, "") {
		return fmt.Errorf("%w: segment %q", storage.ErrDuplicateKey, segment.Name)
	}
	s.segments[segment.ID] = storage.CloneSegment(*segment)
	s.order = append(s.order, segment.ID)
	return nil
}

func (s *Store) GetSegment(ctx context.Context, id string) (*projection.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segment, ok := s.segments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := storage.CloneSegment(segment)
	return &clone, nil
}

func (s *Store) ListSegments(ctx context.Context) ([]projection.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segments := make([]projection.Segment, 0, len(s.order))
	for _, id := range s.order {
		segments = append(segments, storage.CloneSegment(s.segments[id]))
	}
	return segments, nil
}

func (s *Store) UpdateSegment(ctx context.Context, segment *projection.Segment) error {
	if segment == nil || segment.ID == "" {
		return fmt.Errorf("%w: segment id is required", storage.ErrInvalidInput)
	}
	if err := storage.PrepareSegment(segment); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[segment.ID]; !ok {
		return storage.ErrNotFound
	}
	if s.segmentNameTaken(segment.Name, segment.ID) {
		return fmt.Errorf("%w: segment %q", storage.ErrDuplicateKey, segment.Name)
	}
	s.segments[segment.ID] = storage.CloneSegment(*segment)
	return nil
}

func (s *Store) DeleteSegment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.segments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.segments, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ReplaceSegments(ctx context.Context, segments []projection.Segment) ([]projection.Segment, error) {
	prepared, err := storage.PrepareSegments(segments)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments = make(map[string]projection.Segment, len(prepared))
	s.order = make([]string, 0, len(prepared))
	for _, segment := range prepared {
		s.segments[segment.ID] = storage.CloneSegment(segment)
		s.order = append(s.order, segment.ID)
	}
	return prepared, nil
}

func (s *Store) SaveModel(ctx context.Context, model *storage.Model) error {
	if model == nil {
		return fmt.Errorf("%w: model is nil", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.models[model.ID]; ok && model.ID != "" {
		model.CreatedAt = existing.CreatedAt
	}
	if err := storage.PrepareModel(model, s.now()); err != nil {
		return err
	}
	key := storage.NameKey(model.Name)
	for id, existing := range s.models {
		if id != model.ID && storage.NameKey(existing.Name) == key {
			return fmt.Errorf("%w: model %q", storage.ErrDuplicateKey, model.Name)
		}
	}
	s.models[model.ID] = storage.CloneModel(*model)
	return nil
}

func (s *Store) GetModel(ctx context.Context, id string) (*storage.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, ok := s.models[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := storage.CloneModel(model)
	return &clone, nil
}

func (s *Store) ListModels(ctx context.Context) ([]storage.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	models := make([]storage.Model, 0, len(s.models))
	for _, model := range s.models {
		models = append(models, storage.CloneModel(model))
	}
	sort.Slice(models, func(i, j int) bool {
		if !models[i].UpdatedAt.Equal(models[j].UpdatedAt) {
			return models[i].UpdatedAt.After(models[j].UpdatedAt)
		}
		return models[i].ID < models[j].ID
	})
	return models, nil
}

func (s *Store) DeleteModel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.models, id)
	return nil
}

func (s *Store) segmentNameTaken(name, exceptID string) bool {
	key := storage.NameKey(name)
	for id, segment := range s.segments {
		if id != exceptID && storage.NameKey(segment.Name) == key {
			return true
		}
	}
	return false
}
