package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"breakout_bot/internal/models"
)

// Store is durable CRUD for positions. MarkClosed must only succeed for a record
// that is still OPEN, returning models.ErrNotFound otherwise.
type Store interface {
	Create(ctx context.Context, p *models.Position) error
	Get(ctx context.Context, id string) (*models.Position, error)
	OpenBySymbol(ctx context.Context, symbol string) (*models.Position, error)
	ListOpen(ctx context.Context) ([]*models.Position, error)
	MarkClosed(ctx context.Context, p *models.Position) error
}

// MemoryStore keeps positions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*models.Position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*models.Position)}
}

func (s *MemoryStore) Create(_ context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("MemoryStore.Create: id %s exists", p.ID)
	}
	for _, cur := range s.byID {
		if cur.Symbol == p.Symbol && cur.IsOpen() {
			return fmt.Errorf("MemoryStore.Create: %w: %s", models.ErrPositionExists, p.Symbol)
		}
	}
	s.byID[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("MemoryStore.Get %s: %w", id, models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) OpenBySymbol(_ context.Context, symbol string) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.byID {
		if p.Symbol == symbol && p.IsOpen() {
			return p.Clone(), nil
		}
	}
	return nil, fmt.Errorf("MemoryStore.OpenBySymbol %s: %w", symbol, models.ErrNotFound)
}

func (s *MemoryStore) ListOpen(_ context.Context) ([]*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Position, 0, len(s.byID))
	for _, p := range s.byID {
		if p.IsOpen() {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out, nil
}

func (s *MemoryStore) MarkClosed(_ context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[p.ID]
	if !ok || !cur.IsOpen() {
		return fmt.Errorf("MemoryStore.MarkClosed %s: %w", p.ID, models.ErrNotFound)
	}
	s.byID[p.ID] = p.Clone()
	return nil
}
