package program

import (
	"context"
	"sort"
	"sync"
)

// Store persists programs and their activities.
type Store interface {
	CreateProgram(ctx context.Context, p Program) error
	GetProgram(ctx context.Context, id string) (Program, error)
	ListPrograms(ctx context.Context, limit int) ([]Program, error)
	UpdateProgram(ctx context.Context, p Program) error
	DeleteProgram(ctx context.Context, id string) error

	CreateActivity(ctx context.Context, a Activity) error
	GetActivity(ctx context.Context, id string) (Activity, error)
	ListActivities(ctx context.Context, programID string) ([]Activity, error)
	UpdateActivity(ctx context.Context, a Activity) error
	DeleteActivity(ctx context.Context, id string) error
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu         sync.RWMutex
	programs   map[string]Program
	activities map[string]Activity
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		programs:   make(map[string]Program),
		activities: make(map[string]Activity),
	}
}

func (s *InMemory) CreateProgram(ctx context.Context, p Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[p.ID] = p
	return nil
}

func (s *InMemory) GetProgram(ctx context.Context, id string) (Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[id]
	if !ok {
		return Program{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemory) ListPrograms(ctx context.Context, limit int) ([]Program, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Program, 0, len(s.programs))
	for _, p := range s.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) UpdateProgram(ctx context.Context, p Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[p.ID]; !ok {
		return ErrNotFound
	}
	s.programs[p.ID] = p
	return nil
}

func (s *InMemory) DeleteProgram(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[id]; !ok {
		return ErrNotFound
	}
	delete(s.programs, id)
	for aid, a := range s.activities {
		if a.ProgramID == id {
			delete(s.activities, aid)
		}
	}
	return nil
}

func (s *InMemory) CreateActivity(ctx context.Context, a Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[a.ProgramID]; !ok {
		return ErrNotFound
	}
	s.activities[a.ID] = a
	return nil
}

func (s *InMemory) GetActivity(ctx context.Context, id string) (Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return a, nil
}

func (s *InMemory) ListActivities(ctx context.Context, programID string) ([]Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Activity, 0)
	for _, a := range s.activities {
		if a.ProgramID == programID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdateActivity(ctx context.Context, a Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; !ok {
		return ErrActivityNotFound
	}
	s.activities[a.ID] = a
	return nil
}

func (s *InMemory) DeleteActivity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return ErrActivityNotFound
	}
	delete(s.activities, id)
	return nil
}
