// Package registration records which users joined which programs and
// activities. At most one registration exists per user and target; the store
// enforces that atomically so racing requests degrade to a duplicate error
// rather than a second row.
package registration

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Kind distinguishes the registered target.
type Kind string

const (
	KindProgram  Kind = "PROGRAM"
	KindActivity Kind = "ACTIVITY"
)

// Registration joins a user to a program or activity.
type Registration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TargetID  string    `json:"target_id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound  = errors.New("registration not found")
	ErrDuplicate = errors.New("registration already exists")
)

// Store persists registrations. Create must enforce the (user, target)
// uniqueness atomically.
type Store interface {
	Create(ctx context.Context, r Registration) error
	Get(ctx context.Context, id string) (Registration, error)
	// List returns registrations for a target; an empty targetID lists all.
	List(ctx context.Context, targetID string) ([]Registration, error)
	Exists(ctx context.Context, userID, targetID string) (bool, error)
	CountForTarget(ctx context.Context, targetID string) (int, error)
}

// InMemory implements Store with a single mutex guarding both indexes, so the
// uniqueness check and the insert are one critical section.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]Registration
	byPair map[string]string // userID+"\x00"+targetID -> registration id
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]Registration),
		byPair: make(map[string]string),
	}
}

func pairKey(userID, targetID string) string {
	return userID + "\x00" + targetID
}

func (s *InMemory) Create(ctx context.Context, r Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(r.UserID, r.TargetID)
	if _, ok := s.byPair[key]; ok {
		return ErrDuplicate
	}
	s.byID[r.ID] = r
	s.byPair[key] = r.ID
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return Registration{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemory) List(ctx context.Context, targetID string) ([]Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Registration, 0)
	for _, r := range s.byID {
		if targetID == "" || r.TargetID == targetID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Exists(ctx context.Context, userID, targetID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPair[pairKey(userID, targetID)]
	return ok, nil
}

func (s *InMemory) CountForTarget(ctx context.Context, targetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.byID {
		if r.TargetID == targetID {
			n++
		}
	}
	return n, nil
}
