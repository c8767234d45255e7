package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// Service registers users for programs and activities.
type Service struct {
	store Store
	guard *workflow.Guard
}

// NewService wires a registration service.
func NewService(store Store, guard *workflow.Guard) *Service {
	return &Service{store: store, guard: guard}
}

// Register creates a registration. The guard gives a fast duplicate check;
// the store's atomic uniqueness remains authoritative, so a lost race still
// surfaces as workflow.ErrDuplicate.
func (s *Service) Register(ctx context.Context, userID, targetID string, kind Kind) (Registration, error) {
	if err := s.guard.CheckRegistration(ctx, userID, targetID); err != nil {
		return Registration{}, err
	}
	r := Registration{
		ID:        ids.New(),
		UserID:    userID,
		TargetID:  targetID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Registration{}, workflow.ErrDuplicate
		}
		return Registration{}, fmt.Errorf("create registration: %w", err)
	}
	return r, nil
}

// Get returns one registration.
func (s *Service) Get(ctx context.Context, id string) (Registration, error) {
	return s.store.Get(ctx, id)
}

// List returns the registrations of a target.
func (s *Service) List(ctx context.Context, targetID string) ([]Registration, error) {
	return s.store.List(ctx, targetID)
}
