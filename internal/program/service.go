// Package program manages hosted programs and their activities.
package program

import (
	"context"
	"fmt"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// RegistrationCounter reports how many registrations a target has. Program
// deletion is blocked while registrations exist.
type RegistrationCounter interface {
	CountForTarget(ctx context.Context, targetID string) (int, error)
}

// Service applies the workflow rules over a Store.
type Service struct {
	store Store
	guard *workflow.Guard
	regs  RegistrationCounter
}

// NewService wires a program service.
func NewService(store Store, guard *workflow.Guard, regs RegistrationCounter) *Service {
	return &Service{store: store, guard: guard, regs: regs}
}

// Create validates the payload and persists a new active program.
func (s *Service) Create(ctx context.Context, payload workflow.ProgramPayload) (Program, error) {
	if err := s.guard.ValidatePayload(payload); err != nil {
		return Program{}, err
	}
	now := time.Now().UTC()
	p := Program{
		ID:              ids.New(),
		HostUserID:      payload.HostUserID,
		JudgeUserID:     payload.JudgeUserID,
		Title:           payload.Title,
		Description:     payload.Description,
		Department:      payload.Department,
		StartDate:       payload.StartDate,
		EndDate:         payload.EndDate,
		RegistrationFee: payload.RegistrationFee,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateProgram(ctx, p); err != nil {
		return Program{}, fmt.Errorf("create program: %w", err)
	}
	return p, nil
}

// Get returns one program.
func (s *Service) Get(ctx context.Context, id string) (Program, error) {
	return s.store.GetProgram(ctx, id)
}

// List returns programs up to limit.
func (s *Service) List(ctx context.Context, limit int) ([]Program, error) {
	return s.store.ListPrograms(ctx, limit)
}

// Update validates the payload and rewrites the mutable fields. The hosting
// user and assigned judge are fixed at creation and not rewritten here.
func (s *Service) Update(ctx context.Context, id string, payload workflow.ProgramPayload) (Program, error) {
	if err := s.guard.ValidatePayload(payload); err != nil {
		return Program{}, err
	}
	p, err := s.store.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}
	p.Title = payload.Title
	p.Description = payload.Description
	p.Department = payload.Department
	p.StartDate = payload.StartDate
	p.EndDate = payload.EndDate
	p.RegistrationFee = payload.RegistrationFee
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateProgram(ctx, p); err != nil {
		return Program{}, fmt.Errorf("update program: %w", err)
	}
	return p, nil
}

// Delete removes a program. Programs with registrations cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetProgram(ctx, id); err != nil {
		return err
	}
	count, err := s.regs.CountForTarget(ctx, id)
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if err := s.guard.CheckProgramDeletable(count > 0); err != nil {
		return err
	}
	return s.store.DeleteProgram(ctx, id)
}

// CreateActivity validates the payload and adds an activity to a program.
func (s *Service) CreateActivity(ctx context.Context, programID string, payload workflow.ActivityPayload) (Activity, error) {
	if err := s.guard.ValidatePayload(payload); err != nil {
		return Activity{}, err
	}
	if _, err := s.store.GetProgram(ctx, programID); err != nil {
		return Activity{}, err
	}
	a := Activity{
		ID:              ids.New(),
		ProgramID:       programID,
		Name:            payload.Name,
		Description:     payload.Description,
		DurationMinutes: payload.DurationMinutes,
		Rulebook:        payload.Rulebook,
		RewardGems:      payload.RewardGems,
		IsCompulsory:    payload.IsCompulsory,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.CreateActivity(ctx, a); err != nil {
		return Activity{}, fmt.Errorf("create activity: %w", err)
	}
	return a, nil
}

// GetActivity returns one activity.
func (s *Service) GetActivity(ctx context.Context, id string) (Activity, error) {
	return s.store.GetActivity(ctx, id)
}

// ListActivities returns the activities of a program.
func (s *Service) ListActivities(ctx context.Context, programID string) ([]Activity, error) {
	if _, err := s.store.GetProgram(ctx, programID); err != nil {
		return nil, err
	}
	return s.store.ListActivities(ctx, programID)
}

// UpdateActivity validates the payload and rewrites the activity.
func (s *Service) UpdateActivity(ctx context.Context, id string, payload workflow.ActivityPayload) (Activity, error) {
	if err := s.guard.ValidatePayload(payload); err != nil {
		return Activity{}, err
	}
	a, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	a.Name = payload.Name
	a.Description = payload.Description
	a.DurationMinutes = payload.DurationMinutes
	a.Rulebook = payload.Rulebook
	a.RewardGems = payload.RewardGems
	a.IsCompulsory = payload.IsCompulsory
	if err := s.store.UpdateActivity(ctx, a); err != nil {
		return Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return a, nil
}

// DeleteActivity removes an activity.
func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	return s.store.DeleteActivity(ctx, id)
}
