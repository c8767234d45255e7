package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/auth"
	"github.com/Caizin-Private/QuestEvent/internal/ids"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// ErrInvalidCredentials is returned by Authenticate for a wrong email or
// password. The two cases are indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service manages accounts and their wallets.
type Service struct {
	store   Store
	guard   *workflow.Guard
	wallets wallet.Ledger
}

// NewService wires a user service.
func NewService(store Store, guard *workflow.Guard, wallets wallet.Ledger) *Service {
	return &Service{store: store, guard: guard, wallets: wallets}
}

// Create validates the payload, stores the account and provisions an empty
// wallet for it.
func (s *Service) Create(ctx context.Context, payload workflow.UserPayload) (User, error) {
	if err := s.guard.ValidatePayload(payload); err != nil {
		return User{}, err
	}
	if _, err := auth.ParseRole(payload.Role); err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := User{
		ID:           ids.New(),
		Name:         payload.Name,
		Email:        payload.Email,
		Department:   payload.Department,
		Gender:       payload.Gender,
		Role:         payload.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, workflow.ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	if _, err := s.wallets.CreateWallet(ctx, u.ID); err != nil && !errors.Is(err, wallet.ErrExists) {
		return User{}, fmt.Errorf("create wallet: %w", err)
	}
	return u, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.Get(ctx, id)
}

// List returns users up to limit.
func (s *Service) List(ctx context.Context, limit int) ([]User, error) {
	return s.store.List(ctx, limit)
}

// UpdateProfile rewrites the self-service profile fields. Empty values keep
// the current ones. Role and password are managed through their own paths.
func (s *Service) UpdateProfile(ctx context.Context, id, name, email, department, gender string) (User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if department != "" {
		u.Department = department
	}
	if gender != "" {
		u.Gender = gender
	}
	u.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return User{}, workflow.ErrDuplicate
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// SetRole changes a user's role. The HTTP layer restricts this to the owner.
func (s *Service) SetRole(ctx context.Context, id, role string) (User, error) {
	if _, err := auth.ParseRole(role); err != nil {
		return User{}, err
	}
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, u); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Authenticate verifies an email and password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
