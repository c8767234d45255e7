package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
)

// ProgramWallet holds the registration fees collected for one program until
// the host settles it. Fees are money amounts, not gems.
type ProgramWallet struct {
	ProgramID string     `json:"program_id"`
	Balance   float64    `json:"balance"`
	Settled   bool       `json:"settled"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProgramCredit records one collected registration fee.
type ProgramCredit struct {
	ID             string    `json:"id"`
	ProgramID      string    `json:"program_id"`
	UserID         string    `json:"user_id"`
	Amount         float64   `json:"amount"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ErrSettled rejects fee collection or a repeat settlement on a settled
// program wallet.
var ErrSettled = errors.New("program wallet already settled")

// ProgramLedger defines the per-program fee ledger. CollectFee creates the
// wallet lazily so programs without fees never carry one.
type ProgramLedger interface {
	ProgramBalance(ctx context.Context, programID string) (ProgramWallet, error)
	CollectFee(ctx context.Context, programID, userID string, amount float64, idemKey string) (ProgramWallet, error)
	Settle(ctx context.Context, programID string) (ProgramWallet, error)
}

// InMemoryProgram implements ProgramLedger with in-process concurrency
// safety.
type InMemoryProgram struct {
	mu      sync.RWMutex
	wallets map[string]*ProgramWallet
	idem    map[string]ProgramCredit
}

// NewInMemoryProgram creates a fresh program fee ledger.
func NewInMemoryProgram() *InMemoryProgram {
	return &InMemoryProgram{
		wallets: make(map[string]*ProgramWallet),
		idem:    make(map[string]ProgramCredit),
	}
}

// ProgramBalance returns the program's fee wallet. A program that never
// collected a fee reports an empty, unsettled wallet.
func (s *InMemoryProgram) ProgramBalance(ctx context.Context, programID string) (ProgramWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.wallets[programID]; ok {
		return *w, nil
	}
	return ProgramWallet{ProgramID: programID}, nil
}

// CollectFee adds one registration fee at most once per idempotency key.
func (s *InMemoryProgram) CollectFee(ctx context.Context, programID, userID string, amount float64, idemKey string) (ProgramWallet, error) {
	if amount <= 0 {
		return ProgramWallet{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[programID]
	if !ok {
		now := time.Now().UTC()
		w = &ProgramWallet{ProgramID: programID, CreatedAt: now, UpdatedAt: now}
		s.wallets[programID] = w
	}
	if w.Settled {
		return ProgramWallet{}, ErrSettled
	}

	if idemKey != "" {
		if _, applied := s.idem[idemKey]; applied {
			return *w, nil
		}
	}
	w.Balance += amount
	w.UpdatedAt = time.Now().UTC()
	if idemKey != "" {
		s.idem[idemKey] = ProgramCredit{
			ID:             ids.New(),
			ProgramID:      programID,
			UserID:         userID,
			Amount:         amount,
			IdempotencyKey: idemKey,
			CreatedAt:      w.UpdatedAt,
		}
	}
	return *w, nil
}

// Settle closes the program wallet. It succeeds exactly once; a settled
// wallet rejects both further fees and a repeat settlement.
func (s *InMemoryProgram) Settle(ctx context.Context, programID string) (ProgramWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[programID]
	if !ok {
		now := time.Now().UTC()
		w = &ProgramWallet{ProgramID: programID, CreatedAt: now, UpdatedAt: now}
		s.wallets[programID] = w
	}
	if w.Settled {
		return ProgramWallet{}, ErrSettled
	}
	now := time.Now().UTC()
	w.Settled = true
	w.SettledAt = &now
	w.UpdatedAt = now
	return *w, nil
}
