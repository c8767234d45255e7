package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
)

// Ledger defines the gem wallet operations.
type Ledger interface {
	CreateWallet(ctx context.Context, userID string) (Wallet, error)
	Balance(ctx context.Context, userID string) (Wallet, error)
	CreditGems(ctx context.Context, userID string, gems int64, idemKey string) (Wallet, error)
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
}

// InMemory implements Ledger with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	wallets map[string]*Wallet
	idem    map[string]Credit // idemKey -> applied credit
}

// NewInMemory creates a fresh wallet ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		wallets: make(map[string]*Wallet),
		idem:    make(map[string]Credit),
	}
}

func (s *InMemory) CreateWallet(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[userID]; ok {
		return Wallet{}, ErrExists
	}
	now := time.Now().UTC()
	w := &Wallet{UserID: userID, Gems: 0, CreatedAt: now, UpdatedAt: now}
	s.wallets[userID] = w
	return *w, nil
}

func (s *InMemory) Balance(ctx context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return *w, nil
}

// CreditGems applies one credit at most once per idempotency key. A replay
// with a key that was already applied returns the wallet unchanged.
func (s *InMemory) CreditGems(ctx context.Context, userID string, gems int64, idemKey string) (Wallet, error) {
	if gems <= 0 {
		return Wallet{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if idemKey != "" {
		if _, ok := s.idem[idemKey]; ok {
			w, ok := s.wallets[userID]
			if !ok {
				return Wallet{}, ErrNotFound
			}
			return *w, nil
		}
	}

	w, ok := s.wallets[userID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	w.Gems += gems
	w.UpdatedAt = time.Now().UTC()

	if idemKey != "" {
		s.idem[idemKey] = Credit{
			ID:             ids.New(),
			UserID:         userID,
			Gems:           gems,
			IdempotencyKey: idemKey,
			CreatedAt:      w.UpdatedAt,
		}
	}
	return *w, nil
}

func (s *InMemory) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.wallets))
	for _, w := range s.wallets {
		entries = append(entries, Entry{UserID: w.UserID, Gems: w.Gems})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Gems != entries[j].Gems {
			return entries[i].Gems > entries[j].Gems
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
