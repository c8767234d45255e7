package wallet

import (
	"errors"
	"time"
)

// Wallet holds a user's gem balance. Gems are whole units, no fractions.
type Wallet struct {
	UserID    string    `json:"user_id"`
	Gems      int64     `json:"gems"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credit records one applied gem credit.
type Credit struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Gems           int64     `json:"gems"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Entry is one leaderboard row.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Gems   int64  `json:"gems"`
}

var (
	ErrNotFound      = errors.New("wallet not found")
	ErrExists        = errors.New("wallet already exists")
	ErrInvalidAmount = errors.New("invalid amount (must be > 0)")
)
