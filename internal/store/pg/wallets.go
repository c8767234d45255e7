package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
)

// Wallets exposes the gem ledger backed by this pool.
func (s *Store) Wallets() wallet.Ledger { return (*walletStore)(s) }

type walletStore Store

var _ wallet.Ledger = (*walletStore)(nil)

func (s *walletStore) CreateWallet(ctx context.Context, userID string) (wallet.Wallet, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into wallets (user_id, gems, created_at, updated_at)
		values ($1, 0, $2, $2)
	`, userID, now)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return wallet.Wallet{}, wallet.ErrExists
	}
	if err != nil {
		return wallet.Wallet{}, err
	}
	return wallet.Wallet{UserID: userID, Gems: 0, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *walletStore) Balance(ctx context.Context, userID string) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := s.db.QueryRowContext(ctx, `
		select user_id, gems, created_at, updated_at from wallets where user_id = $1
	`, userID).Scan(&w.UserID, &w.Gems, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return w, err
}

// CreditGems applies an atomic increment guarded by an idempotency record.
// Replaying a key that is already recorded leaves the balance untouched and
// returns the current wallet.
func (s *walletStore) CreditGems(ctx context.Context, userID string, gems int64, idemKey string) (wallet.Wallet, error) {
	if gems <= 0 {
		return wallet.Wallet{}, wallet.ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wallet.Wallet{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if idemKey != "" {
		res, err := tx.ExecContext(ctx, `
			insert into wallet_credits (id, idempotency_key, user_id, gems, created_at)
			values ($1, $2, $3, $4, $5)
			on conflict (idempotency_key) do nothing
		`, ids.New(), idemKey, userID, gems, time.Now().UTC())
		if err != nil {
			return wallet.Wallet{}, err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return wallet.Wallet{}, err
		}
		if inserted == 0 {
			// Replay: the credit was already applied.
			var w wallet.Wallet
			err := tx.QueryRowContext(ctx, `
				select user_id, gems, created_at, updated_at from wallets where user_id = $1
			`, userID).Scan(&w.UserID, &w.Gems, &w.CreatedAt, &w.UpdatedAt)
			if errors.Is(err, sql.ErrNoRows) {
				return wallet.Wallet{}, wallet.ErrNotFound
			}
			if err != nil {
				return wallet.Wallet{}, err
			}
			return w, tx.Commit()
		}
	}

	var w wallet.Wallet
	err = tx.QueryRowContext(ctx, `
		update wallets set gems = gems + $2, updated_at = now()
		where user_id = $1
		returning user_id, gems, created_at, updated_at
	`, userID, gems).Scan(&w.UserID, &w.Gems, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	if err != nil {
		return wallet.Wallet{}, err
	}
	if err := tx.Commit(); err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *walletStore) Leaderboard(ctx context.Context, limit int) ([]wallet.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select user_id, gems from wallets order by gems desc, user_id asc limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wallet.Entry
	rank := 0
	for rows.Next() {
		var e wallet.Entry
		if err := rows.Scan(&e.UserID, &e.Gems); err != nil {
			return nil, err
		}
		rank++
		e.Rank = rank
		out = append(out, e)
	}
	return out, rows.Err()
}
