package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
)

// ProgramWallets exposes the program fee ledger backed by this pool.
func (s *Store) ProgramWallets() wallet.ProgramLedger { return (*programWalletStore)(s) }

type programWalletStore Store

var _ wallet.ProgramLedger = (*programWalletStore)(nil)

const programWalletColumns = `program_id, balance, settled, settled_at, created_at, updated_at`

func scanProgramWallet(row interface{ Scan(...any) error }) (wallet.ProgramWallet, error) {
	var w wallet.ProgramWallet
	var settledAt sql.NullTime
	err := row.Scan(&w.ProgramID, &w.Balance, &w.Settled, &settledAt, &w.CreatedAt, &w.UpdatedAt)
	if settledAt.Valid {
		t := settledAt.Time
		w.SettledAt = &t
	}
	return w, err
}

func (s *programWalletStore) ProgramBalance(ctx context.Context, programID string) (wallet.ProgramWallet, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+programWalletColumns+` from program_wallets where program_id = $1
	`, programID)
	w, err := scanProgramWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.ProgramWallet{ProgramID: programID}, nil
	}
	return w, err
}

// CollectFee upserts the program wallet and applies the fee at most once per
// idempotency key. A settled wallet rejects further fees.
func (s *programWalletStore) CollectFee(ctx context.Context, programID, userID string, amount float64, idemKey string) (wallet.ProgramWallet, error) {
	if amount <= 0 {
		return wallet.ProgramWallet{}, wallet.ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wallet.ProgramWallet{}, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		insert into program_wallets (program_id, balance, settled, created_at, updated_at)
		values ($1, 0, false, $2, $2)
		on conflict (program_id) do nothing
	`, programID, now); err != nil {
		return wallet.ProgramWallet{}, err
	}

	var settled bool
	if err := tx.QueryRowContext(ctx, `
		select settled from program_wallets where program_id = $1 for update
	`, programID).Scan(&settled); err != nil {
		return wallet.ProgramWallet{}, err
	}
	if settled {
		return wallet.ProgramWallet{}, wallet.ErrSettled
	}

	if idemKey != "" {
		res, err := tx.ExecContext(ctx, `
			insert into program_wallet_credits (id, idempotency_key, program_id, user_id, amount, created_at)
			values ($1, $2, $3, $4, $5, $6)
			on conflict (idempotency_key) do nothing
		`, ids.New(), idemKey, programID, userID, amount, now)
		if err != nil {
			return wallet.ProgramWallet{}, err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return wallet.ProgramWallet{}, err
		}
		if inserted == 0 {
			row := tx.QueryRowContext(ctx, `
				select `+programWalletColumns+` from program_wallets where program_id = $1
			`, programID)
			w, err := scanProgramWallet(row)
			if err != nil {
				return wallet.ProgramWallet{}, err
			}
			return w, tx.Commit()
		}
	}

	row := tx.QueryRowContext(ctx, `
		update program_wallets set balance = balance + $2, updated_at = now()
		where program_id = $1
		returning `+programWalletColumns+`
	`, programID, amount)
	w, err := scanProgramWallet(row)
	if err != nil {
		return wallet.ProgramWallet{}, err
	}
	if err := tx.Commit(); err != nil {
		return wallet.ProgramWallet{}, err
	}
	return w, nil
}

// Settle closes the wallet with a conditional update, so a repeat settlement
// or a race resolves to one winner.
func (s *programWalletStore) Settle(ctx context.Context, programID string) (wallet.ProgramWallet, error) {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		insert into program_wallets (program_id, balance, settled, created_at, updated_at)
		values ($1, 0, false, $2, $2)
		on conflict (program_id) do nothing
	`, programID, now); err != nil {
		return wallet.ProgramWallet{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		update program_wallets set settled = true, settled_at = now(), updated_at = now()
		where program_id = $1 and not settled
		returning `+programWalletColumns+`
	`, programID)
	w, err := scanProgramWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.ProgramWallet{}, wallet.ErrSettled
	}
	return w, err
}
