package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Caizin-Private/QuestEvent/internal/registration"
)

// Registrations exposes the registration store backed by this pool.
func (s *Store) Registrations() registration.Store { return (*registrationStore)(s) }

type registrationStore Store

var _ registration.Store = (*registrationStore)(nil)

func (s *registrationStore) Create(ctx context.Context, r registration.Registration) error {
	_, err := s.db.ExecContext(ctx, `
		insert into registrations (id, user_id, target_id, kind, created_at)
		values ($1, $2, $3, $4, $5)
	`, r.ID, r.UserID, r.TargetID, r.Kind, r.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return registration.ErrDuplicate
	}
	return err
}

func (s *registrationStore) Get(ctx context.Context, id string) (registration.Registration, error) {
	var r registration.Registration
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, target_id, kind, created_at from registrations where id = $1
	`, id).Scan(&r.ID, &r.UserID, &r.TargetID, &r.Kind, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registration.Registration{}, registration.ErrNotFound
	}
	return r, err
}

func (s *registrationStore) List(ctx context.Context, targetID string) ([]registration.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, target_id, kind, created_at
		from registrations where ($1 = '' or target_id = $1) order by created_at asc
	`, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registration.Registration
	for rows.Next() {
		var r registration.Registration
		if err := rows.Scan(&r.ID, &r.UserID, &r.TargetID, &r.Kind, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *registrationStore) Exists(ctx context.Context, userID, targetID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from registrations where user_id = $1 and target_id = $2)
	`, userID, targetID).Scan(&exists)
	return exists, err
}

func (s *registrationStore) CountForTarget(ctx context.Context, targetID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from registrations where target_id = $1
	`, targetID).Scan(&n)
	return n, err
}
