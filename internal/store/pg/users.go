package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Caizin-Private/QuestEvent/internal/user"
)

// Users exposes the user store backed by this pool.
func (s *Store) Users() user.Store { return (*userStore)(s) }

type userStore Store

var _ user.Store = (*userStore)(nil)

const userColumns = `id, name, email, coalesce(department,''), coalesce(gender,''),
	role, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Department, &u.Gender,
		&u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *userStore) Create(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, name, email, department, gender, role, password_hash, created_at, updated_at)
		values ($1, $2, lower($3), nullif($4,''), nullif($5,''), $6, $7, $8, $9)
	`, u.ID, u.Name, u.Email, u.Department, u.Gender, u.Role, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return user.ErrEmailTaken
	}
	return err
}

func (s *userStore) Get(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email = lower($1)`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

func (s *userStore) List(ctx context.Context, limit int) ([]user.User, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at asc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *userStore) Update(ctx context.Context, u user.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set name = $2, email = lower($3), department = nullif($4,''), gender = nullif($5,''),
			role = $6, password_hash = $7, updated_at = $8
		where id = $1
	`, u.ID, u.Name, u.Email, u.Department, u.Gender, u.Role, u.PasswordHash, u.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return user.ErrEmailTaken
	}
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return user.ErrNotFound
	}
	return nil
}
