package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Caizin-Private/QuestEvent/internal/program"
)

// Programs exposes the program store backed by this pool.
func (s *Store) Programs() program.Store { return (*programStore)(s) }

type programStore Store

var _ program.Store = (*programStore)(nil)

const programColumns = `id, host_user_id, coalesce(judge_user_id,''), title, coalesce(description,''),
	coalesce(department,''), start_date, end_date, registration_fee, status, created_at, updated_at`

func scanProgram(row interface{ Scan(...any) error }) (program.Program, error) {
	var p program.Program
	err := row.Scan(&p.ID, &p.HostUserID, &p.JudgeUserID, &p.Title, &p.Description,
		&p.Department, &p.StartDate, &p.EndDate, &p.RegistrationFee, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *programStore) CreateProgram(ctx context.Context, p program.Program) error {
	_, err := s.db.ExecContext(ctx, `
		insert into programs (id, host_user_id, judge_user_id, title, description, department,
			start_date, end_date, registration_fee, status, created_at, updated_at)
		values ($1, $2, nullif($3,''), $4, nullif($5,''), nullif($6,''), $7, $8, $9, $10, $11, $12)
	`, p.ID, p.HostUserID, p.JudgeUserID, p.Title, p.Description, p.Department,
		p.StartDate, p.EndDate, p.RegistrationFee, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *programStore) GetProgram(ctx context.Context, id string) (program.Program, error) {
	row := s.db.QueryRowContext(ctx, `select `+programColumns+` from programs where id = $1`, id)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return program.Program{}, program.ErrNotFound
	}
	return p, err
}

func (s *programStore) ListPrograms(ctx context.Context, limit int) ([]program.Program, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `select `+programColumns+` from programs order by created_at desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []program.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *programStore) UpdateProgram(ctx context.Context, p program.Program) error {
	res, err := s.db.ExecContext(ctx, `
		update programs
		set title = $2, description = nullif($3,''), department = nullif($4,''),
			start_date = $5, end_date = $6, registration_fee = $7, status = $8, updated_at = $9
		where id = $1
	`, p.ID, p.Title, p.Description, p.Department, p.StartDate, p.EndDate, p.RegistrationFee, p.Status, p.UpdatedAt)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return program.ErrNotFound
	}
	return nil
}

func (s *programStore) DeleteProgram(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from activities where program_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from programs where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return program.ErrNotFound
	}
	return tx.Commit()
}

const activityColumns = `id, program_id, name, coalesce(description,''), duration_minutes,
	coalesce(rulebook,''), reward_gems, is_compulsory, created_at`

func scanActivity(row interface{ Scan(...any) error }) (program.Activity, error) {
	var a program.Activity
	err := row.Scan(&a.ID, &a.ProgramID, &a.Name, &a.Description, &a.DurationMinutes,
		&a.Rulebook, &a.RewardGems, &a.IsCompulsory, &a.CreatedAt)
	return a, err
}

func (s *programStore) CreateActivity(ctx context.Context, a program.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		insert into activities (id, program_id, name, description, duration_minutes, rulebook,
			reward_gems, is_compulsory, created_at)
		values ($1, $2, $3, nullif($4,''), $5, nullif($6,''), $7, $8, $9)
	`, a.ID, a.ProgramID, a.Name, a.Description, a.DurationMinutes, a.Rulebook,
		a.RewardGems, a.IsCompulsory, a.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
		return program.ErrNotFound
	}
	return err
}

func (s *programStore) GetActivity(ctx context.Context, id string) (program.Activity, error) {
	row := s.db.QueryRowContext(ctx, `select `+activityColumns+` from activities where id = $1`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return program.Activity{}, program.ErrActivityNotFound
	}
	return a, err
}

func (s *programStore) ListActivities(ctx context.Context, programID string) ([]program.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `select `+activityColumns+` from activities where program_id = $1 order by created_at asc`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []program.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *programStore) UpdateActivity(ctx context.Context, a program.Activity) error {
	res, err := s.db.ExecContext(ctx, `
		update activities
		set name = $2, description = nullif($3,''), duration_minutes = $4, rulebook = nullif($5,''),
			reward_gems = $6, is_compulsory = $7
		where id = $1
	`, a.ID, a.Name, a.Description, a.DurationMinutes, a.Rulebook, a.RewardGems, a.IsCompulsory)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return program.ErrActivityNotFound
	}
	return nil
}

func (s *programStore) DeleteActivity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from activities where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return program.ErrActivityNotFound
	}
	return nil
}
