package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/ids"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
)

// Submissions exposes the submission store backed by this pool.
func (s *Store) Submissions() submission.Store { return (*submissionStore)(s) }

type submissionStore Store

var (
	_ submission.Store          = (*submissionStore)(nil)
	_ submission.AtomicReviewer = (*submissionStore)(nil)
)

const submissionColumns = `id, activity_id, program_id, user_id, coalesce(judge_user_id,''),
	submission_url, review_status, submitted_at, reviewed_at, coalesce(reviewed_by,''), awarded_gems`

func scanSubmission(row interface{ Scan(...any) error }) (submission.Submission, error) {
	var sub submission.Submission
	var reviewedAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.ActivityID, &sub.ProgramID, &sub.UserID, &sub.JudgeUserID,
		&sub.SubmissionURL, &sub.Status, &sub.SubmittedAt, &reviewedAt, &sub.ReviewedBy, &sub.AwardedGems)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}
	return sub, err
}

func (s *submissionStore) Create(ctx context.Context, sub submission.Submission) error {
	_, err := s.db.ExecContext(ctx, `
		insert into submissions (id, activity_id, program_id, user_id, judge_user_id,
			submission_url, review_status, submitted_at, awarded_gems)
		values ($1, $2, $3, $4, nullif($5,''), $6, $7, $8, 0)
	`, sub.ID, sub.ActivityID, sub.ProgramID, sub.UserID, sub.JudgeUserID,
		sub.SubmissionURL, sub.Status, sub.SubmittedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return submission.ErrDuplicate
	}
	return err
}

func (s *submissionStore) Get(ctx context.Context, id string) (submission.Submission, error) {
	row := s.db.QueryRowContext(ctx, `select `+submissionColumns+` from submissions where id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, submission.ErrNotFound
	}
	return sub, err
}

func (s *submissionStore) ListByStatus(ctx context.Context, status submission.Status, limit int) ([]submission.Submission, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+submissionColumns+` from submissions
		where review_status = $1 order by submitted_at asc limit $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func (s *submissionStore) ListByActivity(ctx context.Context, activityID string, limit int) ([]submission.Submission, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+submissionColumns+` from submissions
		where activity_id = $1 order by submitted_at asc limit $2
	`, activityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func (s *submissionStore) ListForJudge(ctx context.Context, judgeUserID string, limit int) ([]submission.Submission, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+submissionColumns+` from submissions
		where judge_user_id = $1 order by submitted_at asc limit $2
	`, judgeUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

func collectSubmissions(rows *sql.Rows) ([]submission.Submission, error) {
	var out []submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// MarkReviewed applies the review transition with a conditional update, so
// only one of two racing reviewers wins.
func (s *submissionStore) MarkReviewed(ctx context.Context, id, reviewedBy string, status submission.Status, awardedGems int64, reviewedAt time.Time) (submission.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		update submissions
		set review_status = $2, reviewed_by = $3, reviewed_at = $4, awarded_gems = $5
		where id = $1 and review_status = 'PENDING'
		returning `+submissionColumns+`
	`, id, status, reviewedBy, reviewedAt, awardedGems)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing submission from a lost race.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `select exists (select 1 from submissions where id = $1)`, id).Scan(&exists); err != nil {
			return submission.Submission{}, err
		}
		if !exists {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, submission.ErrAlreadyReviewed
	}
	return sub, err
}

// ReviewAndCredit runs the review transition and the reward credit in one
// transaction. Either the submission is reviewed and the wallet credited, or
// neither happens; the conditional update still arbitrates racing reviewers.
func (s *submissionStore) ReviewAndCredit(ctx context.Context, id, reviewedBy string, status submission.Status, awardedGems int64, reviewedAt time.Time, idemKey string) (submission.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return submission.Submission{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		update submissions
		set review_status = $2, reviewed_by = $3, reviewed_at = $4, awarded_gems = $5
		where id = $1 and review_status = 'PENDING'
		returning `+submissionColumns+`
	`, id, status, reviewedBy, reviewedAt, awardedGems)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `select exists (select 1 from submissions where id = $1)`, id).Scan(&exists); err != nil {
			return submission.Submission{}, err
		}
		if !exists {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, submission.ErrAlreadyReviewed
	}
	if err != nil {
		return submission.Submission{}, err
	}

	if status == submission.StatusApproved && awardedGems > 0 {
		res, err := tx.ExecContext(ctx, `
			insert into wallet_credits (id, idempotency_key, user_id, gems, created_at)
			values ($1, $2, $3, $4, now())
			on conflict (idempotency_key) do nothing
		`, ids.New(), idemKey, sub.UserID, awardedGems)
		if err != nil {
			return submission.Submission{}, err
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return submission.Submission{}, err
		}
		if inserted > 0 {
			res, err := tx.ExecContext(ctx, `
				update wallets set gems = gems + $2, updated_at = now() where user_id = $1
			`, sub.UserID, awardedGems)
			if err != nil {
				return submission.Submission{}, err
			}
			aff, err := res.RowsAffected()
			if err != nil {
				return submission.Submission{}, err
			}
			if aff == 0 {
				return submission.Submission{}, wallet.ErrNotFound
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return submission.Submission{}, err
	}
	return sub, nil
}

// RevertReview exists to satisfy submission.Store; the transactional path
// above makes it unreachable for this store.
func (s *submissionStore) RevertReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		update submissions
		set review_status = 'PENDING', reviewed_by = null, reviewed_at = null, awarded_gems = 0
		where id = $1
	`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return submission.ErrNotFound
	}
	return nil
}

func (s *submissionStore) Exists(ctx context.Context, userID, activityID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from submissions where user_id = $1 and activity_id = $2)
	`, userID, activityID).Scan(&exists)
	return exists, err
}

func (s *submissionStore) StatsForJudge(ctx context.Context, judgeUserID string) (submission.Stats, error) {
	var st submission.Stats
	err := s.db.QueryRowContext(ctx, `
		select
			count(*) filter (where review_status = 'PENDING'),
			count(*) filter (where review_status = 'APPROVED'),
			count(*) filter (where review_status = 'REJECTED')
		from submissions where judge_user_id = $1
	`, judgeUserID).Scan(&st.Pending, &st.Approved, &st.Rejected)
	return st, err
}
