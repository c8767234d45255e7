package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewWithDB(db), mock, func() { db.Close() }
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: pgErrUniqueViolation}
}

func TestRegistrationCreateMapsUniqueViolation(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("insert into registrations").
		WithArgs("reg-1", "user-1", "prog-1", "PROGRAM", sqlmock.AnyArg()).
		WillReturnError(uniqueViolation())

	err := store.Registrations().Create(context.Background(), registration.Registration{
		ID: "reg-1", UserID: "user-1", TargetID: "prog-1",
		Kind: registration.KindProgram, CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, registration.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func submissionRows(id string, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "activity_id", "program_id", "user_id", "judge_user_id",
		"submission_url", "review_status", "submitted_at", "reviewed_at", "reviewed_by", "awarded_gems",
	}).AddRow(id, "act-1", "prog-1", "user-1", "judge-1",
		"https://example.com/work", status, time.Now().UTC(), nil, "", 0)
}

func TestMarkReviewedWinsWhilePending(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("update submissions").
		WithArgs("sub-1", "APPROVED", "judge-1", sqlmock.AnyArg(), int64(30)).
		WillReturnRows(submissionRows("sub-1", "APPROVED"))

	sub, err := store.Submissions().MarkReviewed(context.Background(), "sub-1", "judge-1", submission.StatusApproved, 30, time.Now().UTC())
	if err != nil {
		t.Fatalf("MarkReviewed: %v", err)
	}
	if sub.Status != submission.StatusApproved {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkReviewedLostRace(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("update submissions").
		WithArgs("sub-1", "APPROVED", "judge-1", sqlmock.AnyArg(), int64(30)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select exists").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := store.Submissions().MarkReviewed(context.Background(), "sub-1", "judge-1", submission.StatusApproved, 30, time.Now().UTC())
	if !errors.Is(err, submission.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestMarkReviewedMissingSubmission(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("update submissions").
		WithArgs("sub-404", "REJECTED", "judge-1", sqlmock.AnyArg(), int64(0)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select exists").
		WithArgs("sub-404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := store.Submissions().MarkReviewed(context.Background(), "sub-404", "judge-1", submission.StatusRejected, 0, time.Now().UTC())
	if !errors.Is(err, submission.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func reviewedRows(id, userID string, awarded int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "activity_id", "program_id", "user_id", "judge_user_id",
		"submission_url", "review_status", "submitted_at", "reviewed_at", "reviewed_by", "awarded_gems",
	}).AddRow(id, "act-1", "prog-1", userID, "judge-1",
		"https://example.com/work", "APPROVED", now, now, "judge-1", awarded)
}

func TestReviewAndCreditCommitsBothWrites(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("update submissions").
		WithArgs("sub-1", "APPROVED", "judge-1", sqlmock.AnyArg(), int64(30)).
		WillReturnRows(reviewedRows("sub-1", "user-1", 30))
	mock.ExpectExec("insert into wallet_credits").
		WithArgs(sqlmock.AnyArg(), "submission:sub-1", "user-1", int64(30)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("update wallets set gems").
		WithArgs("user-1", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sub, err := store.Submissions().(*submissionStore).ReviewAndCredit(context.Background(),
		"sub-1", "judge-1", submission.StatusApproved, 30, time.Now().UTC(), "submission:sub-1")
	if err != nil {
		t.Fatalf("ReviewAndCredit: %v", err)
	}
	if sub.Status != submission.StatusApproved || sub.AwardedGems != 30 {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReviewAndCreditRollsBackWhenWalletMissing(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("update submissions").
		WithArgs("sub-1", "APPROVED", "judge-1", sqlmock.AnyArg(), int64(30)).
		WillReturnRows(reviewedRows("sub-1", "user-2", 30))
	mock.ExpectExec("insert into wallet_credits").
		WithArgs(sqlmock.AnyArg(), "submission:sub-1", "user-2", int64(30)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("update wallets set gems").
		WithArgs("user-2", int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.Submissions().(*submissionStore).ReviewAndCredit(context.Background(),
		"sub-1", "judge-1", submission.StatusApproved, 30, time.Now().UTC(), "submission:sub-1")
	if !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("expected wallet.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReviewAndCreditLostRaceRollsBack(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("update submissions").
		WithArgs("sub-1", "REJECTED", "judge-1", sqlmock.AnyArg(), int64(0)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select exists").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.Submissions().(*submissionStore).ReviewAndCredit(context.Background(),
		"sub-1", "judge-1", submission.StatusRejected, 0, time.Now().UTC(), "submission:sub-1")
	if !errors.Is(err, submission.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestCreditGemsReplayLeavesBalance(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("insert into wallet_credits").
		WithArgs(sqlmock.AnyArg(), "submission:sub-1", "user-1", int64(30), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select user_id, gems, created_at, updated_at from wallets").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "gems", "created_at", "updated_at"}).
			AddRow("user-1", int64(30), now, now))
	mock.ExpectCommit()

	w, err := store.Wallets().CreditGems(context.Background(), "user-1", 30, "submission:sub-1")
	if err != nil {
		t.Fatalf("CreditGems: %v", err)
	}
	if w.Gems != 30 {
		t.Fatalf("expected balance 30, got %d", w.Gems)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreditGemsAppliesIncrement(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("insert into wallet_credits").
		WithArgs(sqlmock.AnyArg(), "submission:sub-2", "user-1", int64(25), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("update wallets set gems").
		WithArgs("user-1", int64(25)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "gems", "created_at", "updated_at"}).
			AddRow("user-1", int64(25), now, now))
	mock.ExpectCommit()

	w, err := store.Wallets().CreditGems(context.Background(), "user-1", 25, "submission:sub-2")
	if err != nil {
		t.Fatalf("CreditGems: %v", err)
	}
	if w.Gems != 25 {
		t.Fatalf("expected balance 25, got %d", w.Gems)
	}
}

func TestCreditGemsRejectsNonPositive(t *testing.T) {
	store, _, done := newMock(t)
	defer done()

	if _, err := store.Wallets().CreditGems(context.Background(), "user-1", 0, ""); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestProgramWalletSettleWinsOnce(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("insert into program_wallets").
		WithArgs("prog-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("update program_wallets set settled").
		WithArgs("prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"program_id", "balance", "settled", "settled_at", "created_at", "updated_at"}).
			AddRow("prog-1", 19.99, true, now, now, now))

	w, err := store.ProgramWallets().Settle(context.Background(), "prog-1")
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !w.Settled || w.Balance != 19.99 {
		t.Fatalf("unexpected wallet: %+v", w)
	}

	mock.ExpectExec("insert into program_wallets").
		WithArgs("prog-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("update program_wallets set settled").
		WithArgs("prog-1").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.ProgramWallets().Settle(context.Background(), "prog-1"); !errors.Is(err, wallet.ErrSettled) {
		t.Fatalf("expected ErrSettled, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFactsMissingProgram(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("select id, host_user_id").
		WithArgs("prog-404").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Facts().Load(context.Background(), authz.ResourceRef{Kind: authz.KindProgram, ID: "prog-404"})
	if !errors.Is(err, authz.ErrNotFound) {
		t.Fatalf("expected authz.ErrNotFound, got %v", err)
	}
}

func TestFactsSubmission(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("select id, user_id, activity_id").
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "activity_id", "judge_user_id", "review_status"}).
			AddRow("sub-1", "user-1", "act-1", "judge-1", "PENDING"))

	facts, err := store.Facts().Load(context.Background(), authz.ResourceRef{Kind: authz.KindSubmission, ID: "sub-1"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if facts.Kind != authz.KindSubmission || facts.Submission == nil {
		t.Fatalf("unexpected facts: %+v", facts)
	}
	if facts.Submission.JudgeUserID != "judge-1" || facts.Submission.Status != "PENDING" {
		t.Fatalf("unexpected submission facts: %+v", facts.Submission)
	}
}
