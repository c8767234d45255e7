// Package submission handles participant work uploads and the judge review
// workflow, including the gem award on approval.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Caizin-Private/QuestEvent/internal/program"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// ProgramDirectory resolves the activity and program a submission belongs to.
type ProgramDirectory interface {
	GetActivity(ctx context.Context, id string) (program.Activity, error)
	Get(ctx context.Context, id string) (program.Program, error)
}

// Service applies the submission workflow over a Store.
type Service struct {
	store    Store
	guard    *workflow.Guard
	programs ProgramDirectory
	wallets  wallet.Ledger
}

// NewService wires a submission service.
func NewService(store Store, guard *workflow.Guard, programs ProgramDirectory, wallets wallet.Ledger) *Service {
	return &Service{store: store, guard: guard, programs: programs, wallets: wallets}
}

// Submit records a user's work for an activity. The user must be registered
// for the activity and may submit at most once; the store's uniqueness stays
// authoritative, so a lost race still surfaces as workflow.ErrDuplicate.
func (s *Service) Submit(ctx context.Context, activityID, userID, submissionURL string) (Submission, error) {
	if err := s.guard.ValidatePayload(workflow.SubmissionPayload{UserID: userID, SubmissionURL: submissionURL}); err != nil {
		return Submission{}, err
	}
	act, err := s.programs.GetActivity(ctx, activityID)
	if err != nil {
		return Submission{}, err
	}
	prog, err := s.programs.Get(ctx, act.ProgramID)
	if err != nil {
		return Submission{}, err
	}
	if err := s.guard.CheckSubmission(ctx, userID, activityID); err != nil {
		return Submission{}, err
	}
	sub := Submission{
		ID:            uuid.NewString(),
		ActivityID:    activityID,
		ProgramID:     prog.ID,
		UserID:        userID,
		JudgeUserID:   prog.JudgeUserID,
		SubmissionURL: submissionURL,
		Status:        StatusPending,
		SubmittedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Submission{}, workflow.ErrDuplicate
		}
		return Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

// Get returns one submission.
func (s *Service) Get(ctx context.Context, id string) (Submission, error) {
	return s.store.Get(ctx, id)
}

// Pending returns the pending queue.
func (s *Service) Pending(ctx context.Context, limit int) ([]Submission, error) {
	return s.store.ListByStatus(ctx, StatusPending, limit)
}

// ForActivity returns the submissions made for one activity.
func (s *Service) ForActivity(ctx context.Context, activityID string, limit int) ([]Submission, error) {
	return s.store.ListByActivity(ctx, activityID, limit)
}

// ForJudge returns a judge's submissions across statuses.
func (s *Service) ForJudge(ctx context.Context, judgeUserID string, limit int) ([]Submission, error) {
	return s.store.ListForJudge(ctx, judgeUserID, limit)
}

// PendingForJudge returns only the judge's unreviewed submissions.
func (s *Service) PendingForJudge(ctx context.Context, judgeUserID string, limit int) ([]Submission, error) {
	subs, err := s.store.ListForJudge(ctx, judgeUserID, limit)
	if err != nil {
		return nil, err
	}
	out := subs[:0]
	for _, sub := range subs {
		if sub.Status == StatusPending {
			out = append(out, sub)
		}
	}
	return out, nil
}

// StatsForJudge summarizes a judge's queue.
func (s *Service) StatsForJudge(ctx context.Context, judgeUserID string) (Stats, error) {
	return s.store.StatsForJudge(ctx, judgeUserID)
}

// Review approves or rejects a pending submission. The store applies the
// transition at most once, so two racing reviews resolve to one winner and
// one workflow.ErrInvalidState. Approval credits the activity's reward gems
// exactly once, keyed by submission id.
func (s *Service) Review(ctx context.Context, id, judgeUserID string, approve bool) (Submission, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if err := s.guard.CheckReviewable(string(sub.Status)); err != nil {
		return Submission{}, err
	}

	status := StatusRejected
	var awarded int64
	if approve {
		act, err := s.programs.GetActivity(ctx, sub.ActivityID)
		if err != nil {
			return Submission{}, err
		}
		status = StatusApproved
		awarded = act.RewardGems
	}

	now := time.Now().UTC()
	idemKey := "submission:" + id

	if atomic, ok := s.store.(AtomicReviewer); ok {
		reviewed, err := atomic.ReviewAndCredit(ctx, id, judgeUserID, status, awarded, now, idemKey)
		if err != nil {
			if errors.Is(err, ErrAlreadyReviewed) {
				return Submission{}, workflow.ErrInvalidState
			}
			return Submission{}, fmt.Errorf("review submission: %w", err)
		}
		return reviewed, nil
	}

	reviewed, err := s.store.MarkReviewed(ctx, id, judgeUserID, status, awarded, now)
	if err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return Submission{}, workflow.ErrInvalidState
		}
		return Submission{}, fmt.Errorf("mark reviewed: %w", err)
	}

	if approve && awarded > 0 {
		if _, err := s.wallets.CreditGems(ctx, reviewed.UserID, awarded, idemKey); err != nil {
			// Undo the transition so the review stays retriable instead of
			// leaving an approved submission with no credit behind it.
			if revertErr := s.store.RevertReview(ctx, id); revertErr != nil {
				return Submission{}, fmt.Errorf("credit gems: %w (revert review: %v)", err, revertErr)
			}
			return Submission{}, fmt.Errorf("credit gems: %w", err)
		}
	}
	return reviewed, nil
}
