package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Caizin-Private/QuestEvent/internal/authz"
)

// Facts exposes the authorization fact provider backed by this pool.
func (s *Store) Facts() authz.FactProvider { return (*factStore)(s) }

type factStore Store

var _ authz.FactProvider = (*factStore)(nil)

// Load resolves relationship facts for one resource reference. Missing
// resources map to authz.ErrNotFound so the policy layer can answer 404
// before 403.
func (s *factStore) Load(ctx context.Context, ref authz.ResourceRef) (authz.Facts, error) {
	switch ref.Kind {
	case authz.KindProgram:
		return s.programFacts(ctx, ref.ID)
	case authz.KindActivity:
		return s.activityFacts(ctx, ref.ID)
	case authz.KindRegistration:
		return s.registrationFacts(ctx, ref.ID)
	case authz.KindSubmission:
		return s.submissionFacts(ctx, ref.ID)
	case authz.KindUser:
		return s.userFacts(ctx, ref.ID)
	case authz.KindWallet:
		return s.walletFacts(ctx, ref.ID)
	default:
		return authz.Facts{}, fmt.Errorf("unknown resource kind %q", ref.Kind)
	}
}

func (s *factStore) programFacts(ctx context.Context, id string) (authz.Facts, error) {
	f := authz.ProgramFacts{}
	err := s.db.QueryRowContext(ctx, `
		select id, host_user_id, coalesce(judge_user_id,''), status from programs where id = $1
	`, id).Scan(&f.ID, &f.HostUserID, &f.JudgeUserID, &f.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Facts{}, authz.ErrNotFound
	}
	if err != nil {
		return authz.Facts{}, err
	}
	return authz.Facts{Kind: authz.KindProgram, Program: &f}, nil
}

func (s *factStore) activityFacts(ctx context.Context, id string) (authz.Facts, error) {
	f := authz.ActivityFacts{}
	err := s.db.QueryRowContext(ctx, `
		select a.id, a.program_id, p.host_user_id, coalesce(p.judge_user_id,'')
		from activities a
		join programs p on p.id = a.program_id
		where a.id = $1
	`, id).Scan(&f.ID, &f.ProgramID, &f.HostUserID, &f.JudgeUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Facts{}, authz.ErrNotFound
	}
	if err != nil {
		return authz.Facts{}, err
	}
	return authz.Facts{Kind: authz.KindActivity, Activity: &f}, nil
}

// registrationFacts resolves the target's host and judge whether the target
// is a program or an activity.
func (s *factStore) registrationFacts(ctx context.Context, id string) (authz.Facts, error) {
	f := authz.RegistrationFacts{}
	err := s.db.QueryRowContext(ctx, `
		select r.id, r.user_id, r.target_id,
			coalesce(p.host_user_id, ap.host_user_id, ''),
			coalesce(p.judge_user_id, ap.judge_user_id, '')
		from registrations r
		left join programs p on p.id = r.target_id
		left join activities a on a.id = r.target_id
		left join programs ap on ap.id = a.program_id
		where r.id = $1
	`, id).Scan(&f.ID, &f.UserID, &f.TargetID, &f.HostUserID, &f.JudgeUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Facts{}, authz.ErrNotFound
	}
	if err != nil {
		return authz.Facts{}, err
	}
	return authz.Facts{Kind: authz.KindRegistration, Registration: &f}, nil
}

func (s *factStore) submissionFacts(ctx context.Context, id string) (authz.Facts, error) {
	f := authz.SubmissionFacts{}
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, activity_id, coalesce(judge_user_id,''), review_status
		from submissions where id = $1
	`, id).Scan(&f.ID, &f.UserID, &f.ActivityID, &f.JudgeUserID, &f.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Facts{}, authz.ErrNotFound
	}
	if err != nil {
		return authz.Facts{}, err
	}
	return authz.Facts{Kind: authz.KindSubmission, Submission: &f}, nil
}

func (s *factStore) userFacts(ctx context.Context, id string) (authz.Facts, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `select exists (select 1 from users where id = $1)`, id).Scan(&exists); err != nil {
		return authz.Facts{}, err
	}
	if !exists {
		return authz.Facts{}, authz.ErrNotFound
	}
	return authz.Facts{Kind: authz.KindUser, User: &authz.UserFacts{ID: id}}, nil
}

func (s *factStore) walletFacts(ctx context.Context, userID string) (authz.Facts, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `select exists (select 1 from wallets where user_id = $1)`, userID).Scan(&exists); err != nil {
		return authz.Facts{}, err
	}
	if !exists {
		return authz.Facts{}, authz.ErrNotFound
	}
	return authz.Facts{Kind: authz.KindWallet, Wallet: &authz.WalletFacts{UserID: userID}}, nil
}
