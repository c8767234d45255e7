package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/Caizin-Private/QuestEvent/internal/program"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/user"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
)

// StoreProvider assembles facts from the domain stores. It serves the
// in-memory deployment; the PostgreSQL deployment ships its own provider
// that resolves the same facts with joins.
type StoreProvider struct {
	Programs      program.Store
	Registrations registration.Store
	Submissions   submission.Store
	Users         user.Store
	Wallets       wallet.Ledger
}

var _ FactProvider = (*StoreProvider)(nil)

func (p *StoreProvider) Load(ctx context.Context, ref ResourceRef) (Facts, error) {
	switch ref.Kind {
	case KindProgram:
		prog, err := p.Programs.GetProgram(ctx, ref.ID)
		if err != nil {
			return Facts{}, mapNotFound(err, program.ErrNotFound)
		}
		return Facts{Kind: KindProgram, Program: &ProgramFacts{
			ID:          prog.ID,
			HostUserID:  prog.HostUserID,
			JudgeUserID: prog.JudgeUserID,
			Status:      string(prog.Status),
		}}, nil

	case KindActivity:
		act, err := p.Programs.GetActivity(ctx, ref.ID)
		if err != nil {
			return Facts{}, mapNotFound(err, program.ErrActivityNotFound)
		}
		prog, err := p.Programs.GetProgram(ctx, act.ProgramID)
		if err != nil {
			return Facts{}, mapNotFound(err, program.ErrNotFound)
		}
		return Facts{Kind: KindActivity, Activity: &ActivityFacts{
			ID:          act.ID,
			ProgramID:   act.ProgramID,
			HostUserID:  prog.HostUserID,
			JudgeUserID: prog.JudgeUserID,
		}}, nil

	case KindRegistration:
		reg, err := p.Registrations.Get(ctx, ref.ID)
		if err != nil {
			return Facts{}, mapNotFound(err, registration.ErrNotFound)
		}
		hostID, judgeID, err := p.targetManagement(ctx, reg.TargetID)
		if err != nil {
			return Facts{}, err
		}
		return Facts{Kind: KindRegistration, Registration: &RegistrationFacts{
			ID:          reg.ID,
			UserID:      reg.UserID,
			TargetID:    reg.TargetID,
			HostUserID:  hostID,
			JudgeUserID: judgeID,
		}}, nil

	case KindSubmission:
		sub, err := p.Submissions.Get(ctx, ref.ID)
		if err != nil {
			return Facts{}, mapNotFound(err, submission.ErrNotFound)
		}
		return Facts{Kind: KindSubmission, Submission: &SubmissionFacts{
			ID:          sub.ID,
			UserID:      sub.UserID,
			ActivityID:  sub.ActivityID,
			JudgeUserID: sub.JudgeUserID,
			Status:      string(sub.Status),
		}}, nil

	case KindUser:
		u, err := p.Users.Get(ctx, ref.ID)
		if err != nil {
			return Facts{}, mapNotFound(err, user.ErrNotFound)
		}
		return Facts{Kind: KindUser, User: &UserFacts{ID: u.ID}}, nil

	case KindWallet:
		w, err := p.Wallets.Balance(ctx, ref.ID)
		if err != nil {
			return Facts{}, mapNotFound(err, wallet.ErrNotFound)
		}
		return Facts{Kind: KindWallet, Wallet: &WalletFacts{UserID: w.UserID}}, nil

	default:
		return Facts{}, fmt.Errorf("unknown resource kind %q", ref.Kind)
	}
}

// targetManagement resolves who hosts and judges a registration target,
// whether it is a program or an activity.
func (p *StoreProvider) targetManagement(ctx context.Context, targetID string) (hostID, judgeID string, err error) {
	prog, err := p.Programs.GetProgram(ctx, targetID)
	if err == nil {
		return prog.HostUserID, prog.JudgeUserID, nil
	}
	if !errors.Is(err, program.ErrNotFound) {
		return "", "", err
	}
	act, err := p.Programs.GetActivity(ctx, targetID)
	if err != nil {
		if errors.Is(err, program.ErrActivityNotFound) {
			// Dangling target; no manager facts available.
			return "", "", nil
		}
		return "", "", err
	}
	parent, err := p.Programs.GetProgram(ctx, act.ProgramID)
	if err != nil {
		return "", "", mapNotFound(err, program.ErrNotFound)
	}
	return parent.HostUserID, parent.JudgeUserID, nil
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return ErrNotFound
	}
	return err
}
