package authz

import (
	"github.com/Caizin-Private/QuestEvent/internal/auth"
)

// Engine evaluates the resource policy. It is pure: decisions depend only on
// the principal, the action and the facts passed in, never on clocks or
// storage. Rules are evaluated in a fixed order and the first match wins;
// when nothing matches the request is denied.
type Engine struct{}

// NewEngine returns the policy engine.
func NewEngine() *Engine { return &Engine{} }

// Decide evaluates the ordered rule chain for one request.
func (e *Engine) Decide(p auth.Principal, action Action, facts Facts) Decision {
	rules := []func(auth.Principal, Action, Facts) (Decision, bool){
		ownerBypass,
		selfAccess,
		createsProgram,
		ownsProgram,
		managesActivity,
		judgeAllowed,
		createsOwnRecord,
		readsOwnRegistration,
		openRead,
	}
	for _, rule := range rules {
		if d, ok := rule(p, action, facts); ok {
			return d
		}
	}
	return Deny(ReasonNotAuthorized)
}

// ownerBypass grants the platform owner every action.
func ownerBypass(p auth.Principal, _ Action, _ Facts) (Decision, bool) {
	if p.IsOwner() {
		return Allow(), true
	}
	return Decision{}, false
}

// selfAccess lets a user read and update their own record and read their own
// wallet. Deleting users stays owner-only.
func selfAccess(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	switch action {
	case ActionUserRead, ActionUserUpdate:
		if facts.User != nil && facts.User.ID == p.ID {
			return Allow(), true
		}
	case ActionWalletRead:
		if facts.Wallet != nil && facts.Wallet.UserID == p.ID {
			return Allow(), true
		}
	}
	return Decision{}, false
}

// createsProgram lets a user create a program they will host themselves.
func createsProgram(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	if action != ActionProgramCreate || facts.Program == nil {
		return Decision{}, false
	}
	if facts.Program.HostUserID == p.ID {
		return Allow(), true
	}
	return Decision{}, false
}

// ownsProgram lets the hosting user manage their program, including its fee
// wallet and settlement.
func ownsProgram(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	switch action {
	case ActionProgramUpdate, ActionProgramDelete,
		ActionProgramWalletRead, ActionProgramSettle:
	default:
		return Decision{}, false
	}
	if facts.Program != nil && facts.Program.HostUserID == p.ID {
		return Allow(), true
	}
	return Decision{}, false
}

// managesActivity lets the host of the parent program manage its activities.
func managesActivity(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	switch action {
	case ActionActivityCreate, ActionActivityUpdate, ActionActivityDelete:
	default:
		return Decision{}, false
	}
	if facts.Activity != nil && facts.Activity.HostUserID == p.ID {
		return Allow(), true
	}
	return Decision{}, false
}

// judgeAllowed covers the judging surface. Reviewing or reading a submission
// requires the judge role and, when the owning program carries an assigned
// judge, that the caller is that judge. A submission is also readable by the
// participant who made it. Listing the review queue requires the judge role.
func judgeAllowed(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	switch action {
	case ActionSubmissionReview, ActionSubmissionRead:
		if facts.Submission == nil {
			return Decision{}, false
		}
		if action == ActionSubmissionRead && facts.Submission.UserID == p.ID {
			return Allow(), true
		}
		if !p.IsJudge() {
			return Decision{}, false
		}
		if facts.Submission.JudgeUserID != "" && facts.Submission.JudgeUserID != p.ID {
			return Decision{}, false
		}
		return Allow(), true
	case ActionSubmissionList:
		if p.IsJudge() {
			return Allow(), true
		}
	}
	return Decision{}, false
}

// createsOwnRecord lets a user register themselves and submit their own work.
// Creating records on behalf of another user is not a participant capability.
func createsOwnRecord(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	switch action {
	case ActionRegistrationCreate:
		if facts.Registration != nil && facts.Registration.UserID == p.ID {
			return Allow(), true
		}
	case ActionSubmissionCreate:
		if facts.Submission != nil && facts.Submission.UserID == p.ID {
			return Allow(), true
		}
	}
	return Decision{}, false
}

// readsOwnRegistration allows a registration to be read by its user, by the
// host of the registered target, or by the assigned judge.
func readsOwnRegistration(p auth.Principal, action Action, facts Facts) (Decision, bool) {
	switch action {
	case ActionRegistrationRead:
		r := facts.Registration
		if r == nil {
			return Decision{}, false
		}
		if r.UserID == p.ID || r.HostUserID == p.ID {
			return Allow(), true
		}
		if p.IsJudge() && r.JudgeUserID == p.ID {
			return Allow(), true
		}
	case ActionRegistrationList:
		if p.IsJudge() {
			return Allow(), true
		}
	}
	return Decision{}, false
}

// openRead grants the browse surface to every authenticated user.
func openRead(_ auth.Principal, action Action, _ Facts) (Decision, bool) {
	switch action {
	case ActionProgramRead, ActionProgramList,
		ActionActivityRead, ActionActivityList,
		ActionLeaderboardRead:
		return Allow(), true
	}
	return Decision{}, false
}
