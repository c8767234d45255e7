package authz

import (
	"context"
	"errors"
)

// ErrNotFound is returned by FactProvider implementations when the referenced
// resource does not exist.
var ErrNotFound = errors.New("authz: resource not found")

// ResourceKind tags the variant carried by Facts.
type ResourceKind string

const (
	KindProgram      ResourceKind = "program"
	KindActivity     ResourceKind = "activity"
	KindRegistration ResourceKind = "registration"
	KindSubmission   ResourceKind = "submission"
	KindUser         ResourceKind = "user"
	KindWallet       ResourceKind = "wallet"

	// KindPlatform covers actions without a specific resource, such as
	// listing programs or reading the leaderboard.
	KindPlatform ResourceKind = "platform"
)

// ResourceRef names the resource an action targets.
type ResourceRef struct {
	Kind ResourceKind
	ID   string
}

// ProgramFacts are the relationship facts of one program.
type ProgramFacts struct {
	ID          string
	HostUserID  string
	JudgeUserID string
	Status      string
}

// ActivityFacts carry the parent program's management facts.
type ActivityFacts struct {
	ID          string
	ProgramID   string
	HostUserID  string
	JudgeUserID string
}

// RegistrationFacts describe who registered and who manages the target.
type RegistrationFacts struct {
	ID          string
	UserID      string
	TargetID    string
	HostUserID  string
	JudgeUserID string
}

// SubmissionFacts describe a submission, its author and the judge assigned to
// the owning program.
type SubmissionFacts struct {
	ID          string
	UserID      string
	ActivityID  string
	JudgeUserID string
	Status      string
}

// UserFacts identify a user record.
type UserFacts struct {
	ID string
}

// WalletFacts identify a wallet by its owning user.
type WalletFacts struct {
	UserID string
}

// Facts is a tagged union over the resource kinds the engine decides on.
// Exactly the field matching Kind is set; the rest are nil.
type Facts struct {
	Kind         ResourceKind
	Program      *ProgramFacts
	Activity     *ActivityFacts
	Registration *RegistrationFacts
	Submission   *SubmissionFacts
	User         *UserFacts
	Wallet       *WalletFacts
}

// PlatformFacts is the empty fact set for resource-less actions.
func PlatformFacts() Facts { return Facts{Kind: KindPlatform} }

// FactProvider resolves the relationship facts needed for a decision. It is a
// pure lookup over external storage; facts loaded once per decision must not
// change mid-decision.
type FactProvider interface {
	Load(ctx context.Context, ref ResourceRef) (Facts, error)
}
