package authz

// Action identifies one operation of the platform's closed decision table.
// The engine dispatches on tagged Action x ResourceKind variants rather than
// endpoint strings so the policy stays exhaustively reviewable.
type Action string

const (
	ActionProgramCreate Action = "program.create"
	ActionProgramRead   Action = "program.read"
	ActionProgramList   Action = "program.list"
	ActionProgramUpdate Action = "program.update"
	ActionProgramDelete Action = "program.delete"

	ActionProgramWalletRead Action = "program.wallet_read"
	ActionProgramSettle     Action = "program.settle"

	ActionActivityCreate Action = "activity.create"
	ActionActivityRead   Action = "activity.read"
	ActionActivityList   Action = "activity.list"
	ActionActivityUpdate Action = "activity.update"
	ActionActivityDelete Action = "activity.delete"

	ActionRegistrationCreate Action = "registration.create"
	ActionRegistrationRead   Action = "registration.read"
	ActionRegistrationList   Action = "registration.list"

	ActionSubmissionCreate Action = "submission.create"
	ActionSubmissionRead   Action = "submission.read"
	ActionSubmissionList   Action = "submission.list"
	ActionSubmissionReview Action = "submission.review"

	ActionUserCreate  Action = "user.create"
	ActionUserRead    Action = "user.read"
	ActionUserList    Action = "user.list"
	ActionUserUpdate  Action = "user.update"
	ActionUserSetRole Action = "user.set_role"
	ActionUserDelete  Action = "user.delete"

	ActionWalletRead Action = "wallet.read"

	ActionLeaderboardRead Action = "leaderboard.read"
)
