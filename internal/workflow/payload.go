package workflow

// ProgramPayload is the validated shape of a program create or update
// request.
type ProgramPayload struct {
	Title           string  `json:"programTitle" validate:"required"`
	Description     string  `json:"description"`
	Department      string  `json:"department"`
	HostUserID      string  `json:"hostUserId" validate:"required"`
	JudgeUserID     string  `json:"judgeUserId"`
	StartDate       string  `json:"startDate" validate:"required"`
	EndDate         string  `json:"endDate" validate:"required,gtefield=StartDate"`
	RegistrationFee float64 `json:"registrationFee" validate:"gte=0"`
}

// ActivityPayload is the validated shape of an activity create or update
// request.
type ActivityPayload struct {
	Name            string `json:"activityName" validate:"required"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"activityDuration" validate:"required,gt=0"`
	Rulebook        string `json:"rulebook"`
	RewardGems      int64  `json:"rewardGems" validate:"gte=0"`
	IsCompulsory    bool   `json:"isCompulsory"`
}

// RegistrationPayload is the validated shape of a registration request.
type RegistrationPayload struct {
	UserID string `json:"userId" validate:"required"`
}

// SubmissionPayload is the validated shape of a submission request.
type SubmissionPayload struct {
	UserID        string `json:"userId" validate:"required"`
	SubmissionURL string `json:"submissionUrl" validate:"required,url"`
}

// UserPayload is the validated shape of a user create request.
type UserPayload struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Department string `json:"department"`
	Gender     string `json:"gender"`
	Role       string `json:"role" validate:"required,oneof=OWNER HOST JUDGE PARTICIPANT"`
}
