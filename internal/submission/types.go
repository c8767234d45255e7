package submission

import (
	"errors"
	"time"
)

// Status is the review state of a submission.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Submission is a participant's uploaded work for one activity. ProgramID and
// JudgeUserID are copied from the owning program at submit time; the judge of
// a program is fixed at creation, so the denormalized copy cannot go stale.
type Submission struct {
	ID            string     `json:"id"`
	ActivityID    string     `json:"activity_id"`
	ProgramID     string     `json:"program_id"`
	UserID        string     `json:"user_id"`
	JudgeUserID   string     `json:"judge_user_id,omitempty"`
	SubmissionURL string     `json:"submission_url"`
	Status        Status     `json:"status"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	AwardedGems   int64      `json:"awarded_gems"`
}

// Stats summarizes a judge's queue.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

var (
	ErrNotFound        = errors.New("submission not found")
	ErrDuplicate       = errors.New("submission already exists")
	ErrAlreadyReviewed = errors.New("submission already reviewed")
)
