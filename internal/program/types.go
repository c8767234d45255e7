package program

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a program.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusClosed   Status = "CLOSED"
	StatusArchived Status = "ARCHIVED"
)

// Program is a hosted event that users register for. Each program has one
// hosting user and one assigned judge, fixed at creation.
type Program struct {
	ID              string    `json:"id"`
	HostUserID      string    `json:"host_user_id"`
	JudgeUserID     string    `json:"judge_user_id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Department      string    `json:"department,omitempty"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	RegistrationFee float64   `json:"registration_fee"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Activity is a scored task inside a program.
type Activity struct {
	ID              string    `json:"id"`
	ProgramID       string    `json:"program_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Rulebook        string    `json:"rulebook,omitempty"`
	RewardGems      int64     `json:"reward_gems"`
	IsCompulsory    bool      `json:"is_compulsory"`
	CreatedAt       time.Time `json:"created_at"`
}

var (
	ErrNotFound         = errors.New("program not found")
	ErrActivityNotFound = errors.New("activity not found")
)
