// Package workflow enforces the business invariants that sit between an
// authorization decision and a state change: payload validation, duplicate
// prevention and state-machine transitions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrDuplicate reports an attempt to create a record that already exists.
	ErrDuplicate = errors.New("workflow: duplicate record")
	// ErrInvalidState reports an operation attempted outside the state that
	// permits it.
	ErrInvalidState = errors.New("workflow: invalid state")
)

// ValidationError carries the JSON field names that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow: validation failed: %s", strings.Join(e.Fields, ", "))
}

// RegistrationChecker answers whether a user already registered for a target.
type RegistrationChecker interface {
	Exists(ctx context.Context, userID, targetID string) (bool, error)
}

// SubmissionChecker answers whether a user already submitted for an activity.
type SubmissionChecker interface {
	Exists(ctx context.Context, userID, activityID string) (bool, error)
}

// Guard bundles the workflow checks. Storage-backed uniqueness remains the
// source of truth; the guard checks give fast, friendly failures before a
// write is attempted.
type Guard struct {
	validate      *validator.Validate
	registrations RegistrationChecker
	submissions   SubmissionChecker
}

// NewGuard builds a guard over the given checkers. Either checker may be nil
// when the corresponding pre-check is not needed.
func NewGuard(registrations RegistrationChecker, submissions SubmissionChecker) *Guard {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Guard{validate: v, registrations: registrations, submissions: submissions}
}

// ValidatePayload runs struct validation and converts failures into a
// ValidationError naming the offending JSON fields.
func (g *Guard) ValidatePayload(payload any) error {
	err := g.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("workflow: validate payload: %w", err)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("workflow: validate payload: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

// CheckRegistration rejects a second registration of the same user for the
// same target.
func (g *Guard) CheckRegistration(ctx context.Context, userID, targetID string) error {
	exists, err := g.registrations.Exists(ctx, userID, targetID)
	if err != nil {
		return fmt.Errorf("check registration: %w", err)
	}
	if exists {
		return ErrDuplicate
	}
	return nil
}

// CheckSubmission requires an existing registration for the activity and at
// most one submission per user and activity.
func (g *Guard) CheckSubmission(ctx context.Context, userID, activityID string) error {
	registered, err := g.registrations.Exists(ctx, userID, activityID)
	if err != nil {
		return fmt.Errorf("check submission registration: %w", err)
	}
	if !registered {
		return ErrInvalidState
	}
	submitted, err := g.submissions.Exists(ctx, userID, activityID)
	if err != nil {
		return fmt.Errorf("check submission uniqueness: %w", err)
	}
	if submitted {
		return ErrDuplicate
	}
	return nil
}

// CheckReviewable permits a review only while the submission is pending.
func (g *Guard) CheckReviewable(status string) error {
	if status != "PENDING" {
		return ErrInvalidState
	}
	return nil
}

// CheckProgramDeletable blocks deletion of a program that has registrations.
func (g *Guard) CheckProgramDeletable(hasRegistrations bool) error {
	if hasRegistrations {
		return ErrInvalidState
	}
	return nil
}
