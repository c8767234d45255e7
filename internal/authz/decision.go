package authz

// Outcome is the externally observable result class of an authorization
// request. The HTTP layer maps these onto status codes.
type Outcome string

const (
	OutcomeAllow            Outcome = "ALLOW"
	OutcomeDeny             Outcome = "DENY"
	OutcomeNotFound         Outcome = "NOT_FOUND"
	OutcomeValidationFailed Outcome = "VALIDATION_FAILED"
	OutcomeConflict         Outcome = "CONFLICT"
)

// ConflictKind distinguishes business-invariant failures.
type ConflictKind string

const (
	ConflictDuplicate    ConflictKind = "DUPLICATE"
	ConflictInvalidState ConflictKind = "INVALID_STATE"
)

// ReasonNotAuthorized is the default deny reason when no rule matches.
const ReasonNotAuthorized = "NOT_AUTHORIZED"

// Decision is the result of evaluating the policy for one request.
type Decision struct {
	Outcome Outcome
	Reason  string
	Fields  []string
	Kind    ConflictKind
}

// Allowed reports whether the caller may proceed with the action.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Allow grants the request.
func Allow() Decision { return Decision{Outcome: OutcomeAllow} }

// Deny refuses the request for the given policy reason.
func Deny(reason string) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason}
}

// NotFound reports that the referenced resource does not exist. It is a
// distinct outcome from Deny so callers can surface 404 instead of 403.
func NotFound() Decision { return Decision{Outcome: OutcomeNotFound} }

// ValidationFailed reports an incomplete or malformed payload, enumerating
// the offending fields.
func ValidationFailed(fields ...string) Decision {
	return Decision{Outcome: OutcomeValidationFailed, Fields: fields}
}

// Conflict reports a violated business invariant of the given kind.
func Conflict(kind ConflictKind, reason string) Decision {
	return Decision{Outcome: OutcomeConflict, Kind: kind, Reason: reason}
}
