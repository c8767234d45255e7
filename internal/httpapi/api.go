// Package httpapi is the HTTP surface of the platform. Every resource
// handler runs the same pipeline: resolve the principal, authorize the
// action against resource facts, then execute the workflow.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/obs"
	"github.com/Caizin-Private/QuestEvent/internal/program"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/stream"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/user"
	"github.com/Caizin-Private/QuestEvent/internal/wallet"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// ReadyProbe checks readiness, pinging the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the services the API dispatches to.
type Deps struct {
	Authz          *authz.Authorizer
	Programs       *program.Service
	Registrations  *registration.Service
	Submissions    *submission.Service
	Users          *user.Service
	Wallets        wallet.Ledger
	ProgramWallets wallet.ProgramLedger
	Stream         *stream.Stream
	Ready          ReadyProbe
	Version        string

	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer.
type API struct {
	mux  *http.ServeMux
	deps Deps
}

// New builds the router.
func New(deps Deps) *API {
	a := &API{
		mux:  http.NewServeMux(),
		deps: deps,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/programs", a.handleProgramsCollection)
	a.mux.HandleFunc("/v1/programs/", a.handleProgramResource)
	a.mux.HandleFunc("/v1/activities/", a.handleActivityResource)
	a.mux.HandleFunc("/v1/registrations", a.handleRegistrationsCollection)
	a.mux.HandleFunc("/v1/registrations/", a.handleRegistrationResource)
	a.mux.HandleFunc("/v1/submissions/", a.handleSubmissionResource)

	a.mux.HandleFunc("/v1/judge/submissions", a.handleJudgeQueue)
	a.mux.HandleFunc("/v1/judge/submissions/", a.handleJudgeSubmission)
	a.mux.HandleFunc("/v1/judge/stats", a.handleJudgeStats)

	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/wallets/", a.handleWalletResource)
	a.mux.HandleFunc("/v1/leaderboard", a.handleLeaderboard)

	a.mux.HandleFunc("/v1/events", a.StreamEvents)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler composes the middleware pipeline around the router.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	if a.deps.RateBurst > 0 && a.deps.RatePerSecond > 0 {
		h = RateLimit(h, a.deps.RateBurst, a.deps.RatePerSecond)
	}
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "questevent-api",
		"version": a.deps.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "questevent-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.deps.Version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// writeDecision maps a non-allow decision onto the HTTP surface. Deny stays
// distinct from NotFound so a caller can tell 403 from 404, but only after
// the resource was confirmed to exist.
func writeDecision(w http.ResponseWriter, r *http.Request, d authz.Decision) {
	switch d.Outcome {
	case authz.OutcomeNotFound:
		writeError(w, r, http.StatusNotFound, "resource not found")
	case authz.OutcomeValidationFailed:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": d.Fields,
		})
	case authz.OutcomeConflict:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": d.Reason,
			"kind":  d.Kind,
		})
	default:
		reason := d.Reason
		if reason == "" {
			reason = authz.ReasonNotAuthorized
		}
		writeError(w, r, http.StatusForbidden, reason)
	}
}

// handleDomainError maps workflow and store errors onto status codes.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, workflow.ErrDuplicate):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"kind":  authz.ConflictDuplicate,
		})
	case errors.Is(err, workflow.ErrInvalidState), errors.Is(err, wallet.ErrSettled):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"kind":  authz.ConflictInvalidState,
		})
	case errors.Is(err, program.ErrNotFound),
		errors.Is(err, program.ErrActivityNotFound),
		errors.Is(err, registration.ErrNotFound),
		errors.Is(err, submission.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, wallet.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseLimit(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 100, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < 1 || val > 1000 {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}
