package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/Caizin-Private/QuestEvent/internal/audit"
	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/stream"
	"github.com/Caizin-Private/QuestEvent/internal/submission"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// submit records a participant's work for an activity.
func (a *API) submit(w http.ResponseWriter, r *http.Request, activityID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if _, err := a.deps.Programs.GetActivity(r.Context(), activityID); err != nil {
		handleDomainError(w, r, err)
		return
	}

	var payload workflow.SubmissionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	facts := authz.Facts{Kind: authz.KindSubmission, Submission: &authz.SubmissionFacts{
		UserID:     payload.UserID,
		ActivityID: activityID,
	}}
	if d := a.deps.Authz.Decide(p, authz.ActionSubmissionCreate, facts); !d.Allowed() {
		writeDecision(w, r, d)
		return
	}

	sub, err := a.deps.Submissions.Submit(r.Context(), activityID, payload.UserID, payload.SubmissionURL)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "submission.created", map[string]any{
		"submission_id": sub.ID,
		"activity_id":   activityID,
	})
	w.Header().Set("Location", "/v1/submissions/"+sub.ID)
	writeJSON(w, http.StatusCreated, sub)
}

// listActivitySubmissions serves GET /v1/activities/{id}/submissions for the
// review roles.
func (a *API) listActivitySubmissions(w http.ResponseWriter, r *http.Request, activityID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if _, err := a.deps.Programs.GetActivity(r.Context(), activityID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionSubmissionList, authz.ResourceRef{Kind: authz.KindPlatform})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	subs, err := a.deps.Submissions.ForActivity(r.Context(), activityID, limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": subs})
}

// handleSubmissionResource routes /v1/submissions/{id}.
func (a *API) handleSubmissionResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/submissions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	a.getSubmission(w, r, id)
}

func (a *API) getSubmission(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionSubmissionRead, authz.ResourceRef{Kind: authz.KindSubmission, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	sub, err := a.deps.Submissions.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleJudgeQueue serves GET /v1/judge/submissions.
func (a *API) handleJudgeQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionSubmissionList, authz.ResourceRef{Kind: authz.KindPlatform})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var subs []submission.Submission
	switch r.URL.Query().Get("status") {
	case "", "pending":
		if p.IsOwner() {
			// The owner is not assigned to programs; show the global queue.
			subs, err = a.deps.Submissions.Pending(r.Context(), limit)
		} else {
			subs, err = a.deps.Submissions.PendingForJudge(r.Context(), p.ID, limit)
		}
	case "all":
		subs, err = a.deps.Submissions.ForJudge(r.Context(), p.ID, limit)
	default:
		writeError(w, r, http.StatusBadRequest, "status must be pending or all")
		return
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": subs})
}

// handleJudgeSubmission routes POST /v1/judge/submissions/{id}/approve and
// /v1/judge/submissions/{id}/reject.
func (a *API) handleJudgeSubmission(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/judge/submissions/")

	var id string
	var approve bool
	switch {
	case strings.HasSuffix(path, "/approve"):
		id = strings.TrimSuffix(path, "/approve")
		approve = true
	case strings.HasSuffix(path, "/reject"):
		id = strings.TrimSuffix(path, "/reject")
	case !strings.Contains(path, "/"):
		// Bare id: submission details for the judge view.
		a.getSubmission(w, r, path)
		return
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionSubmissionReview, authz.ResourceRef{Kind: authz.KindSubmission, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}

	sub, err := a.deps.Submissions.Review(r.Context(), id, p.ID, approve)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	if a.deps.Stream != nil {
		a.deps.Stream.Publish(stream.ReviewEvent{
			SubmissionID: sub.ID,
			ActivityID:   sub.ActivityID,
			UserID:       sub.UserID,
			Outcome:      string(sub.Status),
			AwardedGems:  sub.AwardedGems,
			Timestamp:    time.Now().UTC(),
		})
	}
	event := "submission.rejected"
	if approve {
		event = "submission.approved"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"submission_id": sub.ID,
		"awarded_gems":  sub.AwardedGems,
	})
	writeJSON(w, http.StatusOK, sub)
}

// handleJudgeStats serves GET /v1/judge/stats.
func (a *API) handleJudgeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionSubmissionList, authz.ResourceRef{Kind: authz.KindPlatform})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	stats, err := a.deps.Submissions.StatsForJudge(r.Context(), p.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
