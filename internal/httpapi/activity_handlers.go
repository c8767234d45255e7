package httpapi

import (
	"net/http"
	"strings"

	"github.com/Caizin-Private/QuestEvent/internal/audit"
	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// handleActivityResource routes /v1/activities/{id} and its sub-resources.
func (a *API) handleActivityResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/registrations"); ok {
		switch r.Method {
		case http.MethodGet:
			a.listRegistrations(w, r, id)
		case http.MethodPost:
			a.register(w, r, id, registration.KindActivity)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}
	if id, ok := strings.CutSuffix(path, "/submissions"); ok {
		switch r.Method {
		case http.MethodGet:
			a.listActivitySubmissions(w, r, id)
		case http.MethodPost:
			a.submit(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getActivity(w, r, path)
	case http.MethodPut:
		a.updateActivity(w, r, path)
	case http.MethodDelete:
		a.deleteActivity(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionActivityRead, authz.ResourceRef{Kind: authz.KindActivity, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	act, err := a.deps.Programs.GetActivity(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

func (a *API) updateActivity(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionActivityUpdate, authz.ResourceRef{Kind: authz.KindActivity, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	var payload workflow.ActivityPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	act, err := a.deps.Programs.UpdateActivity(r.Context(), id, payload)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "activity.updated", map[string]any{"activity_id": id})
	writeJSON(w, http.StatusOK, act)
}

func (a *API) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionActivityDelete, authz.ResourceRef{Kind: authz.KindActivity, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	if err := a.deps.Programs.DeleteActivity(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "activity.deleted", map[string]any{"activity_id": id})
	w.WriteHeader(http.StatusNoContent)
}
