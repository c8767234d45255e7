package httpapi

import (
	"net/http"
	"strings"

	"github.com/Caizin-Private/QuestEvent/internal/audit"
	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

func (a *API) handleProgramsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listPrograms(w, r)
	case http.MethodPost:
		a.createProgram(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleProgramResource routes /v1/programs/{id} and its sub-resources.
func (a *API) handleProgramResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/programs/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/activities"); ok {
		switch r.Method {
		case http.MethodGet:
			a.listActivities(w, r, id)
		case http.MethodPost:
			a.createActivity(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}
	if id, ok := strings.CutSuffix(path, "/registrations"); ok {
		switch r.Method {
		case http.MethodGet:
			a.listRegistrations(w, r, id)
		case http.MethodPost:
			a.register(w, r, id, registration.KindProgram)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}
	if id, ok := strings.CutSuffix(path, "/wallet"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getProgramWallet(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/settle"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.settleProgram(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getProgram(w, r, path)
	case http.MethodPut:
		a.updateProgram(w, r, path)
	case http.MethodDelete:
		a.deleteProgram(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listPrograms(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionProgramList, authz.ResourceRef{Kind: authz.KindPlatform})
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
	programs, err := a.deps.Programs.List(r.Context(), limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": programs})
}

func (a *API) createProgram(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var payload workflow.ProgramPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Create targets no stored resource yet; facts come from the payload.
	facts := authz.Facts{Kind: authz.KindProgram, Program: &authz.ProgramFacts{
		HostUserID:  payload.HostUserID,
		JudgeUserID: payload.JudgeUserID,
	}}
	if d := a.deps.Authz.Decide(p, authz.ActionProgramCreate, facts); !d.Allowed() {
		writeDecision(w, r, d)
		return
	}

	prog, err := a.deps.Programs.Create(r.Context(), payload)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "program.created", map[string]any{"program_id": prog.ID})
	w.Header().Set("Location", "/v1/programs/"+prog.ID)
	writeJSON(w, http.StatusCreated, prog)
}

func (a *API) getProgram(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionProgramRead, authz.ResourceRef{Kind: authz.KindProgram, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	prog, err := a.deps.Programs.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (a *API) updateProgram(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionProgramUpdate, authz.ResourceRef{Kind: authz.KindProgram, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	var payload workflow.ProgramPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	prog, err := a.deps.Programs.Update(r.Context(), id, payload)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "program.updated", map[string]any{"program_id": id})
	writeJSON(w, http.StatusOK, prog)
}

func (a *API) deleteProgram(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionProgramDelete, authz.ResourceRef{Kind: authz.KindProgram, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	if err := a.deps.Programs.Delete(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "program.deleted", map[string]any{"program_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getProgramWallet(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionProgramWalletRead, authz.ResourceRef{Kind: authz.KindProgram, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	w2, err := a.deps.ProgramWallets.ProgramBalance(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, w2)
}

func (a *API) settleProgram(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionProgramSettle, authz.ResourceRef{Kind: authz.KindProgram, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	settled, err := a.deps.ProgramWallets.Settle(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "program.settled", map[string]any{"program_id": id, "balance": settled.Balance})
	writeJSON(w, http.StatusOK, settled)
}

func (a *API) listActivities(w http.ResponseWriter, r *http.Request, programID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionActivityList, authz.ResourceRef{Kind: authz.KindProgram, ID: programID})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	activities, err := a.deps.Programs.ListActivities(r.Context(), programID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": activities})
}

func (a *API) createActivity(w http.ResponseWriter, r *http.Request, programID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	prog, err := a.deps.Programs.Get(r.Context(), programID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	facts := authz.Facts{Kind: authz.KindActivity, Activity: &authz.ActivityFacts{
		ProgramID:   prog.ID,
		HostUserID:  prog.HostUserID,
		JudgeUserID: prog.JudgeUserID,
	}}
	if d := a.deps.Authz.Decide(p, authz.ActionActivityCreate, facts); !d.Allowed() {
		writeDecision(w, r, d)
		return
	}

	var payload workflow.ActivityPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	act, err := a.deps.Programs.CreateActivity(r.Context(), programID, payload)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "activity.created", map[string]any{"activity_id": act.ID, "program_id": programID})
	w.Header().Set("Location", "/v1/activities/"+act.ID)
	writeJSON(w, http.StatusCreated, act)
}
