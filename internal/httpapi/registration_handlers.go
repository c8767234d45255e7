package httpapi

import (
	"net/http"
	"strings"

	"github.com/Caizin-Private/QuestEvent/internal/audit"
	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/registration"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

// register creates a registration for a program or activity target.
func (a *API) register(w http.ResponseWriter, r *http.Request, targetID string, kind registration.Kind) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	// The target must exist before the policy runs.
	var fee float64
	if kind == registration.KindProgram {
		prog, err := a.deps.Programs.Get(r.Context(), targetID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		fee = prog.RegistrationFee
	} else {
		if _, err := a.deps.Programs.GetActivity(r.Context(), targetID); err != nil {
			handleDomainError(w, r, err)
			return
		}
	}

	var payload workflow.RegistrationPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": []string{"userId"},
		})
		return
	}

	facts := authz.Facts{Kind: authz.KindRegistration, Registration: &authz.RegistrationFacts{
		UserID:   payload.UserID,
		TargetID: targetID,
	}}
	if d := a.deps.Authz.Decide(p, authz.ActionRegistrationCreate, facts); !d.Allowed() {
		writeDecision(w, r, d)
		return
	}

	reg, err := a.deps.Registrations.Register(r.Context(), payload.UserID, targetID, kind)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if fee > 0 {
		// Collect the program's registration fee; the registration id keys
		// the ledger so a replay cannot double-charge.
		if _, err := a.deps.ProgramWallets.CollectFee(r.Context(), targetID, payload.UserID, fee, "registration:"+reg.ID); err != nil {
			handleDomainError(w, r, err)
			return
		}
	}
	_ = audit.LogEvent(r.Context(), "registration.created", map[string]any{
		"registration_id": reg.ID,
		"target_id":       targetID,
	})
	w.Header().Set("Location", "/v1/registrations/"+reg.ID)
	writeJSON(w, http.StatusCreated, reg)
}

// handleRegistrationsCollection serves GET /v1/registrations, optionally
// filtered by a target query parameter.
func (a *API) handleRegistrationsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	a.listRegistrations(w, r, r.URL.Query().Get("target"))
}

func (a *API) listRegistrations(w http.ResponseWriter, r *http.Request, targetID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionRegistrationList, authz.ResourceRef{Kind: authz.KindPlatform})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	regs, err := a.deps.Registrations.List(r.Context(), targetID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": regs})
}

// handleRegistrationResource routes /v1/registrations/{id}.
func (a *API) handleRegistrationResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/registrations/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionRegistrationRead, authz.ResourceRef{Kind: authz.KindRegistration, ID: id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	reg, err := a.deps.Registrations.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}
