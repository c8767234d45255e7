package httpapi

import (
	"net/http"
	"strings"

	"github.com/Caizin-Private/QuestEvent/internal/audit"
	"github.com/Caizin-Private/QuestEvent/internal/authz"
	"github.com/Caizin-Private/QuestEvent/internal/workflow"
)

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	// Listing accounts is an owner capability; no broader rule matches it.
	if d := a.deps.Authz.Decide(p, authz.ActionUserList, authz.PlatformFacts()); !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	users, err := a.deps.Users.List(r.Context(), limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if d := a.deps.Authz.Decide(p, authz.ActionUserCreate, authz.PlatformFacts()); !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	var payload workflow.UserPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.deps.Users.Create(r.Context(), payload)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.created", map[string]any{"user_id": u.ID, "role": u.Role})
	w.Header().Set("Location", "/v1/users/"+u.ID)
	writeJSON(w, http.StatusCreated, u)
}

type updateUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Gender     string `json:"gender"`
	Role       string `json:"role"`
}

// handleUserResource routes /v1/users/{id}.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionUserRead, authz.ResourceRef{Kind: authz.KindUser, ID: id})
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if !d.Allowed() {
			writeDecision(w, r, d)
			return
		}
		u, err := a.deps.Users.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodPut:
		d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionUserUpdate, authz.ResourceRef{Kind: authz.KindUser, ID: id})
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if !d.Allowed() {
			writeDecision(w, r, d)
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		// Role changes are owner-only even when the caller may edit the
		// profile itself.
		if req.Role != "" {
			if d := a.deps.Authz.Decide(p, authz.ActionUserSetRole, authz.PlatformFacts()); !d.Allowed() {
				writeDecision(w, r, d)
				return
			}
			u, err := a.deps.Users.SetRole(r.Context(), id, req.Role)
			if err != nil {
				handleDomainError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "user.role_changed", map[string]any{"user_id": id, "role": req.Role})
			writeJSON(w, http.StatusOK, u)
			return
		}
		u, err := a.deps.Users.UpdateProfile(r.Context(), id, req.Name, req.Email, req.Department, req.Gender)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.updated", map[string]any{"user_id": id})
		writeJSON(w, http.StatusOK, u)

	case http.MethodDelete:
		d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionUserDelete, authz.ResourceRef{Kind: authz.KindUser, ID: id})
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if !d.Allowed() {
			writeDecision(w, r, d)
			return
		}
		if err := a.deps.Users.Delete(r.Context(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.deleted", map[string]any{"user_id": id})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handleWalletResource routes /v1/wallets/{userID}.
func (a *API) handleWalletResource(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/v1/wallets/")
	if userID == "" || strings.Contains(userID, "/") {
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
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionWalletRead, authz.ResourceRef{Kind: authz.KindWallet, ID: userID})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !d.Allowed() {
		writeDecision(w, r, d)
		return
	}
	wlt, err := a.deps.Wallets.Balance(r.Context(), userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wlt)
}

// handleLeaderboard serves GET /v1/leaderboard.
func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	d, err := a.deps.Authz.Authorize(r.Context(), p, authz.ActionLeaderboardRead, authz.ResourceRef{Kind: authz.KindPlatform})
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
	entries, err := a.deps.Wallets.Leaderboard(r.Context(), limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
