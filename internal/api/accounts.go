package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rowanveldt/weathervane/internal/auth"
)

// createAccountRequest is the payload for account creation. The API key is
// never accepted from the caller; it is generated here and returned exactly
// once in the creation response.
type createAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// handleListAccounts returns all accounts.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts, "count": len(accounts)})
}

// handleGetAccount returns a single account by ID.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	account, err := s.accounts.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			writeNotFound(w, "account not found")
			return
		}
		writeInternalError(w, "failed to get account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// handleCreateAccount creates a new account with a generated API key.
// The role is upper-cased before validation so "teacher" and "TEACHER"
// both work, but unknown roles are rejected outright.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid account payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	role, err := auth.ParseRole(strings.ToUpper(req.Role))
	if err != nil {
		writeBadRequest(w, "role must be one of STUDENT, TEACHER, SENSOR")
		return
	}

	account := &auth.Account{
		Username: req.Username,
		Password: req.Password,
		Role:     role,
		Email:    req.Email,
		APIKey:   auth.NewAPIKey(),
	}

	if err := s.accounts.Insert(r.Context(), account); err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			writeConflict(w, "username already exists")
			return
		}
		s.logger.Error("failed to create account", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// handleDeleteAccount removes a single account by ID.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.accounts.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			writeNotFound(w, "account not found")
			return
		}
		writeInternalError(w, "failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAccountsByRole bulk-deletes accounts holding the given role
// whose last access falls in [start, end]. Responds with the number removed.
func (s *Server) handleDeleteAccountsByRole(w http.ResponseWriter, r *http.Request) {
	role, err := auth.ParseRole(strings.ToUpper(chi.URLParam(r, "role")))
	if err != nil {
		writeBadRequest(w, "role must be one of STUDENT, TEACHER, SENSOR")
		return
	}
	start, end, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	deleted, err := s.accounts.DeleteByRoleAndLoginRange(r.Context(), role, start, end)
	if err != nil {
		writeInternalError(w, "failed to delete accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// handleBulkUpdateRole sets a new role on every account whose last access
// falls in [start, end]. Responds with the number updated.
func (s *Server) handleBulkUpdateRole(w http.ResponseWriter, r *http.Request) {
	role, err := auth.ParseRole(strings.ToUpper(r.URL.Query().Get("role")))
	if err != nil {
		writeBadRequest(w, "role must be one of STUDENT, TEACHER, SENSOR")
		return
	}
	start, end, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	updated, err := s.accounts.UpdateRoleForLoginRange(r.Context(), start, end, role)
	if err != nil {
		writeInternalError(w, "failed to update account roles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}
