package http

import (
	"fmt"
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(map[string]any{"accounts": accounts}).Write(w)
}

// handleEligibleAccounts lists the accounts a draft may target, with tiers.
func (s *Server) handleEligibleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.Eligible(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(map[string]any{"accounts": accounts}).Write(w)
}

func (s *Server) handleAccountsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.accounts.Summary(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	a, err := ParseAccount(NewRequestBodyParser(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	created, err := s.accounts.Create(r.Context(), a)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Account created",
		log.FieldAccountID, created.ID, log.FieldOperation, log.OpCreate)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/"+created.ID).
		Body(created).
		Write(w)
}

// handleSetAccountState activates or deactivates an account. Body: {"state": "active"|"inactive"}.
func (s *Server) handleSetAccountState(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed body: %v", errValidation, err), nil)
		return
	}
	state, err := core.ParseAccountState(p.Get("state"))
	if err != nil {
		writeError(w, r, fmt.Errorf("state %q: %w", p.Get("state"), err), nil)
		return
	}
	a, err := s.accounts.SetState(r.Context(), r.PathValue("id"), state)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(a).Write(w)
}

// handleUpdateAccount edits name, kind and state. Body: {"name", "kind", "state"}.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	e, err := ParseAccountEdit(NewRequestBodyParser(r))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	a, err := s.accounts.Update(r.Context(), r.PathValue("id"), e)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(a).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Account deleted",
		log.FieldAccountID, id, log.FieldOperation, log.OpDelete)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
