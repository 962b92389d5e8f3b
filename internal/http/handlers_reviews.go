package http

import (
	"errors"
	"net/http"

	"finanzas/internal/confirm"
	"finanzas/internal/core"
	"finanzas/internal/engine"
	"finanzas/internal/log"
)

// ReviewView is a review as sent to clients: its snapshot plus the rendered
// presentation of the current outcome, if any.
type ReviewView struct {
	confirm.Snapshot
	Presentation *engine.Presentation `json:"presentation,omitempty"`
}

type cancelView struct {
	ReviewView
	// SafetyStop is set when the cancelled outcome was a low-balance warning.
	SafetyStop bool `json:"safety_stop"`
}

func viewOf(c *confirm.Controller) ReviewView {
	v := ReviewView{Snapshot: c.Snapshot()}
	if v.Outcome != nil {
		p := engine.Render(*v.Outcome)
		v.Presentation = &p
	}
	return v
}

// readDraft parses and structurally validates the draft in the body.
func (s *Server) readDraft(r *http.Request) (core.TransactionDraft, error) {
	draft, err := ParseDraft(NewRequestBodyParser(r), today(s.now))
	if err != nil {
		return core.TransactionDraft{}, err
	}
	if err := draft.Validate(); err != nil {
		return core.TransactionDraft{}, err
	}
	return draft, nil
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) (*confirm.Controller, bool) {
	c, err := s.reviews.Get(userFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, nil)
		return nil, false
	}
	return c, true
}

// handleCreateReview opens a review for the draft in the body and evaluates
// it. Blocked and Denied drafts answer with the rejected review attached.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())
	draft, err := s.readDraft(r)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	c := s.reviews.Open(userID)
	s.appMetrics.reviewsOpened.Add(1)
	if _, err := c.Review(r.Context(), draft); err != nil {
		if s.rejected(err) {
			writeError(w, r, err, viewOf(c))
			return
		}
		s.reviews.Close(userID, c.ID())
		writeError(w, r, err, nil)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/reviews/"+c.ID()).
		Body(viewOf(c)).
		Write(w)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	c, ok := s.review(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(viewOf(c)).Write(w)
}

// handleEditDraft replaces the draft of a review. The previous outcome is
// dropped and the new draft is evaluated from scratch.
func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	c, ok := s.review(w, r)
	if !ok {
		return
	}
	draft, err := s.readDraft(r)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	if _, err := c.Revise(r.Context(), draft); err != nil {
		s.rejected(err)
		writeError(w, r, err, viewOf(c))
		return
	}
	NewJSONResponse().Body(viewOf(c)).Write(w)
}

// handleConfirmReview records the draft under review. A ledger refusal
// leaves the review rejected and answers 502.
func (s *Server) handleConfirmReview(w http.ResponseWriter, r *http.Request) {
	c, ok := s.review(w, r)
	if !ok {
		return
	}

	tx, err := c.Confirm(r.Context())
	if err != nil {
		var pf *confirm.PersistenceFailure
		if errors.As(err, &pf) {
			s.appMetrics.persistenceFailed.Add(1)
		}
		writeError(w, r, err, viewOf(c))
		return
	}

	s.appMetrics.reviewsConfirmed.Add(1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Review confirmed",
		log.FieldReviewID, c.ID(), log.FieldTransaction, tx.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(viewOf(c)).Write(w)
}

func (s *Server) handleCancelReview(w http.ResponseWriter, r *http.Request) {
	c, ok := s.review(w, r)
	if !ok {
		return
	}
	safetyStop, err := c.Cancel()
	if err != nil {
		writeError(w, r, err, viewOf(c))
		return
	}
	NewJSONResponse().Body(cancelView{ReviewView: viewOf(c), SafetyStop: safetyStop}).Write(w)
}

func (s *Server) handleAcknowledgeReview(w http.ResponseWriter, r *http.Request) {
	c, ok := s.review(w, r)
	if !ok {
		return
	}
	if err := c.Acknowledge(); err != nil {
		writeError(w, r, err, viewOf(c))
		return
	}
	NewJSONResponse().Body(viewOf(c)).Write(w)
}

// rejected counts Blocked and Denied verdicts and reports whether err is one.
func (s *Server) rejected(err error) bool {
	if errors.Is(err, confirm.ErrBlocked) || errors.Is(err, confirm.ErrDenied) {
		s.appMetrics.reviewsRejected.Add(1)
		return true
	}
	return false
}
