package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subsplit/subsplit/internal/middleware"
	"github.com/subsplit/subsplit/internal/models"
)

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, actorID, contributorID string) (*models.Contributor, error)) {
	userID := middleware.GetUserID(r.Context())
	contributorID := chi.URLParam(r, "contributorID")

	c, err := apply(r.Context(), userID, contributorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributorResponse(c, ""))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.settlements.Submit)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.settlements.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.settlements.Reject)
}

func (s *Server) handleSelfSettle(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.settlements.SelfSettle)
}

func (s *Server) handleRemind(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	contributorID := chi.URLParam(r, "contributorID")

	res, err := s.settlements.Remind(r.Context(), userID, contributorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse{
		Contributor:   toContributorResponse(res.Contributor, ""),
		Dispatched:    res.Dispatched,
		DispatchError: res.DispatchError,
	})
}
