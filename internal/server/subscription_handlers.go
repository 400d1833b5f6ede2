package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subsplit/subsplit/internal/middleware"
	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/service"
)

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createSubscriptionRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cycle, err := models.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		writeError(w, service.ErrValidation)
		return
	}

	view, err := s.subscriptions.Create(r.Context(), userID, req.Name, req.TotalAmount, req.Currency, cycle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(view))
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	view, err := s.subscriptions.Get(r.Context(), userID, subID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(view))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	subs, err := s.subscriptions.ListByMember(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]subscriptionResponse, len(subs))
	for i, sub := range subs {
		resp[i] = subscriptionResponse{
			ID:            sub.ID,
			Name:          sub.Name,
			TotalAmount:   sub.TotalAmount,
			Currency:      sub.Currency,
			BillingCycle:  string(sub.BillingCycle),
			SplitStrategy: string(sub.SplitStrategy),
			OwnerID:       sub.OwnerID,
			CreatedAt:     sub.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	if err := s.subscriptions.Delete(r.Context(), userID, subID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddContributor(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	var req addContributorRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.subscriptions.AddContributor(r.Context(), userID, subID, req.MemberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(view))
}

func (s *Server) handleRemoveContributor(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")
	contributorID := chi.URLParam(r, "contributorID")

	view, err := s.subscriptions.RemoveContributor(r.Context(), userID, subID, contributorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(view))
}

func (s *Server) splitArgs(r *http.Request) (models.SplitStrategy, service.RawInputs, error) {
	var req splitRequest
	if err := s.decode(r, &req); err != nil {
		return "", nil, err
	}
	strategy, err := models.ParseSplitStrategy(req.Strategy)
	if err != nil {
		return "", nil, service.ErrValidation
	}
	inputs := make(service.RawInputs, len(req.Inputs))
	for _, in := range req.Inputs {
		inputs[in.ContributorID] = in.Value
	}
	return strategy, inputs, nil
}

func (s *Server) handlePreviewSplit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	strategy, inputs, err := s.splitArgs(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.subscriptions.PreviewSplit(r.Context(), userID, subID, strategy, inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewResponse(res))
}

func (s *Server) handleSaveSplit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	strategy, inputs, err := s.splitArgs(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.subscriptions.SaveSplit(r.Context(), userID, subID, strategy, inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(view))
}

func (s *Server) handleIssueInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	var req issueInviteRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ttl := time.Duration(req.TTLHours) * time.Hour
	if req.TTLHours == 0 {
		ttl = time.Duration(s.inviteTTL) * time.Hour
	}

	inv, err := s.subscriptions.IssueInvite(r.Context(), userID, subID, ttl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{
		Token:          inv.Token,
		SubscriptionID: inv.SubscriptionID,
		ExpiresAt:      inv.ExpiresAt,
	})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	token := chi.URLParam(r, "token")

	view, err := s.subscriptions.AcceptInvite(r.Context(), userID, token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(view))
}
