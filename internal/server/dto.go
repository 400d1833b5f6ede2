package server

import (
	"github.com/subsplit/subsplit/internal/calculator"
	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/service"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Password    string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type createSubscriptionRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	TotalAmount  float64 `json:"total_amount" validate:"required,gt=0"`
	Currency     string  `json:"currency" validate:"required,len=3"`
	BillingCycle string  `json:"billing_cycle" validate:"required"`
}

type addContributorRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}

type splitInputDTO struct {
	ContributorID string   `json:"contributor_id" validate:"required"`
	Value         *float64 `json:"value"`
}

type splitRequest struct {
	Strategy string          `json:"strategy" validate:"required"`
	Inputs   []splitInputDTO `json:"inputs" validate:"dive"`
}

type issueInviteRequest struct {
	TTLHours int `json:"ttl_hours" validate:"omitempty,gt=0"`
}

type inviteResponse struct {
	Token          string `json:"token"`
	SubscriptionID string `json:"subscription_id"`
	ExpiresAt      int64  `json:"expires_at"`
}

type contributorResponse struct {
	ID               string   `json:"id"`
	MemberID         string   `json:"member_id"`
	DisplayName      string   `json:"display_name"`
	SplitValue       *float64 `json:"split_value"`
	CalculatedAmount float64  `json:"calculated_amount"`
	Status           string   `json:"status"`
	SubmittedAt      int64    `json:"submitted_at,omitempty"`
	ApprovedAt       int64    `json:"approved_at,omitempty"`
	PaidAt           int64    `json:"paid_at,omitempty"`
	LastReminderAt   int64    `json:"last_reminder_at,omitempty"`
}

type totalsResponse struct {
	Covered          float64 `json:"covered"`
	Remaining        float64 `json:"remaining"`
	Pending          float64 `json:"pending"`
	SettledCount     int     `json:"settled_count"`
	UnsettledCount   int     `json:"unsettled_count"`
	AllocationsStale bool    `json:"allocations_stale"`
}

type subscriptionResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	TotalAmount   float64               `json:"total_amount"`
	Currency      string                `json:"currency"`
	BillingCycle  string                `json:"billing_cycle"`
	SplitStrategy string                `json:"split_strategy"`
	OwnerID       string                `json:"owner_id"`
	CreatedAt     int64                 `json:"created_at"`
	Contributors  []contributorResponse `json:"contributors,omitempty"`
	Totals        *totalsResponse       `json:"totals,omitempty"`
}

type allocationResponse struct {
	ContributorID string   `json:"contributor_id"`
	RawValue      *float64 `json:"raw_value"`
	Amount        float64  `json:"amount"`
}

type previewResponse struct {
	Strategy    string               `json:"strategy"`
	Allocations []allocationResponse `json:"allocations"`
	Valid       bool                 `json:"valid"`
	Reason      string               `json:"reason,omitempty"`
}

type reminderResponse struct {
	Contributor   contributorResponse `json:"contributor"`
	Dispatched    bool                `json:"dispatched"`
	DispatchError string              `json:"dispatch_error,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

func toContributorResponse(c *models.Contributor, displayName string) contributorResponse {
	return contributorResponse{
		ID:               c.ID,
		MemberID:         c.MemberID,
		DisplayName:      displayName,
		SplitValue:       c.SplitValue,
		CalculatedAmount: c.CalculatedAmount,
		Status:           string(c.Status),
		SubmittedAt:      c.SubmittedAt,
		ApprovedAt:       c.ApprovedAt,
		PaidAt:           c.PaidAt,
		LastReminderAt:   c.LastReminderAt,
	}
}

func toSubscriptionResponse(v *service.SubscriptionView) subscriptionResponse {
	resp := subscriptionResponse{
		ID:            v.Subscription.ID,
		Name:          v.Subscription.Name,
		TotalAmount:   v.Subscription.TotalAmount,
		Currency:      v.Subscription.Currency,
		BillingCycle:  string(v.Subscription.BillingCycle),
		SplitStrategy: string(v.Subscription.SplitStrategy),
		OwnerID:       v.Subscription.OwnerID,
		CreatedAt:     v.Subscription.CreatedAt,
		Totals: &totalsResponse{
			Covered:          v.Totals.Covered,
			Remaining:        v.Totals.Remaining,
			Pending:          v.Totals.Pending,
			SettledCount:     v.Totals.SettledCount,
			UnsettledCount:   v.Totals.UnsettledCount,
			AllocationsStale: v.Totals.AllocationsStale,
		},
	}
	for _, c := range v.Contributors {
		resp.Contributors = append(resp.Contributors, toContributorResponse(c.Contributor, c.DisplayName))
	}
	return resp
}

func toPreviewResponse(res calculator.Result) previewResponse {
	resp := previewResponse{
		Strategy: string(res.Strategy),
		Valid:    res.Valid,
		Reason:   res.Reason,
	}
	for _, a := range res.Allocations {
		resp.Allocations = append(resp.Allocations, allocationResponse{
			ContributorID: a.MemberID,
			RawValue:      a.RawValue,
			Amount:        a.Amount,
		})
	}
	return resp
}
