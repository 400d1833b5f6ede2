package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/subsplit/subsplit/internal/metrics"
	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/notify"
	"github.com/subsplit/subsplit/internal/settlement"
	"github.com/subsplit/subsplit/internal/storage"
)

// SettlementService drives contributor rows through the payment lifecycle.
// Every transition is computed in memory by the settlement package and
// persisted with a guard on the previous status, so a transition that lost
// a race is rejected rather than overwriting a terminal state. Transitions
// on different rows of the same subscription never block each other.
type SettlementService struct {
	store      storage.Store
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// NewSettlementService creates a SettlementService. A nil dispatcher falls
// back to the logging dispatcher.
func NewSettlementService(store storage.Store, dispatcher notify.Dispatcher) *SettlementService {
	if dispatcher == nil {
		dispatcher = notify.LogDispatcher{}
	}
	return &SettlementService{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Submit records that the contributor has paid their share and is awaiting
// the owner's approval.
func (s *SettlementService) Submit(ctx context.Context, actorID, contributorID string) (*models.Contributor, error) {
	return s.transition(ctx, contributorID, "submit", func(c *models.Contributor, ownerID string) error {
		return settlement.Submit(c, actorID, s.now())
	})
}

// Approve settles a submitted contribution. Owner only, never their own.
func (s *SettlementService) Approve(ctx context.Context, actorID, contributorID string) (*models.Contributor, error) {
	return s.transition(ctx, contributorID, "approve", func(c *models.Contributor, ownerID string) error {
		return settlement.Approve(c, ownerID, actorID, s.now())
	})
}

// Reject sends a submitted contribution back to pending so the member can
// resubmit. Owner only, never their own.
func (s *SettlementService) Reject(ctx context.Context, actorID, contributorID string) (*models.Contributor, error) {
	return s.transition(ctx, contributorID, "reject", func(c *models.Contributor, ownerID string) error {
		return settlement.Reject(c, ownerID, actorID)
	})
}

// SelfSettle marks the owner's own contribution as paid in one step.
func (s *SettlementService) SelfSettle(ctx context.Context, actorID, contributorID string) (*models.Contributor, error) {
	return s.transition(ctx, contributorID, "self_settle", func(c *models.Contributor, ownerID string) error {
		return settlement.SelfSettle(c, ownerID, actorID, s.now())
	})
}

// ReminderResult is the outcome of a reminder request. The timestamp write
// and the dispatch are reported separately: a failed dispatch does not
// undo the recorded reminder.
type ReminderResult struct {
	Contributor *models.Contributor

	// Dispatched is false when the notification collaborator failed;
	// DispatchError carries the reason.
	Dispatched    bool
	DispatchError string
}

// Remind stamps last_reminder_at on a non-settled row and asks the
// dispatcher to deliver a nudge. Owner only, never their own row.
func (s *SettlementService) Remind(ctx context.Context, actorID, contributorID string) (*ReminderResult, error) {
	c, ownerID, err := s.loadRow(ctx, contributorID)
	if err != nil {
		return nil, err
	}

	if err := settlement.Remind(c, ownerID, actorID, s.now()); err != nil {
		return nil, mapSettlementErr(err)
	}

	if err := s.store.RecordReminder(ctx, c.ID, c.LastReminderAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundf("contributor %s", contributorID)
		}
		return nil, dependencyf("record reminder: %v", err)
	}

	res := &ReminderResult{Contributor: c, Dispatched: true}
	if err := s.dispatcher.DispatchReminder(ctx, c.ID); err != nil {
		// Best-effort: the reminder timestamp stands, the failure is
		// part of the reported outcome.
		slog.Warn("Reminder dispatch failed", "contributor_id", c.ID, "error", err)
		res.Dispatched = false
		res.DispatchError = err.Error()
		metrics.RemindersTotal.WithLabelValues("dispatch_failed").Inc()
	} else {
		metrics.RemindersTotal.WithLabelValues("dispatched").Inc()
	}

	slog.Info("Reminder recorded", "contributor_id", c.ID, "dispatched", res.Dispatched)
	return res, nil
}

func (s *SettlementService) transition(ctx context.Context, contributorID, event string, apply func(c *models.Contributor, ownerID string) error) (*models.Contributor, error) {
	c, ownerID, err := s.loadRow(ctx, contributorID)
	if err != nil {
		return nil, err
	}

	from := c.Status
	if err := apply(c, ownerID); err != nil {
		return nil, mapSettlementErr(err)
	}

	if err := s.store.TransitionContributor(ctx, c, from); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, conflictf("contribution changed concurrently, reload and retry")
		case errors.Is(err, storage.ErrNotFound):
			return nil, notFoundf("contributor %s", contributorID)
		default:
			return nil, dependencyf("persist transition: %v", err)
		}
	}

	metrics.SettlementTransitionsTotal.WithLabelValues(event).Inc()
	slog.Info("Settlement transition",
		"contributor_id", c.ID,
		"event", event,
		"from", from,
		"to", c.Status,
	)
	return c, nil
}

func (s *SettlementService) loadRow(ctx context.Context, contributorID string) (*models.Contributor, string, error) {
	c, err := s.store.GetContributor(ctx, contributorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", notFoundf("contributor %s", contributorID)
		}
		return nil, "", dependencyf("get contributor: %v", err)
	}
	sub, err := s.store.GetSubscription(ctx, c.SubscriptionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", notFoundf("subscription %s", c.SubscriptionID)
		}
		return nil, "", dependencyf("get subscription: %v", err)
	}
	return c, sub.OwnerID, nil
}

// mapSettlementErr translates the state machine's sentinels into the
// service error taxonomy.
func mapSettlementErr(err error) error {
	switch {
	case errors.Is(err, settlement.ErrInvalidTransition):
		return conflictf("%v", err)
	case errors.Is(err, settlement.ErrNotContributor),
		errors.Is(err, settlement.ErrNotOwner),
		errors.Is(err, settlement.ErrOwnSubmission),
		errors.Is(err, settlement.ErrNotOwnRow),
		errors.Is(err, settlement.ErrRemindSelf):
		return permissionf("%v", err)
	default:
		return err
	}
}
