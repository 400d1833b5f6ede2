// Package settlement implements the per-contributor payment lifecycle:
//
//	pending -> submitted -> settled
//	submitted -> pending (rejection, re-entrant)
//
// plus the owner's one-step self-settlement shortcut on their own row.
// Transitions mutate a contributor in memory; persisting them with a guard
// on the previous status is the caller's job. settled is terminal here;
// resetting rows for a new billing cycle belongs to an external process.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/subsplit/subsplit/internal/models"
)

var (
	// ErrNotContributor is returned when someone other than the row's
	// member tries to submit payment for it.
	ErrNotContributor = errors.New("only the contributor may submit their own payment")

	// ErrNotOwner is returned when a non-owner tries an owner-only action.
	ErrNotOwner = errors.New("only the subscription owner may do this")

	// ErrOwnSubmission is returned when the owner tries to approve or
	// reject a submission on their own row. The self-settlement shortcut
	// is the only way the owner settles their own share.
	ErrOwnSubmission = errors.New("cannot approve or reject your own submission")

	// ErrNotOwnRow is returned when self-settlement targets a row that
	// does not belong to the owner.
	ErrNotOwnRow = errors.New("self-settlement applies only to the owner's own contribution")

	// ErrRemindSelf is returned when the owner tries to remind themself.
	ErrRemindSelf = errors.New("cannot send a reminder to yourself")

	// ErrInvalidTransition is returned when the row's current status does
	// not permit the requested event. It is always wrapped with detail.
	ErrInvalidTransition = errors.New("invalid settlement transition")
)

// Submit records that the row's member has paid and is awaiting approval.
// Only valid from pending, and only for the member themself.
func Submit(c *models.Contributor, actorID string, now time.Time) error {
	if actorID != c.MemberID {
		return ErrNotContributor
	}
	if c.Status != models.StatusPending {
		return fmt.Errorf("%w: cannot submit a %s contribution", ErrInvalidTransition, c.Status)
	}
	c.Status = models.StatusSubmitted
	c.SubmittedAt = now.Unix()
	return nil
}

// Approve settles a submitted row. Owner-only, and never on the owner's
// own submission.
func Approve(c *models.Contributor, ownerID, actorID string, now time.Time) error {
	if actorID != ownerID {
		return ErrNotOwner
	}
	if c.MemberID == actorID {
		return ErrOwnSubmission
	}
	if c.Status != models.StatusSubmitted {
		return fmt.Errorf("%w: cannot approve a %s contribution", ErrInvalidTransition, c.Status)
	}
	c.Status = models.StatusSettled
	ts := now.Unix()
	c.ApprovedAt = ts
	c.PaidAt = ts
	return nil
}

// Reject sends a submitted row back to pending and clears the submission
// timestamp so the member can submit again. Owner-only, never on the
// owner's own submission.
func Reject(c *models.Contributor, ownerID, actorID string) error {
	if actorID != ownerID {
		return ErrNotOwner
	}
	if c.MemberID == actorID {
		return ErrOwnSubmission
	}
	if c.Status != models.StatusSubmitted {
		return fmt.Errorf("%w: cannot reject a %s contribution", ErrInvalidTransition, c.Status)
	}
	c.Status = models.StatusPending
	c.SubmittedAt = 0
	return nil
}

// SelfSettle marks the owner's own pending row as paid in one step,
// recording all three lifecycle timestamps simultaneously.
func SelfSettle(c *models.Contributor, ownerID, actorID string, now time.Time) error {
	if actorID != ownerID {
		return ErrNotOwner
	}
	if c.MemberID != actorID {
		return ErrNotOwnRow
	}
	if c.Status != models.StatusPending {
		return fmt.Errorf("%w: cannot self-settle a %s contribution", ErrInvalidTransition, c.Status)
	}
	c.Status = models.StatusSettled
	ts := now.Unix()
	c.SubmittedAt = ts
	c.ApprovedAt = ts
	c.PaidAt = ts
	return nil
}

// Remind checks that the owner may nudge this row and stamps the reminder
// time. No status change: reminders are valid for any non-settled row that
// is not the owner's own.
func Remind(c *models.Contributor, ownerID, actorID string, now time.Time) error {
	if actorID != ownerID {
		return ErrNotOwner
	}
	if c.MemberID == actorID {
		return ErrRemindSelf
	}
	if c.Status == models.StatusSettled {
		return fmt.Errorf("%w: contribution is already settled", ErrInvalidTransition)
	}
	c.LastReminderAt = now.Unix()
	return nil
}
