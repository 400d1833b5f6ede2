// Package notify defines the reminder dispatch collaborator. Dispatch is
// best-effort: a failed delivery is reported to the caller but never rolls
// back the reminder timestamp that was written for it.
package notify

import (
	"context"
	"log/slog"
)

// Dispatcher delivers payment reminders to contributors. Implementations
// own the delivery channel (push, email); this core only records outcomes.
type Dispatcher interface {
	DispatchReminder(ctx context.Context, contributorID string) error
}

// LogDispatcher is the default Dispatcher: it records the reminder in the
// structured log and always succeeds. Useful for development and tests.
type LogDispatcher struct{}

// DispatchReminder logs the reminder.
func (LogDispatcher) DispatchReminder(ctx context.Context, contributorID string) error {
	slog.Info("Reminder dispatched", "contributor_id", contributorID)
	return nil
}
