// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/subsplit/subsplit/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a guarded write loses: the row's state
	// changed between read and write, e.g. a settlement transition raced
	// another transition on the same row.
	ErrConflict = errors.New("record changed concurrently")
)

// AllocationUpdate is one contributor's slice of an atomic allocation save.
type AllocationUpdate struct {
	ContributorID string
	RawValue      *float64
	Amount        float64
}

// Store defines the persistence operations for subscriptions, contributors,
// users and invites. This abstraction allows swapping storage backends
// (SQLite, PostgreSQL, etc.) without changing the service layer.
type Store interface {
	// CreateSubscription persists a subscription together with its owner's
	// contributor row in one durable unit. Missing IDs and timestamps are
	// populated by the store.
	CreateSubscription(ctx context.Context, sub *models.Subscription, owner *models.Contributor) error

	// GetSubscription retrieves a subscription by ID.
	// Returns ErrNotFound if it does not exist.
	GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)

	// ListSubscriptionsByMember retrieves every subscription the user
	// contributes to, newest first.
	ListSubscriptionsByMember(ctx context.Context, memberID string) ([]*models.Subscription, error)

	// DeleteSubscription removes a subscription and all of its contributor
	// rows and invites. Returns ErrNotFound if it does not exist.
	DeleteSubscription(ctx context.Context, subscriptionID string) error

	// AddContributor inserts a new contributor row.
	AddContributor(ctx context.Context, c *models.Contributor) error

	// GetContributor retrieves a contributor row by ID.
	// Returns ErrNotFound if it does not exist.
	GetContributor(ctx context.Context, contributorID string) (*models.Contributor, error)

	// ListContributors retrieves all contributor rows for a subscription
	// in insertion order.
	ListContributors(ctx context.Context, subscriptionID string) ([]*models.Contributor, error)

	// RemoveContributor deletes a contributor row.
	// Returns ErrNotFound if it does not exist.
	RemoveContributor(ctx context.Context, contributorID string) error

	// SaveAllocations atomically updates the subscription's strategy and
	// every listed contributor's raw input and calculated amount. Any row
	// failure rolls the whole save back; callers never observe a mix of
	// old and new allocations.
	SaveAllocations(ctx context.Context, subscriptionID string, strategy models.SplitStrategy, updates []AllocationUpdate) error

	// TransitionContributor persists a settlement transition, guarded on
	// the status the row had when the transition was computed. Returns
	// ErrConflict if the row's status changed in between, ErrNotFound if
	// the row is gone.
	TransitionContributor(ctx context.Context, c *models.Contributor, from models.SettlementStatus) error

	// RecordReminder stamps last_reminder_at on a contributor row.
	RecordReminder(ctx context.Context, contributorID string, at int64) error

	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) when no
	// such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if it does
	// not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetDisplayNames resolves user IDs to display names. Unknown IDs are
	// simply absent from the result.
	GetDisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)

	// CreateInvite persists a new invite token.
	CreateInvite(ctx context.Context, invite *models.Invite) error

	// GetInvite retrieves an invite by token.
	// Returns ErrNotFound if it does not exist.
	GetInvite(ctx context.Context, token string) (*models.Invite, error)

	// RedeemInvite marks an invite as used by the given user, guarded
	// against double redemption. Returns ErrConflict if it was already
	// redeemed, ErrNotFound if the token does not exist.
	RedeemInvite(ctx context.Context, token, userID string) error

	// Close releases any resources held by the store.
	Close() error
}
