// Package invite issues joinable tokens for subscriptions. Delivering a
// token to the invitee (email, messaging) is outside this service; the
// issuer only mints and persists it.
package invite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/storage"
)

// Issuer creates invite tokens for a subscription.
type Issuer interface {
	Issue(ctx context.Context, subscriptionID, issuedBy string, expiry time.Time) (*models.Invite, error)
}

// TokenIssuer mints opaque UUID tokens and persists them in the store.
type TokenIssuer struct {
	store storage.Store
}

// NewTokenIssuer creates a store-backed issuer.
func NewTokenIssuer(store storage.Store) *TokenIssuer {
	return &TokenIssuer{store: store}
}

// Issue mints a token valid until expiry.
func (i *TokenIssuer) Issue(ctx context.Context, subscriptionID, issuedBy string, expiry time.Time) (*models.Invite, error) {
	inv := &models.Invite{
		Token:          uuid.New().String(),
		SubscriptionID: subscriptionID,
		IssuedBy:       issuedBy,
		ExpiresAt:      expiry.Unix(),
	}
	if err := i.store.CreateInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to issue invite: %w", err)
	}
	return inv, nil
}
