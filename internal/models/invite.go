package models

import "time"

// Invite is a joinable token for a subscription. Anyone who presents an
// unexpired, unused token becomes a contributor. Delivery of the token
// (email, messaging) is outside this service.
type Invite struct {
	// Token is the opaque invite code (UUID format).
	Token string

	// SubscriptionID is the subscription the invite joins.
	SubscriptionID string

	// IssuedBy is the owner who created the invite.
	IssuedBy string

	// ExpiresAt is the Unix timestamp after which the token is invalid.
	ExpiresAt int64

	// RedeemedBy is the user who accepted the invite, empty while unused.
	RedeemedBy string

	// CreatedAt is the Unix timestamp when the invite was issued.
	CreatedAt int64
}

// Expired reports whether the invite can no longer be redeemed.
func (i *Invite) Expired(now time.Time) bool {
	return now.Unix() > i.ExpiresAt
}

// Redeemed reports whether the invite has already been used.
func (i *Invite) Redeemed() bool {
	return i.RedeemedBy != ""
}
