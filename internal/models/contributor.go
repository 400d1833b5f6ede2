package models

// SettlementStatus is a contributor's position in the payment lifecycle.
//
// pending -> submitted -> settled, with submitted -> pending on rejection.
// settled is terminal until an external billing-cycle reset.
type SettlementStatus string

const (
	StatusPending   SettlementStatus = "pending"
	StatusSubmitted SettlementStatus = "submitted"
	StatusSettled   SettlementStatus = "settled"
)

// Contributor is one member's share of a subscription's cost.
type Contributor struct {
	// ID is the unique identifier for the contributor row (UUID format).
	ID string

	// SubscriptionID is the subscription this contribution belongs to.
	SubscriptionID string

	// MemberID is the user who owes this share.
	MemberID string

	// SplitValue is the raw strategy-specific input this member supplied:
	// a percentage, an absolute amount, or a share weight. Nil when the
	// member has not supplied one (each strategy defines its own default).
	// Meaningless outside the subscription's current strategy.
	SplitValue *float64

	// CalculatedAmount is the derived monetary allocation under the current
	// strategy. Always present; initialized to 0 for a freshly added member
	// until the next allocation save.
	CalculatedAmount float64

	// Status is the settlement lifecycle state.
	Status SettlementStatus

	// SubmittedAt is the Unix timestamp when the member submitted payment.
	// Zero while pending; cleared again on rejection.
	SubmittedAt int64

	// ApprovedAt is the Unix timestamp when the owner approved the payment.
	ApprovedAt int64

	// PaidAt is the Unix timestamp the payment is considered made.
	PaidAt int64

	// LastReminderAt is the Unix timestamp of the most recent reminder the
	// owner sent for this row. Zero if never reminded.
	LastReminderAt int64

	// CreatedAt is the Unix timestamp when the member was added.
	CreatedAt int64
}

// IsSettled reports whether this contribution is fully paid.
func (c *Contributor) IsSettled() bool {
	return c.Status == StatusSettled
}
