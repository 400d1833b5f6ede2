package models

import "fmt"

// BillingCycle is how often a subscription renews.
type BillingCycle string

const (
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
	CycleOneTime BillingCycle = "one_time"
)

// ParseBillingCycle validates a billing cycle string.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch BillingCycle(s) {
	case CycleWeekly, CycleMonthly, CycleYearly, CycleOneTime:
		return BillingCycle(s), nil
	}
	return "", fmt.Errorf("unknown billing cycle: %q", s)
}

// SplitStrategy is the algorithm used to divide a subscription's total
// among its contributors.
type SplitStrategy string

const (
	StrategyEqual        SplitStrategy = "equal"
	StrategyPercentage   SplitStrategy = "percentage"
	StrategyCustomAmount SplitStrategy = "custom_amount"
	StrategyShares       SplitStrategy = "shares"
)

// ParseSplitStrategy validates a split strategy string.
func ParseSplitStrategy(s string) (SplitStrategy, error) {
	switch SplitStrategy(s) {
	case StrategyEqual, StrategyPercentage, StrategyCustomAmount, StrategyShares:
		return SplitStrategy(s), nil
	}
	return "", fmt.Errorf("unknown split strategy: %q", s)
}

// Subscription represents one recurring cost shared among contributors.
type Subscription struct {
	// ID is the unique identifier for the subscription (UUID format).
	ID string

	// Name is the human-readable service name (e.g., "Netflix", "Gym").
	Name string

	// TotalAmount is the full recurring cost. It is authoritative: the sum
	// of contributor allocations must reconcile against it.
	TotalAmount float64

	// Currency is the ISO 4217 currency code (e.g., "USD").
	Currency string

	// BillingCycle is how often the cost recurs.
	BillingCycle BillingCycle

	// SplitStrategy is the algorithm currently used to allocate the total.
	// Mutable only by the owner, and only through an atomic allocation save.
	SplitStrategy SplitStrategy

	// OwnerID is the user who created the subscription. Only the owner may
	// change the strategy, approve or reject payments, or manage members.
	OwnerID string

	// CreatedAt is the Unix timestamp when the subscription was created.
	CreatedAt int64
}
