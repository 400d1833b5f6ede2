package calculator

import "github.com/subsplit/subsplit/internal/models"

// SubscriptionTotals is the coverage read view for one subscription.
type SubscriptionTotals struct {
	// Covered is the sum of settled contributors' calculated amounts.
	Covered float64

	// Remaining is the subscription total minus Covered.
	Remaining float64

	// Pending is the sum of calculated amounts still unsettled. Settled
	// rows are excluded from this bucket by definition.
	Pending float64

	// SettledCount and UnsettledCount break down the registry by status.
	SettledCount   int
	UnsettledCount int

	// AllocationsStale is true when the stored allocations no longer
	// reconcile against the total, e.g. after a member was removed and no
	// recompute has been saved yet. Staleness is surfaced, never silently
	// repaired.
	AllocationsStale bool
}

// ComputeTotals aggregates contributor rows into covered/remaining totals.
func ComputeTotals(total float64, contributors []*models.Contributor, tol Tolerances) SubscriptionTotals {
	t := SubscriptionTotals{Remaining: total}
	amounts := make([]float64, 0, len(contributors))
	for _, c := range contributors {
		amounts = append(amounts, c.CalculatedAmount)
		if c.IsSettled() {
			t.Covered += c.CalculatedAmount
			t.SettledCount++
		} else {
			t.Pending += c.CalculatedAmount
			t.UnsettledCount++
		}
	}
	t.Remaining = total - t.Covered
	t.AllocationsStale = len(contributors) > 0 && !Reconciles(total, amounts, tol)
	return t
}
