package calculator

import (
	"math"
	"testing"

	"github.com/subsplit/subsplit/internal/models"
)

func TestComputeTotals(t *testing.T) {
	contributors := []*models.Contributor{
		{CalculatedAmount: 40, Status: models.StatusSettled},
		{CalculatedAmount: 30, Status: models.StatusSubmitted},
		{CalculatedAmount: 30, Status: models.StatusPending},
	}

	totals := ComputeTotals(100, contributors, Tolerances{})

	if math.Abs(totals.Covered-40) > 0.01 {
		t.Errorf("Covered = %v, want 40", totals.Covered)
	}
	if math.Abs(totals.Remaining-60) > 0.01 {
		t.Errorf("Remaining = %v, want 60", totals.Remaining)
	}
	if math.Abs(totals.Pending-60) > 0.01 {
		t.Errorf("Pending = %v, want 60", totals.Pending)
	}
	if totals.SettledCount != 1 || totals.UnsettledCount != 2 {
		t.Errorf("counts = %d/%d, want 1/2", totals.SettledCount, totals.UnsettledCount)
	}
	if totals.AllocationsStale {
		t.Error("allocations reconcile, should not be stale")
	}
}

func TestComputeTotalsFlagsStaleAllocations(t *testing.T) {
	// A removed member leaves the remaining rows short of the total.
	contributors := []*models.Contributor{
		{CalculatedAmount: 50, Status: models.StatusPending},
	}

	totals := ComputeTotals(100, contributors, Tolerances{})
	if !totals.AllocationsStale {
		t.Error("expected stale flag when allocations do not reconcile")
	}
}

func TestComputeTotalsEmptyRegistry(t *testing.T) {
	totals := ComputeTotals(100, nil, Tolerances{})
	if totals.AllocationsStale {
		t.Error("empty registry should not be flagged stale")
	}
	if totals.Remaining != 100 {
		t.Errorf("Remaining = %v, want 100", totals.Remaining)
	}
}
