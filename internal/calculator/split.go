// Package calculator computes contributor allocations for a shared
// subscription. All functions are pure: no storage, no clocks, no
// side effects. Callers persist results only when Result.Valid is true.
package calculator

import (
	"fmt"
	"math"

	"github.com/subsplit/subsplit/internal/models"
)

// Tolerances are the bounds inside which sums are considered reconciled.
// Money sums are checked against Reconcile; percentage inputs against
// Percent. Zero values fall back to the defaults.
type Tolerances struct {
	// Reconcile is the allowed absolute difference between the sum of
	// calculated amounts and the subscription total, in currency units.
	Reconcile float64

	// Percent is the allowed absolute difference between the sum of
	// percentage inputs and 100.
	Percent float64
}

// DefaultTolerances are the bounds used when the caller passes zero values.
var DefaultTolerances = Tolerances{Reconcile: 0.01, Percent: 0.5}

func (t Tolerances) withDefaults() Tolerances {
	if t.Reconcile == 0 {
		t.Reconcile = DefaultTolerances.Reconcile
	}
	if t.Percent == 0 {
		t.Percent = DefaultTolerances.Percent
	}
	return t
}

// SplitInput is a member's raw split input, tagged by strategy so that a
// percentage can never be silently reinterpreted as an absolute amount.
// A nil SplitInput means the member has not supplied a value; each strategy
// defines its own default.
type SplitInput interface {
	splitInput()
}

// EqualSplit carries no value; the total is divided evenly.
type EqualSplit struct{}

// PercentageSplit is a percentage of the total, 0-100.
type PercentageSplit struct {
	Percent float64
}

// CustomAmountSplit is an absolute amount in the subscription's currency.
type CustomAmountSplit struct {
	Amount float64
}

// SharesSplit is a proportional weight relative to the other members.
type SharesSplit struct {
	Weight float64
}

func (EqualSplit) splitInput()        {}
func (PercentageSplit) splitInput()   {}
func (CustomAmountSplit) splitInput() {}
func (SharesSplit) splitInput()       {}

// InputForStrategy builds the tagged input for a stored raw value under the
// given strategy. A nil raw value stays nil (strategy default applies).
func InputForStrategy(strategy models.SplitStrategy, raw *float64) SplitInput {
	if raw == nil || strategy == models.StrategyEqual {
		return nil
	}
	switch strategy {
	case models.StrategyPercentage:
		return PercentageSplit{Percent: *raw}
	case models.StrategyCustomAmount:
		return CustomAmountSplit{Amount: *raw}
	case models.StrategyShares:
		return SharesSplit{Weight: *raw}
	}
	return nil
}

// Member is one participant's input to an allocation run.
type Member struct {
	// MemberID identifies the participant; allocations are keyed by it.
	MemberID string

	// Input is the member's raw split input, nil if not supplied.
	Input SplitInput
}

// Allocation is one member's computed share.
type Allocation struct {
	// MemberID is the participant this share belongs to.
	MemberID string

	// RawValue is the normalized raw input to persist: nil for equal
	// splits, the defaulted value otherwise.
	RawValue *float64

	// Amount is the member's monetary share of the total.
	Amount float64
}

// Result is a full allocation run. Amounts are always computed, even when
// the inputs do not reconcile; Valid gates persistence.
type Result struct {
	Strategy    models.SplitStrategy
	Allocations []Allocation

	// Valid is true when the inputs reconcile against the total. Callers
	// must not persist an invalid result.
	Valid bool

	// Reason explains why Valid is false, empty otherwise.
	Reason string
}

// Sum returns the total of all calculated amounts.
func (r Result) Sum() float64 {
	var sum float64
	for _, a := range r.Allocations {
		sum += a.Amount
	}
	return sum
}

// Reconciles reports whether amounts sum to total within the tolerance.
func Reconciles(total float64, amounts []float64, tol Tolerances) bool {
	tol = tol.withDefaults()
	var sum float64
	for _, a := range amounts {
		sum += a
	}
	return math.Abs(sum-total) <= tol.Reconcile
}

// ComputeAllocations derives each member's share of total under the given
// strategy. It returns an error for structurally bad input (negative total,
// negative raw values, inputs tagged for a different strategy); soft
// problems such as percentages not summing to 100 come back as a computed
// but invalid Result instead, so the caller can show the amounts while
// refusing to save them.
//
// Zero members yields an empty valid result; the caller must not persist it.
func ComputeAllocations(total float64, strategy models.SplitStrategy, members []Member, tol Tolerances) (Result, error) {
	if total < 0 {
		return Result{}, fmt.Errorf("total amount cannot be negative: %v", total)
	}
	tol = tol.withDefaults()

	res := Result{Strategy: strategy, Valid: true}
	if len(members) == 0 {
		return res, nil
	}

	switch strategy {
	case models.StrategyEqual:
		return computeEqual(total, members)
	case models.StrategyPercentage:
		return computePercentage(total, members, tol)
	case models.StrategyCustomAmount:
		return computeCustomAmount(total, members, tol)
	case models.StrategyShares:
		return computeShares(total, members)
	}
	return Result{}, fmt.Errorf("unknown split strategy: %q", strategy)
}

func computeEqual(total float64, members []Member) (Result, error) {
	res := Result{Strategy: models.StrategyEqual, Valid: true}
	share := total / float64(len(members))
	for _, m := range members {
		// Raw input is ignored and reset: equal splits carry no value.
		res.Allocations = append(res.Allocations, Allocation{
			MemberID: m.MemberID,
			Amount:   share,
		})
	}
	return res, nil
}

func computePercentage(total float64, members []Member, tol Tolerances) (Result, error) {
	res := Result{Strategy: models.StrategyPercentage, Valid: true}
	var pctSum float64
	for _, m := range members {
		pct, err := percentOf(m)
		if err != nil {
			return Result{}, err
		}
		pctSum += pct
		res.Allocations = append(res.Allocations, Allocation{
			MemberID: m.MemberID,
			RawValue: ptr(pct),
			Amount:   total * (pct / 100),
		})
	}
	if math.Abs(pctSum-100) > tol.Percent {
		res.Valid = false
		res.Reason = fmt.Sprintf("percentages sum to %.2f, want 100", pctSum)
	}
	return res, nil
}

func computeCustomAmount(total float64, members []Member, tol Tolerances) (Result, error) {
	res := Result{Strategy: models.StrategyCustomAmount, Valid: true}
	var sum float64
	for _, m := range members {
		amount, err := amountOf(m)
		if err != nil {
			return Result{}, err
		}
		sum += amount
		res.Allocations = append(res.Allocations, Allocation{
			MemberID: m.MemberID,
			RawValue: ptr(amount),
			Amount:   amount,
		})
	}
	if math.Abs(sum-total) > tol.Reconcile {
		res.Valid = false
		res.Reason = fmt.Sprintf("custom amounts sum to %.2f, want %.2f", sum, total)
	}
	return res, nil
}

func computeShares(total float64, members []Member) (Result, error) {
	res := Result{Strategy: models.StrategyShares, Valid: true}
	weights := make([]float64, len(members))
	var weightSum float64
	for i, m := range members {
		w, err := weightOf(m)
		if err != nil {
			return Result{}, err
		}
		weights[i] = w
		weightSum += w
	}
	// Absent or zero weights default to 1, so weightSum > 0 whenever there
	// is at least one member.
	for i, m := range members {
		res.Allocations = append(res.Allocations, Allocation{
			MemberID: m.MemberID,
			RawValue: ptr(weights[i]),
			Amount:   total * (weights[i] / weightSum),
		})
	}
	return res, nil
}

func percentOf(m Member) (float64, error) {
	if m.Input == nil {
		return 0, nil
	}
	in, ok := m.Input.(PercentageSplit)
	if !ok {
		return 0, fmt.Errorf("member %s: input %T does not match percentage strategy", m.MemberID, m.Input)
	}
	if in.Percent < 0 {
		return 0, fmt.Errorf("member %s: percentage cannot be negative", m.MemberID)
	}
	return in.Percent, nil
}

func amountOf(m Member) (float64, error) {
	if m.Input == nil {
		return 0, nil
	}
	in, ok := m.Input.(CustomAmountSplit)
	if !ok {
		return 0, fmt.Errorf("member %s: input %T does not match custom amount strategy", m.MemberID, m.Input)
	}
	if in.Amount < 0 {
		return 0, fmt.Errorf("member %s: amount cannot be negative", m.MemberID)
	}
	return in.Amount, nil
}

func weightOf(m Member) (float64, error) {
	if m.Input == nil {
		return 1, nil
	}
	in, ok := m.Input.(SharesSplit)
	if !ok {
		return 0, fmt.Errorf("member %s: input %T does not match shares strategy", m.MemberID, m.Input)
	}
	if in.Weight < 0 {
		return 0, fmt.Errorf("member %s: share weight cannot be negative", m.MemberID)
	}
	if in.Weight == 0 {
		return 1, nil
	}
	return in.Weight, nil
}

func ptr(v float64) *float64 { return &v }
