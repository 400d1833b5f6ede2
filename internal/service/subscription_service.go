package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/subsplit/subsplit/internal/calculator"
	"github.com/subsplit/subsplit/internal/invite"
	"github.com/subsplit/subsplit/internal/metrics"
	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/storage"
)

// ContributorView is a contributor row enriched with the member's display
// name for presentation. The name never feeds a calculation.
type ContributorView struct {
	*models.Contributor
	DisplayName string
}

// SubscriptionView is the authoritative read view returned by every
// subscription mutation, so callers never need a separate refresh.
type SubscriptionView struct {
	Subscription *models.Subscription
	Contributors []ContributorView
	Totals       calculator.SubscriptionTotals
}

// RawInputs carries staged strategy-specific values keyed by contributor
// ID. Contributors absent from the map get their strategy's default.
type RawInputs map[string]*float64

// SubscriptionService owns the contributor registry: subscription CRUD,
// membership changes, and atomic allocation saves. Recomputation is always
// explicit — adding or removing a member leaves allocations stale until the
// owner saves a new split.
type SubscriptionService struct {
	store  storage.Store
	issuer invite.Issuer
	tol    calculator.Tolerances

	// mu guards locks; each subscription gets its own mutex so that two
	// allocation saves for the same subscription cannot interleave, while
	// saves on different subscriptions proceed independently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSubscriptionService creates a SubscriptionService with the given
// storage backend and invite issuer. Zero tolerances mean defaults.
func NewSubscriptionService(store storage.Store, issuer invite.Issuer, tol calculator.Tolerances) *SubscriptionService {
	return &SubscriptionService{
		store:  store,
		issuer: issuer,
		tol:    tol,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *SubscriptionService) lockFor(subscriptionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[subscriptionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[subscriptionID] = l
	}
	return l
}

// Create makes a new subscription owned by ownerID with the default equal
// strategy. The owner is added as the first contributor and priced
// immediately: an equal split over one member is the whole total.
func (s *SubscriptionService) Create(ctx context.Context, ownerID, name string, totalAmount float64, currency string, cycle models.BillingCycle) (*SubscriptionView, error) {
	if name == "" {
		return nil, validationf("subscription name required")
	}
	if totalAmount <= 0 {
		return nil, validationf("total amount must be positive, got %v", totalAmount)
	}
	if currency == "" {
		return nil, validationf("currency required")
	}

	sub := &models.Subscription{
		Name:          name,
		TotalAmount:   totalAmount,
		Currency:      currency,
		BillingCycle:  cycle,
		SplitStrategy: models.StrategyEqual,
		OwnerID:       ownerID,
	}
	ownerRow := &models.Contributor{
		MemberID:         ownerID,
		CalculatedAmount: totalAmount,
		Status:           models.StatusPending,
	}

	if err := s.store.CreateSubscription(ctx, sub, ownerRow); err != nil {
		slog.Error("CreateSubscription failed", "owner_id", ownerID, "error", err)
		return nil, dependencyf("create subscription: %v", err)
	}

	slog.Info("Subscription created", "subscription_id", sub.ID, "owner_id", ownerID, "total", totalAmount)
	return s.view(ctx, sub)
}

// Get returns the subscription with its contributor registry and coverage
// totals. Only members may view it.
func (s *SubscriptionService) Get(ctx context.Context, actorID, subscriptionID string) (*SubscriptionView, error) {
	sub, contributors, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !isMember(actorID, contributors) {
		return nil, permissionf("you must be a contributor to view this subscription")
	}
	return s.assembleView(ctx, sub, contributors)
}

// ListByMember returns every subscription the user contributes to.
func (s *SubscriptionService) ListByMember(ctx context.Context, memberID string) ([]*models.Subscription, error) {
	subs, err := s.store.ListSubscriptionsByMember(ctx, memberID)
	if err != nil {
		return nil, dependencyf("list subscriptions: %v", err)
	}
	return subs, nil
}

// Delete removes a subscription and its registry. Owner only.
func (s *SubscriptionService) Delete(ctx context.Context, actorID, subscriptionID string) error {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.OwnerID != actorID {
		return permissionf("only the owner may delete a subscription")
	}
	if err := s.store.DeleteSubscription(ctx, subscriptionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFoundf("subscription %s", subscriptionID)
		}
		return dependencyf("delete subscription: %v", err)
	}
	slog.Info("Subscription deleted", "subscription_id", subscriptionID)
	return nil
}

// AddContributor adds a member to the registry with a zero allocation and
// pending status. Allocations stay stale until the owner explicitly saves a
// recomputed split; the new member is not auto-priced.
func (s *SubscriptionService) AddContributor(ctx context.Context, actorID, subscriptionID, memberID string) (*SubscriptionView, error) {
	sub, contributors, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != actorID {
		return nil, permissionf("only the owner may add contributors")
	}
	if _, err := s.store.GetUserByID(ctx, memberID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundf("user %s", memberID)
		}
		return nil, dependencyf("lookup user: %v", err)
	}
	for _, c := range contributors {
		if c.MemberID == memberID {
			return nil, validationf("user %s is already a contributor", memberID)
		}
	}

	row := &models.Contributor{
		SubscriptionID:   subscriptionID,
		MemberID:         memberID,
		CalculatedAmount: 0,
		Status:           models.StatusPending,
	}
	if err := s.store.AddContributor(ctx, row); err != nil {
		slog.Error("AddContributor failed", "subscription_id", subscriptionID, "member_id", memberID, "error", err)
		return nil, dependencyf("add contributor: %v", err)
	}

	slog.Info("Contributor added", "subscription_id", subscriptionID, "member_id", memberID)
	return s.view(ctx, sub)
}

// RemoveContributor deletes a member's row immediately. The removed share
// is NOT redistributed; remaining allocations are stale until the owner
// saves a recompute, and the view flags that.
func (s *SubscriptionService) RemoveContributor(ctx context.Context, actorID, subscriptionID, contributorID string) (*SubscriptionView, error) {
	sub, contributors, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != actorID {
		return nil, permissionf("only the owner may remove contributors")
	}

	var target *models.Contributor
	for _, c := range contributors {
		if c.ID == contributorID {
			target = c
			break
		}
	}
	if target == nil {
		return nil, notFoundf("contributor %s", contributorID)
	}
	if target.MemberID == sub.OwnerID {
		return nil, validationf("the owner's own contribution cannot be removed")
	}

	if err := s.store.RemoveContributor(ctx, contributorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundf("contributor %s", contributorID)
		}
		return nil, dependencyf("remove contributor: %v", err)
	}

	slog.Info("Contributor removed", "subscription_id", subscriptionID, "contributor_id", contributorID)
	return s.view(ctx, sub)
}

// PreviewSplit runs the calculator over staged inputs without persisting
// anything. The result carries amounts even when invalid so the caller can
// show what the numbers would be.
func (s *SubscriptionService) PreviewSplit(ctx context.Context, actorID, subscriptionID string, strategy models.SplitStrategy, inputs RawInputs) (calculator.Result, error) {
	sub, contributors, err := s.load(ctx, subscriptionID)
	if err != nil {
		return calculator.Result{}, err
	}
	if sub.OwnerID != actorID {
		return calculator.Result{}, permissionf("only the owner may edit the split")
	}
	members, err := s.stagedMembers(sub, contributors, strategy, inputs)
	if err != nil {
		return calculator.Result{}, err
	}

	res, err := calculator.ComputeAllocations(sub.TotalAmount, strategy, members, s.tol)
	if err != nil {
		return calculator.Result{}, validationf("%v", err)
	}
	return res, nil
}

// SaveSplit atomically persists a recomputed split: the strategy plus every
// contributor's raw input and calculated amount, in one durable unit.
// Saves for the same subscription are mutually exclusive, so two concurrent
// saves can never interleave field-by-field.
func (s *SubscriptionService) SaveSplit(ctx context.Context, actorID, subscriptionID string, strategy models.SplitStrategy, inputs RawInputs) (*SubscriptionView, error) {
	lock := s.lockFor(subscriptionID)
	lock.Lock()
	defer lock.Unlock()

	sub, contributors, err := s.load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != actorID {
		return nil, permissionf("only the owner may change the split")
	}
	if len(contributors) == 0 {
		return nil, validationf("cannot save a split with zero contributors")
	}

	members, err := s.stagedMembers(sub, contributors, strategy, inputs)
	if err != nil {
		return nil, err
	}

	res, err := calculator.ComputeAllocations(sub.TotalAmount, strategy, members, s.tol)
	if err != nil {
		return nil, validationf("%v", err)
	}
	if !res.Valid {
		return nil, validationf("split does not reconcile: %s", res.Reason)
	}

	updates := make([]storage.AllocationUpdate, len(res.Allocations))
	for i, a := range res.Allocations {
		updates[i] = storage.AllocationUpdate{
			ContributorID: a.MemberID, // staged members are keyed by contributor ID
			RawValue:      a.RawValue,
			Amount:        a.Amount,
		}
	}

	if err := s.store.SaveAllocations(ctx, subscriptionID, strategy, updates); err != nil {
		slog.Error("SaveAllocations failed", "subscription_id", subscriptionID, "error", err)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundf("allocation target vanished during save")
		}
		return nil, dependencyf("save allocations: %v", err)
	}

	metrics.SplitSavesTotal.WithLabelValues(string(strategy)).Inc()
	slog.Info("Split saved",
		"subscription_id", subscriptionID,
		"strategy", strategy,
		"contributors", len(updates),
	)

	sub.SplitStrategy = strategy
	return s.view(ctx, sub)
}

// IssueInvite mints a joinable token for the subscription. Owner only.
func (s *SubscriptionService) IssueInvite(ctx context.Context, actorID, subscriptionID string, ttl time.Duration) (*models.Invite, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != actorID {
		return nil, permissionf("only the owner may issue invites")
	}
	if ttl <= 0 {
		return nil, validationf("invite expiry must be in the future")
	}

	inv, err := s.issuer.Issue(ctx, subscriptionID, actorID, time.Now().Add(ttl))
	if err != nil {
		return nil, dependencyf("issue invite: %v", err)
	}
	slog.Info("Invite issued", "subscription_id", subscriptionID, "token", inv.Token)
	return inv, nil
}

// AcceptInvite redeems a token and adds the caller as a contributor with a
// zero allocation, same as AddContributor: pricing waits for the next
// explicit split save.
func (s *SubscriptionService) AcceptInvite(ctx context.Context, actorID, token string) (*SubscriptionView, error) {
	inv, err := s.store.GetInvite(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundf("invite %s", token)
		}
		return nil, dependencyf("lookup invite: %v", err)
	}
	if inv.Expired(time.Now()) {
		return nil, validationf("invite has expired")
	}
	if inv.Redeemed() {
		return nil, conflictf("invite was already redeemed")
	}

	sub, contributors, err := s.load(ctx, inv.SubscriptionID)
	if err != nil {
		return nil, err
	}
	for _, c := range contributors {
		if c.MemberID == actorID {
			return nil, validationf("you are already a contributor")
		}
	}

	if err := s.store.RedeemInvite(ctx, token, actorID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, conflictf("invite was already redeemed")
		}
		return nil, dependencyf("redeem invite: %v", err)
	}

	row := &models.Contributor{
		SubscriptionID:   inv.SubscriptionID,
		MemberID:         actorID,
		CalculatedAmount: 0,
		Status:           models.StatusPending,
	}
	if err := s.store.AddContributor(ctx, row); err != nil {
		slog.Error("AcceptInvite: failed to add contributor", "token", token, "error", err)
		return nil, dependencyf("add contributor: %v", err)
	}

	slog.Info("Invite accepted", "subscription_id", inv.SubscriptionID, "member_id", actorID)
	return s.view(ctx, sub)
}

// stagedMembers merges staged inputs over the registry, one calculator
// member per contributor row, keyed by contributor ID. Staged values win;
// stored values are ignored entirely because a strategy switch resets them.
func (s *SubscriptionService) stagedMembers(sub *models.Subscription, contributors []*models.Contributor, strategy models.SplitStrategy, inputs RawInputs) ([]calculator.Member, error) {
	known := make(map[string]bool, len(contributors))
	members := make([]calculator.Member, len(contributors))
	for i, c := range contributors {
		known[c.ID] = true
		raw := inputs[c.ID]
		if raw == nil && strategy == sub.SplitStrategy {
			// Same strategy: an unstated input keeps its stored value.
			raw = c.SplitValue
		}
		members[i] = calculator.Member{
			MemberID: c.ID,
			Input:    calculator.InputForStrategy(strategy, raw),
		}
	}
	for id := range inputs {
		if !known[id] {
			return nil, validationf("input for unknown contributor %s", id)
		}
	}
	return members, nil
}

func (s *SubscriptionService) getSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundf("subscription %s", subscriptionID)
		}
		return nil, dependencyf("get subscription: %v", err)
	}
	return sub, nil
}

func (s *SubscriptionService) load(ctx context.Context, subscriptionID string) (*models.Subscription, []*models.Contributor, error) {
	sub, err := s.getSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	contributors, err := s.store.ListContributors(ctx, subscriptionID)
	if err != nil {
		return nil, nil, dependencyf("list contributors: %v", err)
	}
	return sub, contributors, nil
}

func (s *SubscriptionService) view(ctx context.Context, sub *models.Subscription) (*SubscriptionView, error) {
	contributors, err := s.store.ListContributors(ctx, sub.ID)
	if err != nil {
		return nil, dependencyf("list contributors: %v", err)
	}
	return s.assembleView(ctx, sub, contributors)
}

func (s *SubscriptionService) assembleView(ctx context.Context, sub *models.Subscription, contributors []*models.Contributor) (*SubscriptionView, error) {
	memberIDs := make([]string, len(contributors))
	for i, c := range contributors {
		memberIDs[i] = c.MemberID
	}
	names, err := s.store.GetDisplayNames(ctx, memberIDs)
	if err != nil {
		return nil, dependencyf("resolve display names: %v", err)
	}

	views := make([]ContributorView, len(contributors))
	for i, c := range contributors {
		views[i] = ContributorView{Contributor: c, DisplayName: names[c.MemberID]}
	}
	return &SubscriptionView{
		Subscription: sub,
		Contributors: views,
		Totals:       calculator.ComputeTotals(sub.TotalAmount, contributors, s.tol),
	}, nil
}

func isMember(userID string, contributors []*models.Contributor) bool {
	for _, c := range contributors {
		if c.MemberID == userID {
			return true
		}
	}
	return false
}
