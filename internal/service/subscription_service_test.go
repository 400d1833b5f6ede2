package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/subsplit/subsplit/internal/calculator"
	"github.com/subsplit/subsplit/internal/invite"
	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/storage"
	"github.com/subsplit/subsplit/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newSubscriptionService(t *testing.T, store storage.Store) *SubscriptionService {
	t.Helper()
	return NewSubscriptionService(store, invite.NewTokenIssuer(store), calculator.Tolerances{})
}

func seedUser(t *testing.T, store storage.Store, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func ptr(v float64) *float64 { return &v }

func TestCreateSubscription(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 24.99, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if view.Subscription.SplitStrategy != models.StrategyEqual {
		t.Errorf("strategy = %s, want equal", view.Subscription.SplitStrategy)
	}
	if len(view.Contributors) != 1 {
		t.Fatalf("contributors = %d, want 1", len(view.Contributors))
	}
	ownerRow := view.Contributors[0]
	if ownerRow.MemberID != owner.ID || ownerRow.Status != models.StatusPending {
		t.Errorf("owner row = %+v", ownerRow.Contributor)
	}
	if math.Abs(ownerRow.CalculatedAmount-24.99) > 0.01 {
		t.Errorf("owner amount = %v, want the full total", ownerRow.CalculatedAmount)
	}
	if ownerRow.DisplayName != "Owner" {
		t.Errorf("display name = %q, want Owner", ownerRow.DisplayName)
	}
	if view.Totals.AllocationsStale {
		t.Error("fresh subscription should not be stale")
	}
}

func TestCreateValidation(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")

	tests := []struct {
		name     string
		subName  string
		amount   float64
		currency string
	}{
		{"empty name", "", 10, "USD"},
		{"zero amount", "Streaming", 0, "USD"},
		{"negative amount", "Streaming", -5, "USD"},
		{"empty currency", "Streaming", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner.ID, tt.subName, tt.amount, tt.currency, models.CycleMonthly)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestGetRequiresMembership(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")
	outsider := seedUser(t, store, "outsider@example.com", "Outsider")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 30, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID

	if _, err := svc.Get(ctx, owner.ID, subID); err != nil {
		t.Errorf("owner Get failed: %v", err)
	}
	if _, err := svc.Get(ctx, outsider.ID, subID); !errors.Is(err, ErrPermission) {
		t.Errorf("outsider error = %v, want ErrPermission", err)
	}
	if _, err := svc.Get(ctx, owner.ID, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAddContributor(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")
	member := seedUser(t, store, "member@example.com", "Member")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 30, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID

	t.Run("new member joins unpriced", func(t *testing.T) {
		view, err := svc.AddContributor(ctx, owner.ID, subID, member.ID)
		if err != nil {
			t.Fatalf("AddContributor failed: %v", err)
		}
		if len(view.Contributors) != 2 {
			t.Fatalf("contributors = %d, want 2", len(view.Contributors))
		}
		var row *ContributorView
		for i := range view.Contributors {
			if view.Contributors[i].MemberID == member.ID {
				row = &view.Contributors[i]
			}
		}
		if row == nil {
			t.Fatal("new member row missing from view")
		}
		if row.CalculatedAmount != 0 || row.Status != models.StatusPending {
			t.Errorf("new member row = %+v, want zero allocation pending", row.Contributor)
		}
	})

	t.Run("duplicate member rejected", func(t *testing.T) {
		_, err := svc.AddContributor(ctx, owner.ID, subID, member.ID)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("only the owner may add", func(t *testing.T) {
		_, err := svc.AddContributor(ctx, member.ID, subID, owner.ID)
		if !errors.Is(err, ErrPermission) {
			t.Errorf("error = %v, want ErrPermission", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.AddContributor(ctx, owner.ID, subID, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestSaveSplit(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")
	member := seedUser(t, store, "member@example.com", "Member")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 100, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID
	if _, err := svc.AddContributor(ctx, owner.ID, subID, member.ID); err != nil {
		t.Fatalf("AddContributor failed: %v", err)
	}

	t.Run("equal split reprices everyone", func(t *testing.T) {
		view, err := svc.SaveSplit(ctx, owner.ID, subID, models.StrategyEqual, nil)
		if err != nil {
			t.Fatalf("SaveSplit failed: %v", err)
		}
		for _, c := range view.Contributors {
			if math.Abs(c.CalculatedAmount-50) > 0.01 {
				t.Errorf("amount for %s = %v, want 50", c.MemberID, c.CalculatedAmount)
			}
		}
		if view.Totals.AllocationsStale {
			t.Error("a just-saved split should not be stale")
		}
	})

	contributors, err := store.ListContributors(ctx, subID)
	if err != nil {
		t.Fatalf("ListContributors failed: %v", err)
	}
	first, second := contributors[0].ID, contributors[1].ID

	t.Run("percentage must reconcile to save", func(t *testing.T) {
		_, err := svc.SaveSplit(ctx, owner.ID, subID, models.StrategyPercentage, RawInputs{
			first:  ptr(60),
			second: ptr(30),
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}

		// A blocked save leaves the stored split untouched.
		sub, err := store.GetSubscription(ctx, subID)
		if err != nil {
			t.Fatalf("GetSubscription failed: %v", err)
		}
		if sub.SplitStrategy != models.StrategyEqual {
			t.Errorf("strategy = %s, want equal after blocked save", sub.SplitStrategy)
		}
	})

	t.Run("valid percentage saves raw values", func(t *testing.T) {
		view, err := svc.SaveSplit(ctx, owner.ID, subID, models.StrategyPercentage, RawInputs{
			first:  ptr(70),
			second: ptr(30),
		})
		if err != nil {
			t.Fatalf("SaveSplit failed: %v", err)
		}
		if view.Subscription.SplitStrategy != models.StrategyPercentage {
			t.Errorf("strategy = %s, want percentage", view.Subscription.SplitStrategy)
		}

		reloaded, err := store.ListContributors(ctx, subID)
		if err != nil {
			t.Fatalf("ListContributors failed: %v", err)
		}
		for _, c := range reloaded {
			want := 70.0
			if c.ID == second {
				want = 30.0
			}
			if c.SplitValue == nil || *c.SplitValue != want {
				t.Errorf("raw value for %s = %v, want %v", c.ID, c.SplitValue, want)
			}
			if math.Abs(c.CalculatedAmount-want) > 0.01 {
				t.Errorf("amount for %s = %v, want %v", c.ID, c.CalculatedAmount, want)
			}
		}
	})

	t.Run("input for unknown contributor", func(t *testing.T) {
		_, err := svc.SaveSplit(ctx, owner.ID, subID, models.StrategyCustomAmount, RawInputs{
			"ghost": ptr(100),
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("only the owner may save", func(t *testing.T) {
		_, err := svc.SaveSplit(ctx, member.ID, subID, models.StrategyEqual, nil)
		if !errors.Is(err, ErrPermission) {
			t.Errorf("error = %v, want ErrPermission", err)
		}
	})
}

func TestPreviewSplitDoesNotPersist(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 100, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID
	ownerRowID := view.Contributors[0].ID

	res, err := svc.PreviewSplit(ctx, owner.ID, subID, models.StrategyPercentage, RawInputs{
		ownerRowID: ptr(40),
	})
	if err != nil {
		t.Fatalf("PreviewSplit failed: %v", err)
	}
	if res.Valid {
		t.Error("40% of one member should not reconcile")
	}
	if len(res.Allocations) != 1 || math.Abs(res.Allocations[0].Amount-40) > 0.01 {
		t.Errorf("preview still carries amounts: %+v", res.Allocations)
	}

	sub, err := store.GetSubscription(ctx, subID)
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if sub.SplitStrategy != models.StrategyEqual {
		t.Errorf("preview persisted a strategy change: %s", sub.SplitStrategy)
	}
}

func TestRemoveContributor(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")
	member := seedUser(t, store, "member@example.com", "Member")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 100, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID
	ownerRowID := view.Contributors[0].ID

	view, err = svc.AddContributor(ctx, owner.ID, subID, member.ID)
	if err != nil {
		t.Fatalf("AddContributor failed: %v", err)
	}
	if _, err := svc.SaveSplit(ctx, owner.ID, subID, models.StrategyEqual, nil); err != nil {
		t.Fatalf("SaveSplit failed: %v", err)
	}
	var memberRowID string
	for _, c := range view.Contributors {
		if c.MemberID == member.ID {
			memberRowID = c.ID
		}
	}

	t.Run("owner row cannot be removed", func(t *testing.T) {
		_, err := svc.RemoveContributor(ctx, owner.ID, subID, ownerRowID)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("only the owner may remove", func(t *testing.T) {
		_, err := svc.RemoveContributor(ctx, member.ID, subID, memberRowID)
		if !errors.Is(err, ErrPermission) {
			t.Errorf("error = %v, want ErrPermission", err)
		}
	})

	t.Run("removal leaves allocations stale", func(t *testing.T) {
		view, err := svc.RemoveContributor(ctx, owner.ID, subID, memberRowID)
		if err != nil {
			t.Fatalf("RemoveContributor failed: %v", err)
		}
		if len(view.Contributors) != 1 {
			t.Fatalf("contributors = %d, want 1", len(view.Contributors))
		}
		// The departed member's 50 is not redistributed.
		if math.Abs(view.Contributors[0].CalculatedAmount-50) > 0.01 {
			t.Errorf("remaining amount = %v, want the stale 50", view.Contributors[0].CalculatedAmount)
		}
		if !view.Totals.AllocationsStale {
			t.Error("view should flag stale allocations after removal")
		}
	})

	t.Run("removing a ghost row", func(t *testing.T) {
		_, err := svc.RemoveContributor(ctx, owner.ID, subID, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestConcurrentSaveSplit(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")
	member := seedUser(t, store, "member@example.com", "Member")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 100, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID
	if _, err := svc.AddContributor(ctx, owner.ID, subID, member.ID); err != nil {
		t.Fatalf("AddContributor failed: %v", err)
	}
	contributors, err := store.ListContributors(ctx, subID)
	if err != nil {
		t.Fatalf("ListContributors failed: %v", err)
	}
	first, second := contributors[0].ID, contributors[1].ID

	// Two complete custom splits racing for the same subscription: whichever
	// wins, the stored pair must come from a single save, never a mix.
	splits := []RawInputs{
		{first: ptr(60), second: ptr(40)},
		{first: ptr(30), second: ptr(70)},
	}

	var wg sync.WaitGroup
	for _, inputs := range splits {
		wg.Add(1)
		go func(in RawInputs) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := svc.SaveSplit(ctx, owner.ID, subID, models.StrategyCustomAmount, in); err != nil {
					t.Errorf("SaveSplit failed: %v", err)
					return
				}
			}
		}(inputs)
	}
	wg.Wait()

	reloaded, err := store.ListContributors(ctx, subID)
	if err != nil {
		t.Fatalf("ListContributors failed: %v", err)
	}
	byID := make(map[string]float64, len(reloaded))
	for _, c := range reloaded {
		byID[c.ID] = c.CalculatedAmount
	}
	pairA := byID[first] == 60 && byID[second] == 40
	pairB := byID[first] == 30 && byID[second] == 70
	if !pairA && !pairB {
		t.Errorf("stored amounts %v/%v mix two saves", byID[first], byID[second])
	}
}

func TestInviteFlow(t *testing.T) {
	store := newTestStore(t)
	svc := newSubscriptionService(t, store)
	ctx := context.Background()
	owner := seedUser(t, store, "owner@example.com", "Owner")
	invitee := seedUser(t, store, "invitee@example.com", "Invitee")
	other := seedUser(t, store, "other@example.com", "Other")

	view, err := svc.Create(ctx, owner.ID, "Streaming", 60, "USD", models.CycleMonthly)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	subID := view.Subscription.ID

	t.Run("only the owner may issue", func(t *testing.T) {
		_, err := svc.IssueInvite(ctx, invitee.ID, subID, time.Hour)
		if !errors.Is(err, ErrPermission) {
			t.Errorf("error = %v, want ErrPermission", err)
		}
	})

	t.Run("non-positive ttl rejected", func(t *testing.T) {
		_, err := svc.IssueInvite(ctx, owner.ID, subID, 0)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("accept joins the registry", func(t *testing.T) {
		inv, err := svc.IssueInvite(ctx, owner.ID, subID, time.Hour)
		if err != nil {
			t.Fatalf("IssueInvite failed: %v", err)
		}
		view, err := svc.AcceptInvite(ctx, invitee.ID, inv.Token)
		if err != nil {
			t.Fatalf("AcceptInvite failed: %v", err)
		}
		if !isMember(invitee.ID, contributorRows(view)) {
			t.Error("invitee missing from registry after accept")
		}

		// A spent token cannot admit anyone else.
		_, err = svc.AcceptInvite(ctx, other.ID, inv.Token)
		if !errors.Is(err, ErrStateConflict) {
			t.Errorf("error = %v, want ErrStateConflict", err)
		}
	})

	t.Run("expired invite", func(t *testing.T) {
		inv := &models.Invite{
			SubscriptionID: subID,
			IssuedBy:       owner.ID,
			ExpiresAt:      time.Now().Add(-time.Hour).Unix(),
		}
		if err := store.CreateInvite(ctx, inv); err != nil {
			t.Fatalf("CreateInvite failed: %v", err)
		}
		_, err := svc.AcceptInvite(ctx, other.ID, inv.Token)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.AcceptInvite(ctx, other.ID, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func contributorRows(view *SubscriptionView) []*models.Contributor {
	rows := make([]*models.Contributor, len(view.Contributors))
	for i := range view.Contributors {
		rows[i] = view.Contributors[i].Contributor
	}
	return rows
}
