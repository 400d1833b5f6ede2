package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/subsplit/subsplit/internal/models"
	"github.com/subsplit/subsplit/internal/storage"
)

var _ storage.Store = (*SQLiteStore)(nil)

// CreateSubscription persists a subscription and its owner's contributor
// row in one transaction.
func (s *SQLiteStore) CreateSubscription(ctx context.Context, sub *models.Subscription, owner *models.Contributor) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt == 0 {
		sub.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, name, total_amount, currency, billing_cycle, split_strategy, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.TotalAmount, sub.Currency, sub.BillingCycle, sub.SplitStrategy, sub.OwnerID, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	if owner != nil {
		owner.SubscriptionID = sub.ID
		if err := insertContributor(ctx, tx, owner); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by ID.
func (s *SQLiteStore) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, total_amount, currency, billing_cycle, split_strategy, owner_id, created_at
		 FROM subscriptions WHERE id = ?`,
		subscriptionID,
	).Scan(&sub.ID, &sub.Name, &sub.TotalAmount, &sub.Currency, &sub.BillingCycle, &sub.SplitStrategy, &sub.OwnerID, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription %s: %w", subscriptionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptionsByMember retrieves every subscription the user
// contributes to, newest first.
func (s *SQLiteStore) ListSubscriptionsByMember(ctx context.Context, memberID string) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.total_amount, s.currency, s.billing_cycle, s.split_strategy, s.owner_id, s.created_at
		 FROM subscriptions s
		 JOIN contributors c ON c.subscription_id = s.id
		 WHERE c.member_id = ?
		 ORDER BY s.created_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub := &models.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.TotalAmount, &sub.Currency, &sub.BillingCycle, &sub.SplitStrategy, &sub.OwnerID, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

// DeleteSubscription removes a subscription; contributor rows and invites
// go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %s: %w", subscriptionID, storage.ErrNotFound)
	}
	return nil
}

// SaveAllocations updates the subscription's strategy and every listed
// contributor's raw input and calculated amount in one transaction. If any
// row is missing the whole save rolls back.
func (s *SQLiteStore) SaveAllocations(ctx context.Context, subscriptionID string, strategy models.SplitStrategy, updates []storage.AllocationUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE subscriptions SET split_strategy = ? WHERE id = ?",
		strategy, subscriptionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check strategy update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %s: %w", subscriptionID, storage.ErrNotFound)
	}

	for _, u := range updates {
		var raw interface{}
		if u.RawValue != nil {
			raw = *u.RawValue
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE contributors SET split_value = ?, calculated_amount = ?
			 WHERE id = ? AND subscription_id = ?`,
			raw, u.Amount, u.ContributorID, subscriptionID,
		)
		if err != nil {
			return fmt.Errorf("failed to update allocation for %s: %w", u.ContributorID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check allocation update: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("contributor %s: %w", u.ContributorID, storage.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit allocation save: %w", err)
	}
	return nil
}
