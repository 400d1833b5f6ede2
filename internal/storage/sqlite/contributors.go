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

const contributorColumns = `id, subscription_id, member_id, split_value, calculated_amount,
	settlement_status, submitted_at, approved_at, paid_at, last_reminder_at, created_at`

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertContributor(ctx context.Context, e execer, c *models.Contributor) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	if c.Status == "" {
		c.Status = models.StatusPending
	}

	var raw interface{}
	if c.SplitValue != nil {
		raw = *c.SplitValue
	}

	_, err := e.ExecContext(ctx,
		`INSERT INTO contributors (id, subscription_id, member_id, split_value, calculated_amount,
		 settlement_status, submitted_at, approved_at, paid_at, last_reminder_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SubscriptionID, c.MemberID, raw, c.CalculatedAmount,
		c.Status, nullableTime(c.SubmittedAt), nullableTime(c.ApprovedAt),
		nullableTime(c.PaidAt), nullableTime(c.LastReminderAt), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contributor: %w", err)
	}
	return nil
}

// AddContributor inserts a new contributor row.
func (s *SQLiteStore) AddContributor(ctx context.Context, c *models.Contributor) error {
	return insertContributor(ctx, s.db, c)
}

// GetContributor retrieves a contributor row by ID.
func (s *SQLiteStore) GetContributor(ctx context.Context, contributorID string) (*models.Contributor, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+contributorColumns+" FROM contributors WHERE id = ?",
		contributorID,
	)
	c, err := scanContributor(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("contributor %s: %w", contributorID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contributor: %w", err)
	}
	return c, nil
}

// ListContributors retrieves all contributor rows for a subscription in
// insertion order.
func (s *SQLiteStore) ListContributors(ctx context.Context, subscriptionID string) ([]*models.Contributor, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contributorColumns+" FROM contributors WHERE subscription_id = ? ORDER BY created_at, id",
		subscriptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors: %w", err)
	}
	defer rows.Close()

	var contributors []*models.Contributor
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contributor: %w", err)
		}
		contributors = append(contributors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributors: %w", err)
	}
	return contributors, nil
}

// RemoveContributor deletes a contributor row.
func (s *SQLiteStore) RemoveContributor(ctx context.Context, contributorID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM contributors WHERE id = ?", contributorID)
	if err != nil {
		return fmt.Errorf("failed to remove contributor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check remove result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contributor %s: %w", contributorID, storage.ErrNotFound)
	}
	return nil
}

// TransitionContributor persists a settlement transition with a guard on
// the previous status. A concurrent transition that got there first makes
// the guard fail, which is surfaced as ErrConflict, never overwritten.
func (s *SQLiteStore) TransitionContributor(ctx context.Context, c *models.Contributor, from models.SettlementStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contributors
		 SET settlement_status = ?, submitted_at = ?, approved_at = ?, paid_at = ?
		 WHERE id = ? AND settlement_status = ?`,
		c.Status, nullableTime(c.SubmittedAt), nullableTime(c.ApprovedAt), nullableTime(c.PaidAt),
		c.ID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to persist transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check transition result: %w", err)
	}
	if n == 0 {
		// Distinguish a missing row from a lost race.
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM contributors WHERE id = ?", c.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("contributor %s: %w", c.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check contributor existence: %w", err)
		}
		return fmt.Errorf("contributor %s was no longer %s: %w", c.ID, from, storage.ErrConflict)
	}
	return nil
}

// RecordReminder stamps last_reminder_at on a contributor row.
func (s *SQLiteStore) RecordReminder(ctx context.Context, contributorID string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE contributors SET last_reminder_at = ? WHERE id = ?",
		at, contributorID,
	)
	if err != nil {
		return fmt.Errorf("failed to record reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reminder result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contributor %s: %w", contributorID, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContributor(row rowScanner) (*models.Contributor, error) {
	c := &models.Contributor{}
	var splitValue sql.NullFloat64
	var submittedAt, approvedAt, paidAt, lastReminderAt sql.NullInt64

	err := row.Scan(&c.ID, &c.SubscriptionID, &c.MemberID, &splitValue, &c.CalculatedAmount,
		&c.Status, &submittedAt, &approvedAt, &paidAt, &lastReminderAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if splitValue.Valid {
		v := splitValue.Float64
		c.SplitValue = &v
	}
	c.SubmittedAt = submittedAt.Int64
	c.ApprovedAt = approvedAt.Int64
	c.PaidAt = paidAt.Int64
	c.LastReminderAt = lastReminderAt.Int64
	return c, nil
}

// nullableTime maps a zero Unix timestamp to NULL.
func nullableTime(ts int64) interface{} {
	if ts == 0 {
		return nil
	}
	return ts
}
