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

// CreateInvite persists a new invite token.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *models.Invite) error {
	if invite.Token == "" {
		invite.Token = uuid.New().String()
	}
	if invite.CreatedAt == 0 {
		invite.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invites (token, subscription_id, issued_by, expires_at, redeemed_by, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?)`,
		invite.Token, invite.SubscriptionID, invite.IssuedBy, invite.ExpiresAt, invite.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by token.
func (s *SQLiteStore) GetInvite(ctx context.Context, token string) (*models.Invite, error) {
	invite := &models.Invite{}
	var redeemedBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT token, subscription_id, issued_by, expires_at, redeemed_by, created_at
		 FROM invites WHERE token = ?`,
		token,
	).Scan(&invite.Token, &invite.SubscriptionID, &invite.IssuedBy, &invite.ExpiresAt, &redeemedBy, &invite.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invite %s: %w", token, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	if redeemedBy.Valid {
		invite.RedeemedBy = redeemedBy.String
	}
	return invite, nil
}

// RedeemInvite marks an invite as used, guarded against double redemption.
func (s *SQLiteStore) RedeemInvite(ctx context.Context, token, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invites SET redeemed_by = ? WHERE token = ? AND redeemed_by IS NULL",
		userID, token,
	)
	if err != nil {
		return fmt.Errorf("failed to redeem invite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check redeem result: %w", err)
	}
	if n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM invites WHERE token = ?", token).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("invite %s: %w", token, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check invite existence: %w", err)
		}
		return fmt.Errorf("invite %s already redeemed: %w", token, storage.ErrConflict)
	}
	return nil
}
