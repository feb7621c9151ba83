package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clipforge/pipeline/internal/models"
	"github.com/google/uuid"
)

// GetUser retrieves the entitlement fields for a caller.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, credits, subscription_status, created_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Credits, &user.SubscriptionStatus, &user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// DeductCredits takes amount credits from the user inside a transaction and
// records the deduction in the ledger. Fails when the balance is short;
// callers are expected to have checked entitlement up front, this is the
// final guard against a balance that changed mid-render.
func (db *DB) DeductCredits(ctx context.Context, userID uuid.UUID, amount int, description string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var credits int
	err = tx.QueryRowContext(ctx,
		`SELECT credits FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&credits)
	if err == sql.ErrNoRows {
		return fmt.Errorf("user not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock user row: %w", err)
	}

	if credits < amount {
		return fmt.Errorf("insufficient credits: have %d, need %d", credits, amount)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits - $1 WHERE id = $2`, amount, userID,
	); err != nil {
		return fmt.Errorf("failed to deduct credits: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_ledger (id, user_id, amount, type, description)
		 VALUES ($1, $2, $3, 'EXPORT', $4)`,
		uuid.New(), userID, -amount, description,
	); err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credit deduction: %w", err)
	}
	return nil
}
