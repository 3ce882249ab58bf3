// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokhirov0/Spin3/internal/model"
)

// Common errors for repository operations. ErrUserNotFound is returned
// only when a row is genuinely absent; storage failures are wrapped and
// propagated so callers never mistake an I/O error for a missing record.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyAttributed = errors.New("user already attributed to a referrer")
)

const userColumns = `telegram_id, username, balance, spins, last_bonus_time, referral_count, invited_by, created_at, updated_at`

// UserRepository handles user ledger persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.Balance,
		&user.Spins,
		&user.LastBonusTime,
		&user.ReferralCount,
		&user.InvitedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user ledger record with the defaults for a first
// interaction: zero balance and one free spin.
func (r *UserRepository) Create(ctx context.Context, telegramID, username string) (*model.User, error) {
	const query = `
		INSERT INTO users (telegram_id, username, balance, spins, referral_count, created_at, updated_at)
		VALUES ($1, $2, 0, 1, 0, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a user by Telegram ID, creating the default record
// if it doesn't exist. The record is persisted before returning.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID, username string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, telegramID, username)
	if err != nil {
		// Handle race condition: another request might have created the user
		user, err = r.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	return user, true, nil
}

// RecordSpin consumes one spin and credits the win amount in a single
// statement. Callers hold the per-user lock and have verified spins >= 1;
// the spins condition here is the backstop against a stale read.
func (r *UserRepository) RecordSpin(ctx context.Context, telegramID string, winAmount int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET spins = spins - 1, balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1 AND spins >= 1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID, winAmount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to record spin: %w", err)
	}
	return user, nil
}

// GrantBonus adds one spin and stamps the bonus claim time.
func (r *UserRepository) GrantBonus(ctx context.Context, telegramID string, claimedAt time.Time) (*model.User, error) {
	const query = `
		UPDATE users
		SET spins = spins + 1, last_bonus_time = $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID, claimedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to grant bonus: %w", err)
	}
	return user, nil
}

// Withdraw decrements the balance by the requested amount. The balance
// condition makes the decrement atomic: a concurrent withdrawal can never
// drive the balance negative. Returns ErrInsufficientFunds if the balance
// no longer covers the amount.
func (r *UserRepository) Withdraw(ctx context.Context, telegramID string, amount int64) (*model.User, error) {
	const query = `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE telegram_id = $1 AND balance >= $2
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from an uncovered balance.
			if _, getErr := r.GetByID(ctx, telegramID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}
	return user, nil
}

// Attribute credits a referral in one database transaction: the referee's
// invited_by is set (only if still unset) and the referrer gains one
// referral count plus the reward amount. Returns ErrAlreadyAttributed if
// the referee was already credited to a referrer.
func (r *UserRepository) Attribute(ctx context.Context, refereeID, referrerID string, reward int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin attribution: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	const refereeQuery = `
		UPDATE users
		SET invited_by = $2, updated_at = NOW()
		WHERE telegram_id = $1 AND invited_by IS NULL
	`
	res, err := tx.Exec(ctx, refereeQuery, refereeID, referrerID)
	if err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrAlreadyAttributed
	}

	const referrerQuery = `
		UPDATE users
		SET referral_count = referral_count + 1, balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1
	`
	res, err = tx.Exec(ctx, referrerQuery, referrerID, reward)
	if err != nil {
		return fmt.Errorf("failed to credit referrer: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit attribution: %w", err)
	}
	return nil
}

// List retrieves all user records in creation order, for admin reporting.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateUsername updates a user's display name.
func (r *UserRepository) UpdateUsername(ctx context.Context, telegramID, username string) error {
	const query = `
		UPDATE users
		SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Exists checks if a user with the given Telegram ID exists.
func (r *UserRepository) Exists(ctx context.Context, telegramID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE telegram_id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}
