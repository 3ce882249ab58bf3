// Package model defines the data models for the Spin3 reward bot.
package model

import "time"

// User is the ledger record for one Telegram user. Records are created
// lazily on first interaction and never deleted.
type User struct {
	TelegramID    string     `db:"telegram_id"`
	Username      string     `db:"username"`
	Balance       int64      `db:"balance"`
	Spins         int64      `db:"spins"`
	LastBonusTime *time.Time `db:"last_bonus_time"`
	ReferralCount int64      `db:"referral_count"`
	InvitedBy     *string    `db:"invited_by"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Transaction is an append-only record of a balance change.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeSpinWin       = "spin_win"       // Spin winnings
	TxTypeReferralBonus = "referral_bonus" // Reward for inviting a user
	TxTypeWithdraw      = "withdraw"       // Withdrawal request accepted
)
