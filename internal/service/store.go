// Package service provides business logic implementations.
package service

import (
	"context"
	"time"

	"github.com/tokhirov0/Spin3/internal/model"
)

// UserStore is the slice of the user repository the services depend on.
// *repository.UserRepository satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, telegramID string) (*model.User, error)
	GetOrCreate(ctx context.Context, telegramID, username string) (*model.User, bool, error)
	RecordSpin(ctx context.Context, telegramID string, winAmount int64) (*model.User, error)
	GrantBonus(ctx context.Context, telegramID string, claimedAt time.Time) (*model.User, error)
	Withdraw(ctx context.Context, telegramID string, amount int64) (*model.User, error)
	Attribute(ctx context.Context, refereeID, referrerID string, reward int64) error
	List(ctx context.Context) ([]*model.User, error)
	UpdateUsername(ctx context.Context, telegramID, username string) error
	Exists(ctx context.Context, telegramID string) (bool, error)
}

// TxStore records balance changes in the transaction journal and reads
// them back for reporting. *repository.TransactionRepository satisfies it.
type TxStore interface {
	Create(ctx context.Context, userID string, amount int64, txType string, description *string) (*model.Transaction, error)
	GetByUserID(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
}

// Notifier delivers best-effort messages to users and to the
// administrative sink. Failures are logged by callers, never propagated
// as operation failures.
type Notifier interface {
	Notify(userID, text string) error
	NotifyAdmins(text string) error
}
