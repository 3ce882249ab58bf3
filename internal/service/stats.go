package service

import (
	"context"
	"fmt"

	"github.com/tokhirov0/Spin3/internal/model"
)

// UserStat is one row of the admin statistics report.
type UserStat struct {
	UserID        string
	ReferralCount int64
	Balance       int64
}

// StatsService produces read-only reports for the admin surface.
type StatsService struct {
	users UserStore
	txs   TxStore
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(users UserStore, txs TxStore) *StatsService {
	return &StatsService{users: users, txs: txs}
}

// ListStats returns one row per user with referral count and balance,
// in record creation order.
func (s *StatsService) ListStats(ctx context.Context) ([]UserStat, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	stats := make([]UserStat, 0, len(users))
	for _, u := range users {
		stats = append(stats, UserStat{
			UserID:        u.TelegramID,
			ReferralCount: u.ReferralCount,
			Balance:       u.Balance,
		})
	}
	return stats, nil
}

// History returns a user's most recent journal entries, newest first.
// The user must exist; repository.ErrUserNotFound propagates otherwise.
func (s *StatsService) History(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	txs, err := s.txs.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return txs, nil
}
