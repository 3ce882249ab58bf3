package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tokhirov0/Spin3/internal/model"
	"github.com/tokhirov0/Spin3/internal/repository"
)

// Policy errors for ledger operations. None of them leaves the ledger
// mutated.
var (
	ErrInsufficientSpins   = errors.New("no spins available")
	ErrBonusAlreadyClaimed = errors.New("daily bonus already claimed")
	ErrBelowMinimum        = errors.New("balance below withdrawal minimum")
	ErrInvalidAmount       = errors.New("invalid withdrawal amount")
	ErrInvalidCard         = errors.New("invalid card number")
)

// LedgerConfig holds the reward policy values for the ledger operations.
type LedgerConfig struct {
	SpinWinMin    int64
	SpinWinMax    int64
	MinWithdraw   int64
	BonusCooldown time.Duration
}

// LedgerService implements the reward state transitions: spin, daily
// bonus claim and withdrawal. Callers serialize invocations per user via
// the lock package; the conditional SQL updates underneath are the
// backstop.
type LedgerService struct {
	users    UserStore
	txs      TxStore
	notifier Notifier
	cfg      LedgerConfig
}

// SpinResult is the outcome of a successful spin.
type SpinResult struct {
	WinAmount int64
	Balance   int64
	SpinsLeft int64
}

// WithdrawResult is the outcome of a completed withdrawal request.
type WithdrawResult struct {
	Amount  int64
	Card    string
	Balance int64
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(users UserStore, txs TxStore, notifier Notifier, cfg LedgerConfig) *LedgerService {
	return &LedgerService{
		users:    users,
		txs:      txs,
		notifier: notifier,
		cfg:      cfg,
	}
}

// EnsureUser ensures a ledger record exists, creating the default one if
// necessary. Returns the record and whether it was newly created. A
// changed display name is refreshed best-effort on existing records.
func (s *LedgerService) EnsureUser(ctx context.Context, telegramID, username string) (*model.User, bool, error) {
	user, created, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if !created && username != "" && user.Username != username {
		if err := s.users.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Str("user_id", telegramID).Msg("Failed to refresh username")
		} else {
			user.Username = username
		}
	}

	return user, created, nil
}

// GetUser retrieves a ledger record.
func (s *LedgerService) GetUser(ctx context.Context, telegramID string) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}

// Spin consumes one spin and credits a uniform random win from the
// configured range. Fails with ErrInsufficientSpins when no spins are
// available, leaving the record untouched.
func (s *LedgerService) Spin(ctx context.Context, telegramID string) (*SpinResult, error) {
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Spins < 1 {
		return nil, ErrInsufficientSpins
	}

	win := s.cfg.SpinWinMin + rand.Int63n(s.cfg.SpinWinMax-s.cfg.SpinWinMin+1)

	user, err = s.users.RecordSpin(ctx, telegramID, win)
	if err != nil {
		return nil, fmt.Errorf("failed to record spin: %w", err)
	}

	if _, err := s.txs.Create(ctx, telegramID, win, model.TxTypeSpinWin, nil); err != nil {
		// Non-fatal: the balance change is already committed.
		log.Warn().Err(err).Str("user_id", telegramID).Msg("Failed to journal spin win")
	}

	return &SpinResult{WinAmount: win, Balance: user.Balance, SpinsLeft: user.Spins}, nil
}

// bonusEligibility reports whether a bonus may be claimed now and, if
// not, how long remains until the next claim.
func bonusEligibility(last *time.Time, now time.Time, cooldown time.Duration) (bool, time.Duration) {
	if last == nil {
		return true, 0
	}
	next := last.Add(cooldown)
	if !now.Before(next) {
		return true, 0
	}
	return false, next.Sub(now)
}

// ClaimDailyBonus grants one spin if the cooldown has elapsed since the
// last claim. On ErrBonusAlreadyClaimed the remaining wait is returned
// and nothing is mutated.
func (s *LedgerService) ClaimDailyBonus(ctx context.Context, telegramID string) (spins int64, remaining time.Duration, err error) {
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	ok, remaining := bonusEligibility(user.LastBonusTime, now, s.cfg.BonusCooldown)
	if !ok {
		return user.Spins, remaining, ErrBonusAlreadyClaimed
	}

	user, err = s.users.GrantBonus(ctx, telegramID, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to grant bonus: %w", err)
	}

	return user.Spins, 0, nil
}

// MinWithdraw returns the configured withdrawal minimum.
func (s *LedgerService) MinWithdraw() int64 {
	return s.cfg.MinWithdraw
}

// CanWithdraw checks whether the user's balance meets the withdrawal
// minimum, without mutating anything. Used to guard flow entry.
func (s *LedgerService) CanWithdraw(ctx context.Context, telegramID string) error {
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Balance < s.cfg.MinWithdraw {
		return ErrBelowMinimum
	}
	return nil
}

// validCard reports whether s is a 16-digit card number.
func validCard(s string) bool {
	if len(s) != 16 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Withdraw completes a withdrawal request: the balance is decremented
// atomically and the request is forwarded to the administrative sink for
// manual settlement. No automatic payout occurs. The notification is
// best-effort and never rolls back the ledger mutation.
func (s *LedgerService) Withdraw(ctx context.Context, telegramID string, amount int64, card string) (*WithdrawResult, error) {
	if !validCard(card) {
		return nil, ErrInvalidCard
	}

	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if amount < s.cfg.MinWithdraw || amount > user.Balance {
		return nil, ErrInvalidAmount
	}

	user, err = s.users.Withdraw(ctx, telegramID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, ErrInvalidAmount
		}
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}

	desc := fmt.Sprintf("card %s", card)
	if _, err := s.txs.Create(ctx, telegramID, -amount, model.TxTypeWithdraw, &desc); err != nil {
		log.Warn().Err(err).Str("user_id", telegramID).Msg("Failed to journal withdrawal")
	}

	notice := fmt.Sprintf("💳 Pul yechish so‘rovi\nID: %s\nMiqdor: %d so‘m\nKarta: %s", telegramID, amount, card)
	if err := s.notifier.NotifyAdmins(notice); err != nil {
		log.Warn().Err(err).Str("user_id", telegramID).Msg("Failed to notify admins about withdrawal")
	}

	log.Info().
		Str("user_id", telegramID).
		Int64("amount", amount).
		Msg("Withdrawal request accepted")

	return &WithdrawResult{Amount: amount, Card: card, Balance: user.Balance}, nil
}
