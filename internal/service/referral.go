package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tokhirov0/Spin3/internal/model"
	"github.com/tokhirov0/Spin3/internal/repository"
)

// Referral attribution errors. All of them leave every record untouched.
var (
	ErrSelfReferral      = errors.New("self-referral is not allowed")
	ErrAlreadyAttributed = errors.New("user is already attributed to a referrer")
	ErrUnknownReferrer   = errors.New("referrer does not exist")
)

// ReferralService attributes new users to their referrers. Attribution
// succeeds at most once per referee over the lifetime of the record,
// which makes the operation idempotent under /start replays.
type ReferralService struct {
	users     UserStore
	txs       TxStore
	notifier  Notifier
	reward    int64
	botHandle string
}

// NewReferralService creates a new ReferralService instance.
func NewReferralService(users UserStore, txs TxStore, notifier Notifier, reward int64, botHandle string) *ReferralService {
	return &ReferralService{
		users:     users,
		txs:       txs,
		notifier:  notifier,
		reward:    reward,
		botHandle: botHandle,
	}
}

// Attribute credits referrerID for inviting refereeID. The referee's
// record must already exist (the /start handler creates it first).
// Unknown referrer tokens are rejected rather than auto-created, so
// arbitrary payload strings can never fabricate ledger entries.
func (s *ReferralService) Attribute(ctx context.Context, refereeID, referrerID string) error {
	if refereeID == referrerID {
		return ErrSelfReferral
	}

	referee, err := s.users.GetByID(ctx, refereeID)
	if err != nil {
		return fmt.Errorf("failed to get referee: %w", err)
	}
	if referee.InvitedBy != nil {
		return ErrAlreadyAttributed
	}

	exists, err := s.users.Exists(ctx, referrerID)
	if err != nil {
		return fmt.Errorf("failed to check referrer: %w", err)
	}
	if !exists {
		return ErrUnknownReferrer
	}

	if err := s.users.Attribute(ctx, refereeID, referrerID, s.reward); err != nil {
		if errors.Is(err, repository.ErrAlreadyAttributed) {
			// A replay raced us between the read above and the update.
			return ErrAlreadyAttributed
		}
		return fmt.Errorf("failed to attribute referral: %w", err)
	}

	desc := fmt.Sprintf("referred %s", refereeID)
	if _, err := s.txs.Create(ctx, referrerID, s.reward, model.TxTypeReferralBonus, &desc); err != nil {
		log.Warn().Err(err).Str("referrer_id", referrerID).Msg("Failed to journal referral bonus")
	}

	notice := fmt.Sprintf("🎉 Yangi referal! Sizga %d so‘m qo‘shildi.", s.reward)
	if err := s.notifier.Notify(referrerID, notice); err != nil {
		// Best-effort: the credit stays even if the referrer is unreachable.
		log.Warn().Err(err).Str("referrer_id", referrerID).Msg("Failed to notify referrer")
	}

	log.Info().
		Str("referee_id", refereeID).
		Str("referrer_id", referrerID).
		Int64("reward", s.reward).
		Msg("Referral attributed")

	return nil
}

// Link returns the invitation link for a user.
func (s *ReferralService) Link(telegramID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", s.botHandle, telegramID)
}
