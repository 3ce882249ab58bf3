package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/tokhirov0/Spin3/internal/gate"
	"github.com/tokhirov0/Spin3/internal/pkg/lock"
	"github.com/tokhirov0/Spin3/internal/service"
)

// StartHandler handles /start (with optional referral payload) and the
// referral link button.
type StartHandler struct {
	ledger     *service.LedgerService
	referrals  *service.ReferralService
	gatekeeper *gate.Gate
	userLock   *lock.UserLock
	mainMenu   *tele.ReplyMarkup
}

// NewStartHandler creates a new StartHandler.
func NewStartHandler(ledger *service.LedgerService, referrals *service.ReferralService, gatekeeper *gate.Gate, userLock *lock.UserLock, mainMenu *tele.ReplyMarkup) *StartHandler {
	return &StartHandler{
		ledger:     ledger,
		referrals:  referrals,
		gatekeeper: gatekeeper,
		userLock:   userLock,
		mainMenu:   mainMenu,
	}
}

// HandleStart creates the ledger record on first contact, attributes the
// referral payload if one is present, then either shows the main menu or
// the gate challenge. Replayed /start payloads are absorbed by the
// attribution guard without further effect.
func (h *StartHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := userKey(sender)

	h.userLock.Lock(userID)
	if _, _, err := h.ledger.EnsureUser(ctx, userID, displayName(sender)); err != nil {
		h.userLock.Unlock(userID)
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}
	h.userLock.Unlock(userID)

	payload := ""
	if msg := c.Message(); msg != nil {
		payload = msg.Payload
	}
	if payload != "" {
		h.attribute(ctx, userID, payload)
	}

	decision, err := h.gatekeeper.Check(ctx, userID)
	if err != nil {
		return c.Reply("❌ Xatolik yuz berdi, keyinroq urinib ko‘ring")
	}
	if !decision.Allowed {
		return c.Reply(joinPrompt(decision.Unmet))
	}

	return c.Reply("Assalomu alaykum! Tanlang:", h.mainMenu)
}

// attribute runs referral attribution for a /start payload. Policy
// rejections are absorbed silently: a replayed or malformed payload is
// not the referee's error.
func (h *StartHandler) attribute(ctx context.Context, userID, referrerID string) {
	// The referrer's record is mutated, so the credit runs under the
	// referrer's lock, not the referee's.
	h.userLock.Lock(referrerID)
	defer h.userLock.Unlock(referrerID)

	err := h.referrals.Attribute(ctx, userID, referrerID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAlreadyAttributed),
		errors.Is(err, service.ErrSelfReferral),
		errors.Is(err, service.ErrUnknownReferrer):
		log.Debug().
			Err(err).
			Str("referee_id", userID).
			Str("referrer_id", referrerID).
			Msg("Referral attribution skipped")
	default:
		log.Error().
			Err(err).
			Str("referee_id", userID).
			Str("referrer_id", referrerID).
			Msg("Referral attribution failed")
	}
}

// HandleReferral replies with the user's invitation link.
func (h *StartHandler) HandleReferral(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return c.Reply("Sizning referal linkingiz: " + h.referrals.Link(userKey(sender)))
}
